package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

const (
	MinPause time.Duration = 0
	MaxPause time.Duration = 5 * time.Second
)

// Config holds all runtime configuration, loaded from an optional TOML file
// and then environment variables.
type Config struct {
	// Storage layout
	AudioRoot string
	SourceDir string
	TargetDir string
	ClipExt   string
	InfoFile  string

	// Server
	Port      int
	SessionDB string

	// Drill behavior
	Passes        int
	Pause         time.Duration // between source and target clip, 0-5s
	WordGap       time.Duration // after each target clip
	EdgeFade      time.Duration // click suppression inside each clip
	AudioFormat   string        // mp3 or wav
	DecodeWorkers int

	// Label display defaults
	ShowTarget          bool
	ShowTransliteration bool
}

// fileConfig mirrors the TOML keys; nil fields keep the default.
type fileConfig struct {
	AudioRoot           *string  `toml:"audio_root"`
	SourceDir           *string  `toml:"source_dir"`
	TargetDir           *string  `toml:"target_dir"`
	ClipExt             *string  `toml:"clip_ext"`
	InfoFile            *string  `toml:"info_file"`
	Port                *int     `toml:"port"`
	SessionDB           *string  `toml:"session_db"`
	Passes              *int     `toml:"passes"`
	PauseSeconds        *float64 `toml:"pause_seconds"`
	WordGapMS           *int     `toml:"word_gap_ms"`
	FadeMS              *int     `toml:"fade_ms"`
	AudioFormat         *string  `toml:"audio_format"`
	DecodeWorkers       *int     `toml:"decode_workers"`
	ShowTarget          *bool    `toml:"show_target"`
	ShowTransliteration *bool    `toml:"show_transliteration"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AudioRoot:     "Audio_Files",
		SourceDir:     "English",
		TargetDir:     "Chinese",
		ClipExt:       ".mp3",
		InfoFile:      "Info.txt",
		Port:          8080,
		SessionDB:     "wordrill.db",
		Passes:        5,
		Pause:         2 * time.Second,
		WordGap:       time.Second,
		EdgeFade:      5 * time.Millisecond,
		AudioFormat:   "mp3",
		DecodeWorkers: 4,
	}
}

// Load reads configuration: defaults, then the TOML file named by
// WORDRILL_CONFIG if set, then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("WORDRILL_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.AudioRoot = envStr("WORDRILL_AUDIO_ROOT", cfg.AudioRoot)
	cfg.SourceDir = envStr("WORDRILL_SOURCE_DIR", cfg.SourceDir)
	cfg.TargetDir = envStr("WORDRILL_TARGET_DIR", cfg.TargetDir)
	cfg.ClipExt = envStr("WORDRILL_CLIP_EXT", cfg.ClipExt)
	cfg.InfoFile = envStr("WORDRILL_INFO_FILE", cfg.InfoFile)

	cfg.Port = envInt("WORDRILL_PORT", cfg.Port)
	cfg.SessionDB = envStr("WORDRILL_SESSION_DB", cfg.SessionDB)

	cfg.Passes = envInt("WORDRILL_PASSES", cfg.Passes)
	cfg.Pause = ClampPause(envSeconds("WORDRILL_PAUSE_SECONDS", cfg.Pause))
	cfg.WordGap = time.Duration(envInt("WORDRILL_WORD_GAP_MS", int(cfg.WordGap/time.Millisecond))) * time.Millisecond
	cfg.EdgeFade = time.Duration(envInt("WORDRILL_FADE_MS", int(cfg.EdgeFade/time.Millisecond))) * time.Millisecond
	cfg.AudioFormat = envStr("WORDRILL_AUDIO_FORMAT", cfg.AudioFormat)
	cfg.DecodeWorkers = envInt("WORDRILL_DECODE_WORKERS", cfg.DecodeWorkers)

	cfg.ShowTarget = envBool("WORDRILL_SHOW_TARGET", cfg.ShowTarget)
	cfg.ShowTransliteration = envBool("WORDRILL_SHOW_TRANSLIT", cfg.ShowTransliteration)

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setStr(&c.AudioRoot, fc.AudioRoot)
	setStr(&c.SourceDir, fc.SourceDir)
	setStr(&c.TargetDir, fc.TargetDir)
	setStr(&c.ClipExt, fc.ClipExt)
	setStr(&c.InfoFile, fc.InfoFile)
	setInt(&c.Port, fc.Port)
	setStr(&c.SessionDB, fc.SessionDB)
	setInt(&c.Passes, fc.Passes)
	if fc.PauseSeconds != nil {
		c.Pause = ClampPause(SecondsToDuration(decimal.NewFromFloat(*fc.PauseSeconds)))
	}
	if fc.WordGapMS != nil {
		c.WordGap = time.Duration(*fc.WordGapMS) * time.Millisecond
	}
	if fc.FadeMS != nil {
		c.EdgeFade = time.Duration(*fc.FadeMS) * time.Millisecond
	}
	setStr(&c.AudioFormat, fc.AudioFormat)
	setInt(&c.DecodeWorkers, fc.DecodeWorkers)
	if fc.ShowTarget != nil {
		c.ShowTarget = *fc.ShowTarget
	}
	if fc.ShowTransliteration != nil {
		c.ShowTransliteration = *fc.ShowTransliteration
	}
	return nil
}

// Validate rejects settings the composer cannot run with.
func (c Config) Validate() error {
	if c.Passes < 1 {
		return fmt.Errorf("passes must be at least 1, got %d", c.Passes)
	}
	if c.WordGap < 0 {
		return fmt.Errorf("word gap must not be negative, got %v", c.WordGap)
	}
	if c.EdgeFade < 0 {
		return fmt.Errorf("fade must not be negative, got %v", c.EdgeFade)
	}
	if c.DecodeWorkers < 1 {
		return fmt.Errorf("decode workers must be at least 1, got %d", c.DecodeWorkers)
	}
	switch c.AudioFormat {
	case "mp3", "wav":
	default:
		return fmt.Errorf("audio format must be mp3 or wav, got %q", c.AudioFormat)
	}
	return nil
}

// ClampPause limits a pause to the 0-5s range offered to learners.
func ClampPause(d time.Duration) time.Duration {
	if d < MinPause {
		return MinPause
	}
	if d > MaxPause {
		return MaxPause
	}
	return d
}

// SecondsToDuration converts decimal seconds to a duration, rounded to the
// millisecond.
func SecondsToDuration(sec decimal.Decimal) time.Duration {
	ms := sec.Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
	return time.Duration(ms) * time.Millisecond
}

// ParseSeconds parses a seconds string such as "2.5" without float rounding.
func ParseSeconds(s string) (time.Duration, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse seconds %q: %w", s, err)
	}
	return SecondsToDuration(d), nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseSeconds(v); err == nil {
			return d
		}
	}
	return fallback
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
