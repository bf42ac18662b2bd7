// Package composer builds bilingual drill tracks: every selected word's
// source clip, a pause, its target clip and a gap, repeated over several
// passes with the word order reshuffled after the first pass.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/wordrill/internal/audio"
	"github.com/satindergrewal/wordrill/internal/catalog"
)

// Decoder fetches one clip as interleaved 48kHz stereo PCM. A missing clip
// must be reported as a *ClipUnavailableError.
type Decoder interface {
	Decode(ctx context.Context, section, wordID string, side catalog.Side) ([]int16, error)
}

// Request describes one drill track.
type Request struct {
	Section string
	Words   []catalog.Word // canonical order, used as-is for pass 0
	Passes  int
	Pause   time.Duration // silence between source and target clip
	Gap     time.Duration // silence after the target clip
}

// Step is one (pass, word) entry of the composed timeline.
type Step struct {
	Pass   int           `json:"pass"`
	Word   string        `json:"word"`
	Offset time.Duration `json:"offset"` // start of the source clip
}

// Track is a composed drill. Data and Format are set only by Compose.
type Track struct {
	ID       string
	Section  string
	Plan     Plan
	Trace    []Step
	Samples  []int16
	Duration time.Duration
	Format   audio.Format
	Data     []byte
}

// Option configures a Composer.
type Option func(*Composer)

// WithWorkers bounds how many words are decoded concurrently.
func WithWorkers(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithEdgeFade ramps each decoded clip's edges to suppress clicks.
func WithEdgeFade(d time.Duration) Option {
	return func(c *Composer) { c.fade = d }
}

// WithRand sets the factory for the per-request random source.
func WithRand(fn func() Shuffler) Option {
	return func(c *Composer) { c.newRand = fn }
}

// WithSeed makes every request shuffle from the same PCG seed.
func WithSeed(seed uint64) Option {
	return WithRand(func() Shuffler {
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	})
}

// Composer holds only immutable configuration; concurrent calls share nothing.
type Composer struct {
	decoder Decoder
	encoder audio.Encoder
	workers int
	fade    time.Duration
	newRand func() Shuffler
}

// New creates a composer. enc may be nil if only Assemble is used.
func New(dec Decoder, enc audio.Encoder, opts ...Option) *Composer {
	c := &Composer{
		decoder: dec,
		encoder: enc,
		workers: 4,
		newRand: func() Shuffler {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose assembles the track and encodes it for delivery.
func (c *Composer) Compose(ctx context.Context, req Request) (*Track, error) {
	if c.encoder == nil {
		return nil, errors.New("composer has no encoder")
	}
	t, err := c.Assemble(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := c.encoder.Encode(ctx, t.Samples)
	if err != nil {
		return nil, fmt.Errorf("encode track: %w", err)
	}
	t.Data = data
	t.Format = c.encoder.Format()
	return t, nil
}

// Assemble decodes every selected clip and lays out the PCM timeline
// without encoding it.
func (c *Composer) Assemble(ctx context.Context, req Request) (*Track, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	plan := BuildPlan(req.Words, req.Passes, c.newRand())

	clips, err := c.decodeAll(ctx, req.Section, req.Words)
	if err != nil {
		return nil, err
	}

	samples, trace := assemble(plan, clips, req.Pause, req.Gap)
	t := &Track{
		ID:       uuid.NewString(),
		Section:  req.Section,
		Plan:     plan,
		Trace:    trace,
		Samples:  samples,
		Duration: audio.DurationOf(len(samples)),
	}
	log.Printf("Composed track %s: section=%q words=%d passes=%d duration=%v",
		t.ID, req.Section, len(req.Words), req.Passes, t.Duration)
	return t, nil
}

func validate(req Request) error {
	if len(req.Words) == 0 {
		return ErrEmptySelection
	}
	if req.Passes < 1 {
		return fmt.Errorf("%w: passes must be at least 1, got %d", ErrInvalidRequest, req.Passes)
	}
	if req.Pause < 0 || req.Gap < 0 {
		return fmt.Errorf("%w: pause and gap must not be negative", ErrInvalidRequest)
	}
	return nil
}

type clipPair struct {
	source []int16
	target []int16
}

// decodeAll decodes each distinct word once, fanning out across workers.
// When several words fail, the earliest one in canonical order is reported.
func (c *Composer) decodeAll(ctx context.Context, section string, words []catalog.Word) (map[string]clipPair, error) {
	var ids []string
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if !seen[w.ID] {
			seen[w.ID] = true
			ids = append(ids, w.ID)
		}
	}

	pairs := make([]clipPair, len(ids))
	errs := make([]error, len(ids))

	// A failing word must not cancel its siblings, or an earlier word still
	// decoding would record a cancellation instead of its own failure.
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, id := range ids {
		g.Go(func() error {
			src, err := c.decodeClip(ctx, section, id, catalog.Source)
			if err != nil {
				errs[i] = err
				return err
			}
			tgt, err := c.decodeClip(ctx, section, id, catalog.Target)
			if err != nil {
				errs[i] = err
				return err
			}
			pairs[i] = clipPair{source: src, target: tgt}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if errors.Is(e, ErrClipUnavailable) {
				return nil, e
			}
		}
		return nil, err
	}

	out := make(map[string]clipPair, len(ids))
	for i, id := range ids {
		out[id] = pairs[i]
	}
	return out, nil
}

func (c *Composer) decodeClip(ctx context.Context, section, id string, side catalog.Side) ([]int16, error) {
	samples, err := c.decoder.Decode(ctx, section, id, side)
	if err != nil {
		if errors.Is(err, ErrClipUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("decode %s clip %q: %w", side, id, err)
	}
	// Keep whole stereo frames only.
	samples = samples[:len(samples)-len(samples)%audio.Channels]
	audio.ApplyEdgeFade(samples, c.fade)
	return samples, nil
}

// assemble concatenates source, pause, target, gap for every plan step in order.
func assemble(plan Plan, clips map[string]clipPair, pause, gap time.Duration) ([]int16, []Step) {
	pauseN := audio.SamplesFor(pause)
	gapN := audio.SamplesFor(gap)

	total := 0
	for _, pass := range plan {
		for _, w := range pass {
			p := clips[w.ID]
			total += len(p.source) + pauseN + len(p.target) + gapN
		}
	}

	samples := make([]int16, 0, total)
	trace := make([]Step, 0, plan.Steps())
	for i, pass := range plan {
		for _, w := range pass {
			p := clips[w.ID]
			trace = append(trace, Step{Pass: i, Word: w.ID, Offset: audio.DurationOf(len(samples))})
			samples = append(samples, p.source...)
			samples = append(samples, make([]int16, pauseN)...)
			samples = append(samples, p.target...)
			samples = append(samples, make([]int16, gapN)...)
		}
	}
	return samples, trace
}
