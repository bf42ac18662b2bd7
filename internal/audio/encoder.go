package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"
)

// Format is the container a composed track is delivered in.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP3:
		return FormatMP3, nil
	case FormatWAV:
		return FormatWAV, nil
	}
	return "", fmt.Errorf("unsupported audio format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatWAV:
		return "audio/wav"
	}
	return "application/octet-stream"
}

// Encoder turns interleaved 48kHz stereo PCM into a deliverable container.
type Encoder interface {
	Encode(ctx context.Context, samples []int16) ([]byte, error)
	Format() Format
}

// NewEncoder returns the encoder for the given format.
func NewEncoder(f Format) (Encoder, error) {
	switch f {
	case FormatMP3:
		return &MP3Encoder{Bitrate: "192k"}, nil
	case FormatWAV:
		return WAVEncoder{}, nil
	}
	return nil, fmt.Errorf("unsupported audio format %q", f)
}

// MP3Encoder pipes PCM through FFmpeg's libmp3lame.
type MP3Encoder struct {
	Bitrate string
}

func (e *MP3Encoder) Format() Format { return FormatMP3 }

func (e *MP3Encoder) Encode(ctx context.Context, samples []int16) ([]byte, error) {
	// FFmpeg: PCM stdin -> MP3 stdout
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", e.Bitrate,
		"-f", "mp3",
		"-loglevel", "error",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(SamplesToBytes(samples))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg encode mp3: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// WAVEncoder writes a canonical 44-byte RIFF header followed by the PCM data.
type WAVEncoder struct{}

func (WAVEncoder) Format() Format { return FormatWAV }

func (WAVEncoder) Encode(_ context.Context, samples []int16) ([]byte, error) {
	dataLen := uint32(len(samples) * 2)
	blockAlign := uint16(Channels * BitDepth / 8)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataLen))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate)*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(BitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(SamplesToBytes(samples))
	return buf.Bytes(), nil
}
