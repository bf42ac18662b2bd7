package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// SamplesFor returns the number of interleaved samples covering d.
// Partial sample frames are truncated.
func SamplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	frames := int64(d) * SampleRate / int64(time.Second)
	return int(frames) * Channels
}

// DurationOf returns the playback length of n interleaved samples.
func DurationOf(n int) time.Duration {
	frames := int64(n / Channels)
	return time.Duration(frames * int64(time.Second) / SampleRate)
}

// Silence returns d worth of zeroed interleaved samples.
func Silence(d time.Duration) []int16 {
	return make([]int16, SamplesFor(d))
}
