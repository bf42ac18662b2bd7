package audio

import "time"

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// ApplyEdgeFade ramps the first and last d of an interleaved clip in place
// using the smoothstep curve. The clip length is never changed. A ramp longer
// than half the clip is shortened to half the clip.
func ApplyEdgeFade(samples []int16, d time.Duration) {
	total := len(samples) / Channels
	rampFrames := SamplesFor(d) / Channels
	if rampFrames > total/2 {
		rampFrames = total / 2
	}
	if rampFrames == 0 {
		return
	}

	for i := 0; i < rampFrames; i++ {
		gain := Smoothstep(float64(i) / float64(rampFrames))
		head := i * Channels
		tail := (total - 1 - i) * Channels
		for c := 0; c < Channels; c++ {
			samples[head+c] = scale(samples[head+c], gain)
			samples[tail+c] = scale(samples[tail+c], gain)
		}
	}
}

func scale(s int16, gain float64) int16 {
	v := float64(s) * gain
	// Clip to int16 range
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
