package audio

import (
	"context"
	"sync"
	"time"
)

// Player paces a finished PCM track out as 20ms frames at real-time rate.
// The final partial frame is zero-padded so every frame is FrameSamples long.
type Player struct {
	samples []int16
	frameCh chan []int16
	stopCh  chan struct{}
	once    sync.Once

	mu       sync.RWMutex
	position time.Duration
}

// NewPlayer creates a player over the given interleaved samples.
func NewPlayer(samples []int16) *Player {
	return &Player{
		samples: samples,
		frameCh: make(chan []int16, 100),
		stopCh:  make(chan struct{}),
	}
}

// Frames returns the channel of outgoing PCM frames. It is closed when the
// track ends, Stop is called, or the context passed to Run is cancelled.
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// TotalFrames is the number of frames Run will emit.
func (p *Player) TotalFrames() int {
	return (len(p.samples) + FrameSamples - 1) / FrameSamples
}

// Stop ends playback early. Safe to call more than once.
func (p *Player) Stop() {
	p.once.Do(func() { close(p.stopCh) })
}

// Status returns the current playback position and total duration.
func (p *Player) Status() (position, duration time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position, time.Duration(p.TotalFrames()) * FrameDuration
}

// Run emits every frame and blocks until playback finishes or is stopped.
func (p *Player) Run(ctx context.Context) {
	p.run(ctx, time.NewTicker(FrameDuration))
}

func (p *Player) run(ctx context.Context, ticker *time.Ticker) {
	defer close(p.frameCh)
	defer ticker.Stop()

	total := p.TotalFrames()
	for i := 0; i < total; i++ {
		if !p.sendFrame(ctx, ticker, p.frame(i)) {
			return
		}
		p.updatePosition(i + 1)
	}
}

func (p *Player) frame(i int) []int16 {
	start := i * FrameSamples
	end := start + FrameSamples
	if end <= len(p.samples) {
		return p.samples[start:end]
	}
	frame := make([]int16, FrameSamples)
	copy(frame, p.samples[start:])
	return frame
}

// sendFrame waits for the ticker then sends a frame. Returns false on stop or cancel.
func (p *Player) sendFrame(ctx context.Context, ticker *time.Ticker, frame []int16) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.stopCh:
		return false
	case <-ticker.C:
	}

	select {
	case p.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	case <-p.stopCh:
		return false
	}
}

func (p *Player) updatePosition(frames int) {
	p.mu.Lock()
	p.position = time.Duration(frames) * FrameDuration
	p.mu.Unlock()
}
