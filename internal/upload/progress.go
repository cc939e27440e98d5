package upload

import (
	"sync"
	"time"
)

// SyntheticProgress is the UX simulation of submission progress: while
// the webhook response is pending the percentage creeps upward, capped
// at 95, then jumps to 100 when the real response lands. It is not a
// measured value and is deliberately kept apart from real transfer
// progress so tests can tell the two apart.
type SyntheticProgress struct {
	mu      sync.Mutex
	current int
	done    bool
	stop    chan struct{}
	stopped sync.Once
}

// StartSyntheticProgress begins nudging progress upward every interval,
// reporting through onTick. Call Finish when the awaited response
// arrives, or Abort to stop without completing.
func StartSyntheticProgress(interval time.Duration, step int, onTick func(int)) *SyntheticProgress {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if step <= 0 {
		step = 2
	}
	p := &SyntheticProgress{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if p.done {
					p.mu.Unlock()
					return
				}
				if p.current < 95 {
					p.current += step
					if p.current > 95 {
						p.current = 95
					}
				}
				v := p.current
				p.mu.Unlock()
				if onTick != nil {
					onTick(v)
				}
			}
		}
	}()

	return p
}

// Current returns the last synthesized percentage.
func (p *SyntheticProgress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish completes the simulation at 100.
func (p *SyntheticProgress) Finish(onTick func(int)) {
	p.mu.Lock()
	p.done = true
	p.current = 100
	p.mu.Unlock()
	p.stopped.Do(func() { close(p.stop) })
	if onTick != nil {
		onTick(100)
	}
}

// Abort stops the ticker without reaching 100.
func (p *SyntheticProgress) Abort() {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	p.stopped.Do(func() { close(p.stop) })
}
