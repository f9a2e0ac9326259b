package session

import (
	"sync"
	"time"
)

// Timer is the per-question countdown. Starting it cancels any countdown
// already running, so at most one goroutine ticks per timer. Every start
// bumps a generation that is handed to the expiry callback, letting the
// owner drop an expiry that lost the race against a restart.
type Timer struct {
	mu       sync.Mutex
	cancel   chan struct{}
	gen      uint64
	onTick   func(remaining int)
	onExpire func(gen uint64)
}

func NewTimer(onTick func(remaining int), onExpire func(gen uint64)) *Timer {
	return &Timer{onTick: onTick, onExpire: onExpire}
}

// Start begins a fresh countdown of the given number of seconds and
// returns its generation.
func (t *Timer) Start(seconds int) uint64 {
	t.mu.Lock()
	if t.cancel != nil {
		close(t.cancel)
	}
	cancel := make(chan struct{})
	t.cancel = cancel
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.run(seconds, gen, cancel)
	return gen
}

// Stop cancels the running countdown, if any.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

func (t *Timer) run(seconds int, gen uint64, cancel chan struct{}) {
	remaining := seconds
	if t.onTick != nil {
		t.onTick(remaining)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				if t.onTick != nil {
					t.onTick(0)
				}
				if t.onExpire != nil {
					t.onExpire(gen)
				}
				return
			}
			if t.onTick != nil {
				t.onTick(remaining)
			}
		}
	}
}
