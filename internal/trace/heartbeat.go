package trace

import (
	"fmt"
	"sync"
	"time"
)

// TickSource is the part of a clock a heartbeat needs.
type TickSource interface {
	Now() uint64
}

// Heartbeat periodically emits heartbeat events while a workload runs.
// If heartbeats continue but no frame events arrive, the workload is stuck.
type Heartbeat struct {
	tracer   Tracer
	clock    TickSource
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// StartHeartbeat creates and starts a new heartbeat goroutine.
// clock must be safe to read from another goroutine.
func StartHeartbeat(tracer Tracer, clock TickSource, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		tracer:   tracer,
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
		started:  true,
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			var ticks uint64
			if h.clock != nil {
				ticks = h.clock.Now()
			}
			h.tracer.Emit(&Event{
				Ticks:    ticks,
				Seq:      NextSeq(),
				Kind:     KindHeartbeat,
				Category: CategorySession,
				Name:     "heartbeat",
				Detail:   fmt.Sprintf("#%d", seq),
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop gracefully stops the heartbeat goroutine and waits for it to finish.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.mu.Unlock()

	close(h.stopCh)
	h.wg.Wait()
}
