package local

import (
	"context"
	"fmt"
	"sync"
)

// State of the lazily loaded model.
type State int

// Model load states.
const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// handle loads the model once on first use. Concurrent callers wait for the running load.
// A failed load leaves the handle in StateFailed and the next call retries.
type handle struct {
	load func() (*Model, error)

	mu    sync.Mutex
	state State
	model *Model
	err   error
	done  chan struct{} // closed when the current load finishes
}

func newHandle(load func() (*Model, error)) *handle {
	return &handle{load: load}
}

func (h *handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *handle) Get(ctx context.Context) (*Model, error) {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		m := h.model
		h.mu.Unlock()
		return m, nil

	case StateLoading:
		done := h.done
		h.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.state == StateReady {
			return h.model, nil
		}
		return nil, h.err

	default:
		h.state = StateLoading
		h.done = make(chan struct{})
		done := h.done
		h.mu.Unlock()

		return h.runLoad(done)
	}
}

// runLoad runs the loader and publishes its outcome. A panicking loader counts
// as a failed load so waiters are released and the next call retries.
func (h *handle) runLoad(done chan struct{}) (m *Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("load model: panic: %v", r)
		}
		h.mu.Lock()
		if err != nil {
			h.state, h.err = StateFailed, err
		} else {
			h.state, h.model, h.err = StateReady, m, nil
		}
		close(done)
		h.mu.Unlock()
	}()
	return h.load()
}
