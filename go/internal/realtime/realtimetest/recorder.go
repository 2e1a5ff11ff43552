// Package realtimetest provides an in-memory Emitter for tests.
package realtimetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

// Emitted is one recorded outbound event
type Emitted struct {
	Name realtime.EventName
	Data json.RawMessage
}

// Recorder records every emitted event. Set Err to make Emit fail.
type Recorder struct {
	mu      sync.Mutex
	emitted []Emitted
	Err     error
}

func (r *Recorder) Emit(_ context.Context, name realtime.EventName, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.emitted = append(r.emitted, Emitted{Name: name, Data: data})
	return nil
}

// Events returns a copy of everything emitted so far
func (r *Recorder) Events() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Emitted, len(r.emitted))
	copy(out, r.emitted)
	return out
}

// Named returns the emitted events with the given name
func (r *Recorder) Named(name realtime.EventName) []Emitted {
	var out []Emitted
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.emitted = nil
	r.mu.Unlock()
}
