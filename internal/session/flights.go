package session

import (
	"context"
	"sync"
)

// Flow names one user-triggered request stream within a session.
type Flow string

const (
	FlowPlan    Flow = "plan"
	FlowMenus   Flow = "menus"
	FlowConfirm Flow = "confirm"
	FlowFoods   Flow = "foods"
)

type flightKey struct {
	sessionID string
	flow      Flow
}

type flight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Flights numbers the requests of every (session, flow) pair. Starting a new
// request cancels the one still in flight for the same pair, and only the
// latest generation may apply its result.
type Flights struct {
	mu      sync.Mutex
	flights map[flightKey]*flight
}

func NewFlights() *Flights {
	return &Flights{flights: make(map[flightKey]*flight)}
}

// Begin registers a new request and returns its context, its generation and
// a release func that must be called when the request is finished.
func (f *Flights) Begin(ctx context.Context, sessionID string, flow Flow) (context.Context, uint64, func()) {
	key := flightKey{sessionID: sessionID, flow: flow}
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	fl, ok := f.flights[key]
	if !ok {
		fl = &flight{}
		f.flights[key] = fl
	}
	if fl.cancel != nil {
		fl.cancel()
	}
	fl.gen++
	fl.cancel = cancel
	gen := fl.gen
	f.mu.Unlock()

	release := func() {
		f.mu.Lock()
		if cur, ok := f.flights[key]; ok && cur.gen == gen {
			cur.cancel = nil
		}
		f.mu.Unlock()
		cancel()
	}
	return ctx, gen, release
}

// IsCurrent reports whether gen is still the latest request of the pair.
func (f *Flights) IsCurrent(sessionID string, flow Flow, gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flights[flightKey{sessionID: sessionID, flow: flow}]
	return ok && fl.gen == gen
}

// SessionIDs lists the sessions that have at least one tracked flow.
func (f *Flights) SessionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for key := range f.flights {
		if !seen[key.sessionID] {
			seen[key.sessionID] = true
			ids = append(ids, key.sessionID)
		}
	}
	return ids
}

// Len is the number of tracked (session, flow) pairs.
func (f *Flights) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flights)
}

// Forget cancels and drops every flow of a session.
func (f *Flights) Forget(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, fl := range f.flights {
		if key.sessionID != sessionID {
			continue
		}
		if fl.cancel != nil {
			fl.cancel()
		}
		delete(f.flights, key)
	}
}
