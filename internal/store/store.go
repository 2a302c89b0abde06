// Package store combines the session, collection and statistics slices behind
// a single dispatch point.
package store

import (
	"fmt"
	"sync"

	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/session"
	"github.com/TheMichaelB/songdeck/internal/stats"
)

// State is the root application state.
type State struct {
	Session session.State
	Songs   library.State
	Stats   stats.State
}

// Initial returns the root state of a fresh store.
func Initial() State {
	return State{
		Session: session.Initial(),
		Songs:   library.Initial(),
		Stats:   stats.Initial(),
	}
}

// Reduce routes ev to every slice. Each slice ignores events it does not own.
func Reduce(s State, ev intent.Event) State {
	s.Session = session.Reduce(s.Session, ev)
	s.Songs = library.Reduce(s.Songs, ev)
	s.Stats = stats.Reduce(s.Stats, ev)
	return s
}

// Observer sees every dispatched event together with the state it produced.
// Observers run while the store is locked: they must not block or dispatch.
type Observer func(ev intent.Event, state State)

// Listener is notified with the new state after every dispatch.
type Listener func(state State)

type subscription struct {
	id int
	fn Listener
}

// Store holds the root state. Transitions are serialized, so each one sees
// the result of the previous one.
type Store struct {
	mu        sync.Mutex
	state     State
	observers []Observer
	listeners []subscription
	nextID    int

	pending   []State
	notifying bool

	logger *events.Logger
}

// New creates a store starting from initial.
func New(initial State, logger *events.Logger) *Store {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	return &Store{
		state:  initial,
		logger: logger.WithField("component", "store"),
	}
}

// Dispatch applies ev and notifies listeners. Listeners may dispatch from
// inside a notification; the nested state is delivered after the current one.
func (s *Store) Dispatch(ev intent.Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	next := s.state
	for _, obs := range s.observers {
		obs(ev, next)
	}
	s.pending = append(s.pending, next)

	if msg, ok := intent.FailureMessage(ev); ok {
		s.logger.WithFields(map[string]interface{}{
			"type":  string(ev.Type),
			"error": msg,
		}).Debug("Dispatch")
	} else {
		s.logger.WithField("type", string(ev.Type)).Debug("Dispatch")
	}

	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	s.mu.Unlock()

	s.drain()
}

// GetState returns the current state. Slices inside it must be treated as
// read-only.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for state notifications and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Observe registers an observer for all future dispatches.
func (s *Store) Observe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// drain delivers queued states in dispatch order. Only one goroutine drains
// at a time.
func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		st := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]subscription, len(s.listeners))
		copy(subs, s.listeners)
		s.mu.Unlock()

		for _, sub := range subs {
			s.notify(sub, st)
		}
	}
}

func (s *Store) notify(sub subscription, st State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithError(fmt.Errorf("listener panic: %v", r)).Error("Listener failed")
		}
	}()
	sub.fn(st)
}
