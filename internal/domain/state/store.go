package state

import (
	"sync"
)

// Store holds the current State and serializes every transition through Reduce.
type Store struct {
	dispatchMu sync.Mutex
	mu         sync.RWMutex
	state      State

	subscribers map[int]func(State)
	nextSubID   int
	onDispatch  func(Action)
}

// NewStore creates a store starting from initial. onDispatch, if not nil, is
// called with every action before it is reduced.
func NewStore(initial State, onDispatch func(Action)) *Store {
	return &Store{
		state:       initial,
		subscribers: make(map[int]func(State)),
		onDispatch:  onDispatch,
	}
}

// Dispatch reduces action into the store and notifies subscribers with the
// new state. Subscribers must not call Dispatch.
func (s *Store) Dispatch(action Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if s.onDispatch != nil {
		s.onDispatch(action)
	}

	s.mu.Lock()
	next := Reduce(s.state, action)
	s.state = next
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for state changes and returns its disposer.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}
