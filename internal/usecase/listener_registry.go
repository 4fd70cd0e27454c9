package usecase

import (
	"sync"

	"quillchat/internal/domain/repository"
	"quillchat/internal/infrastructure/metrics"
)

// ListenerRegistry holds at most one attached listener per key.
type ListenerRegistry struct {
	kind      string
	mu        sync.Mutex
	listeners map[string]repository.Unsubscribe
}

func NewListenerRegistry(kind string) *ListenerRegistry {
	return &ListenerRegistry{
		kind:      kind,
		listeners: make(map[string]repository.Unsubscribe),
	}
}

// Attach calls subscribe and keeps its handle unless key already has a
// listener. It reports whether a listener was attached.
func (r *ListenerRegistry) Attach(key string, subscribe func() repository.Unsubscribe) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listeners[key]; ok {
		return false
	}
	r.listeners[key] = subscribe()
	metrics.IncListeners(r.kind)
	return true
}

// Detach disposes the listener of key, if any.
func (r *ListenerRegistry) Detach(key string) bool {
	r.mu.Lock()
	unsubscribe, ok := r.listeners[key]
	delete(r.listeners, key)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	metrics.DecListeners(r.kind)
	return true
}

// DetachAll disposes every listener and returns how many there were.
func (r *ListenerRegistry) DetachAll() int {
	r.mu.Lock()
	listeners := r.listeners
	r.listeners = make(map[string]repository.Unsubscribe)
	r.mu.Unlock()

	for _, unsubscribe := range listeners {
		if unsubscribe != nil {
			unsubscribe()
		}
		metrics.DecListeners(r.kind)
	}
	return len(listeners)
}

func (r *ListenerRegistry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.listeners[key]
	return ok
}

func (r *ListenerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
