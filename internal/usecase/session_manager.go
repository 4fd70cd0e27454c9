package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quillchat/internal/domain/entity"
	"quillchat/pkg/errors"
)

// SessionFactory builds the (not yet started) session of identity.
type SessionFactory func(identity entity.Identity) *ChatUseCase

type sessionEntry struct {
	session  *ChatUseCase
	refs     int
	lastUsed time.Time
}

// SessionManager keeps one running ChatUseCase per user. Sessions held by a
// connection stay alive; the others are stopped once idle for idleTimeout.
type SessionManager struct {
	ctx         context.Context
	identities  IdentityProvider
	newSession  SessionFactory
	idleTimeout time.Duration
	now         func() time.Time

	// starting deduplicates concurrent session starts of the same uid.
	starting singleflight.Group

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	closed   bool
}

// NewSessionManager creates a manager whose sessions live at most as long as ctx.
func NewSessionManager(ctx context.Context, identities IdentityProvider, newSession SessionFactory, idleTimeout time.Duration) *SessionManager {
	return &SessionManager{
		ctx:         ctx,
		identities:  identities,
		newSession:  newSession,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Get returns the session of uid, starting it on first use.
func (m *SessionManager) Get(ctx context.Context, uid string) (*ChatUseCase, error) {
	entry, err := m.entry(ctx, uid)
	if err != nil {
		return nil, err
	}
	return entry.session, nil
}

// Acquire returns the session of uid and keeps it alive until release is called.
func (m *SessionManager) Acquire(ctx context.Context, uid string) (*ChatUseCase, func(), error) {
	entry, err := m.entry(ctx, uid)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	entry.refs++
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			entry.refs--
			entry.lastUsed = m.now()
			m.mu.Unlock()
		})
	}
	return entry.session, release, nil
}

func (m *SessionManager) lookup(uid string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[uid]
	if ok {
		entry.lastUsed = m.now()
	}
	return entry
}

// entry returns the running session of uid or starts one. Starting happens
// outside m.mu so other users are never blocked behind it.
func (m *SessionManager) entry(ctx context.Context, uid string) (*sessionEntry, error) {
	if entry := m.lookup(uid); entry != nil {
		return entry, nil
	}

	v, err, _ := m.starting.Do(uid, func() (interface{}, error) {
		if entry := m.lookup(uid); entry != nil {
			return entry, nil
		}

		identity, err := m.identities.Identity(ctx, uid)
		if err != nil {
			return nil, err
		}
		session := m.newSession(*identity)
		if err := session.Start(m.ctx); err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			session.Stop()
			return nil, errors.Internal("Chat sessions are shutting down", nil)
		}
		entry := &sessionEntry{session: session, lastUsed: m.now()}
		m.sessions[uid] = entry
		m.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sessionEntry), nil
}

// Sweep stops unreferenced sessions idle for longer than the idle timeout
// and returns how many were stopped.
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*ChatUseCase
	for uid, entry := range m.sessions {
		if entry.refs <= 0 && entry.lastUsed.Before(cutoff) {
			idle = append(idle, entry.session)
			delete(m.sessions, uid)
		}
	}
	m.mu.Unlock()

	for _, session := range idle {
		session.Stop()
	}
	return len(idle)
}

// StartSweeper runs Sweep every interval until the manager context is done.
func (m *SessionManager) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					log.Printf("Stopped %d idle chat sessions", n)
				}
			}
		}
	}()
}

// Shutdown stops every session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sessionEntry)
	m.closed = true
	m.mu.Unlock()

	for _, entry := range sessions {
		entry.session.Stop()
	}
}

// Len returns the number of running sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
