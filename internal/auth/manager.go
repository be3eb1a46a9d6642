package auth

import (
	"context"
	"sync"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
)

// SessionSource is the part of the backend client the manager observes.
type SessionSource interface {
	GetSession(ctx context.Context) (*backend.Session, error)
	OnAuthStateChange(l backend.Listener) *backend.Subscription
}

// ProfileLookup fetches the profiles row of a user.
type ProfileLookup interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
}

// Manager keeps a SessionStore in step with the backend. Once subscribed,
// listener events are authoritative: the result of the initial session check
// is dropped if any event arrived meanwhile, and an event's result is dropped
// if a newer event arrived while its profile lookup ran.
type Manager struct {
	source   SessionSource
	profiles ProfileLookup
	store    *SessionStore
	timeout  time.Duration

	mu        sync.Mutex
	seq       uint64
	started   bool
	closed    bool
	sub       *backend.Subscription
	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a manager. timeout bounds the initial session check.
func NewManager(source SessionSource, profiles ProfileLookup, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		source:   source,
		profiles: profiles,
		store:    NewSessionStore(),
		timeout:  timeout,
		ready:    make(chan struct{}),
	}
}

// View returns read-only access to the managed store.
func (m *Manager) View() View { return m.store }

// Ready is closed once the initial session check has resolved.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Start subscribes to auth-state changes, then checks for an existing
// session in the background. Calling it again does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.sub = m.source.OnAuthStateChange(m.handle)
	seq := m.seq
	m.mu.Unlock()

	go m.initialCheck(ctx, seq)
}

// Close releases the subscription and stops the initial check. It is safe
// to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sub, cancel := m.sub, m.cancel
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	m.markReady()
}

// Clear drops the local session and user, superseding any lookup in flight.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.store.set(nil, nil)
}

func (m *Manager) handle(ctx context.Context, event backend.Event, sess *backend.Session) {
	metrics.SessionEvents.WithLabelValues(string(event)).Inc()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if event == backend.EventSignedOut {
		sess = nil
	}
	user, failed := m.resolve(ctx, sess)
	if !m.apply(seq, sess, user, failed) {
		logger.Debugf("auth event %s superseded by a newer event", event)
	}
}

func (m *Manager) initialCheck(ctx context.Context, seq uint64) {
	defer m.markReady()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sess, err := m.source.GetSession(ctx)
	if err != nil {
		logger.Warnf("initial session check failed: %v", err)
		sess = nil
	}
	user, failed := m.resolve(ctx, sess)
	if !m.apply(seq, sess, user, failed) {
		logger.Debugf("initial session check discarded: listener already reported")
	}
}

// resolve derives the user for sess. failed reports a lookup error, in which
// case the caller decides whether to keep the current user.
func (m *Manager) resolve(ctx context.Context, sess *backend.Session) (*UserProfile, bool) {
	if sess == nil || sess.User == nil {
		return nil, false
	}
	row, err := m.profiles.ProfileByID(ctx, sess.User.ID)
	if err != nil {
		logger.Errorf("profile lookup for %s failed: %v", sess.User.ID, err)
		return nil, true
	}
	if row == nil {
		logger.Infof("no profile row for user %s; treating as signed out", sess.User.ID)
		return nil, false
	}
	return DeriveProfile(sess.User, row), false
}

func (m *Manager) apply(seq uint64, sess *backend.Session, user *UserProfile, failed bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || seq != m.seq {
		return false
	}
	if sess == nil {
		m.store.set(nil, nil)
		return true
	}
	if failed {
		if cur := m.store.currentUser(); cur != nil && cur.ID == sess.UserID() {
			user = cur
		}
	}
	m.store.set(sess, user)
	return true
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}
