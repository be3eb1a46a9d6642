// Package portal keeps one auth client per browser. A browser is identified
// by an opaque cookie; its backend session is persisted under a storage key
// derived from that id, so an evicted client is restored on the next visit.
package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/sessions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"github.com/google/uuid"
)

var ErrClosed = errors.New("portal registry closed")

const (
	DefaultIdleTTL      = 30 * time.Minute
	DefaultReadyTimeout = 5 * time.Second
	notificationLimit   = 10
)

// Client is the per-browser bundle: backend client, session manager, facade
// and pending notifications.
type Client struct {
	ID      string
	Backend *backend.Client
	Manager *auth.Manager
	Facade  *auth.Facade
	Notes   *notify.Queue

	lastSeen atomic.Int64
}

// Touch records activity.
func (c *Client) Touch(now time.Time) { c.lastSeen.Store(now.UnixNano()) }

// LastSeen returns the time of the last Touch.
func (c *Client) LastSeen() time.Time { return time.Unix(0, c.lastSeen.Load()) }

// Options configures how clients are built.
type Options struct {
	API        backend.API
	Storage    backend.Storage
	ProjectRef string
	Verifier   backend.Verifier
	// Profiles replaces the REST profile lookups when set.
	Profiles       auth.ProfileSource
	DuplicateCheck bool
	IdleTTL        time.Duration
	ReadyTimeout   time.Duration
}

// Registry owns every live Client.
type Registry struct {
	opts   Options
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

func NewRegistry(opts Options) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.Storage == nil {
		opts.Storage = sessions.NewMemoryRepository()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Registry{opts: opts, base: base, cancel: cancel, clients: map[string]*Client{}}
}

// NewClientID returns a fresh cookie value.
func NewClientID() string { return uuid.NewString() }

// Acquire returns the client for id, creating and starting it on first use.
// A new client's initial session check is awaited for at most the ready
// timeout; callers must still consult the guard's Checking state.
func (r *Registry) Acquire(ctx context.Context, id string) (*Client, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	c, ok := r.clients[id]
	if !ok {
		c = r.build(id, nil)
		r.clients[id] = c
		metrics.ActiveClients.Set(float64(len(r.clients)))
		c.Manager.Start(r.base)
		logger.Debugf("portal client %s created", id)
	}
	c.Touch(time.Now())
	r.mu.Unlock()

	if !ok {
		r.await(ctx, c)
	}
	return c, nil
}

// Rotate moves the client for oldID, with its persisted session and pending
// notifications, to a fresh id. Afterwards oldID has no session: its client
// is closed and its storage entry removed, also when the move fails.
func (r *Registry) Rotate(ctx context.Context, oldID string) (*Client, error) {
	newID := NewClientID()

	// held across the storage move so no Acquire(oldID) can restore the
	// session before it is gone
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	old := r.clients[oldID]
	delete(r.clients, oldID)
	err := r.move(ctx, backend.StorageKey(r.opts.ProjectRef, oldID), backend.StorageKey(r.opts.ProjectRef, newID))
	var c *Client
	if err == nil {
		var q *notify.Queue
		if old != nil {
			q = old.Notes
		}
		c = r.build(newID, q)
		r.clients[newID] = c
		c.Manager.Start(r.base)
		c.Touch(time.Now())
	}
	metrics.ActiveClients.Set(float64(len(r.clients)))
	r.mu.Unlock()

	if old != nil {
		old.Manager.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("rotate portal client: %w", err)
	}
	logger.Debugf("portal client %s rotated to %s", oldID, newID)
	r.await(ctx, c)
	return c, nil
}

// move copies the stored session from one key to another and always
// deletes the source.
func (r *Registry) move(ctx context.Context, from, to string) error {
	raw, err := r.opts.Storage.Get(ctx, from)
	if err == nil && raw != nil {
		err = r.opts.Storage.Set(ctx, to, raw)
	}
	if derr := r.opts.Storage.Delete(ctx, from); err == nil {
		err = derr
	}
	if err != nil {
		if derr := r.opts.Storage.Delete(ctx, to); derr != nil {
			logger.Warnf("drop rotated session %s: %v", to, derr)
		}
	}
	return err
}

// await blocks until c's initial session check resolves, the ready timeout
// passes or ctx ends.
func (r *Registry) await(ctx context.Context, c *Client) {
	timer := time.NewTimer(r.opts.ReadyTimeout)
	defer timer.Stop()
	select {
	case <-c.Manager.Ready():
	case <-timer.C:
		logger.Warnf("portal client %s: initial session check still running after %s", c.ID, r.opts.ReadyTimeout)
	case <-ctx.Done():
	}
}

func (r *Registry) build(id string, q *notify.Queue) *Client {
	bc := backend.NewClient(r.opts.API, backend.Options{
		StorageKey: backend.StorageKey(r.opts.ProjectRef, id),
		Storage:    r.opts.Storage,
		Verifier:   r.opts.Verifier,
	})
	var profiles auth.ProfileSource = bc
	if r.opts.Profiles != nil {
		profiles = r.opts.Profiles
	}
	m := auth.NewManager(bc, profiles, r.opts.ReadyTimeout)
	if q == nil {
		q = notify.NewQueue(notificationLimit)
	}
	return &Client{
		ID:      id,
		Backend: bc,
		Manager: m,
		Facade:  auth.NewFacade(auth.NewService(bc, profiles, r.opts.DuplicateCheck), m, q),
		Notes:   q,
	}
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle since before now minus the idle TTL and returns
// how many were evicted. Their persisted sessions are kept.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.opts.IdleTTL)
	r.mu.Lock()
	var idle []*Client
	for id, c := range r.clients {
		if c.LastSeen().Before(cutoff) {
			idle = append(idle, c)
			delete(r.clients, id)
		}
	}
	metrics.ActiveClients.Set(float64(len(r.clients)))
	r.mu.Unlock()

	for _, c := range idle {
		c.Manager.Close()
	}
	if len(idle) > 0 {
		logger.Debugf("evicted %d idle portal clients", len(idle))
	}
	return len(idle)
}

// Run sweeps every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}

// Close releases every client. Acquire fails afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		all = append(all, c)
	}
	r.clients = map[string]*Client{}
	metrics.ActiveClients.Set(0)
	r.mu.Unlock()

	for _, c := range all {
		c.Manager.Close()
	}
	r.cancel()
}
