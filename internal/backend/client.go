package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/sessions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
)

// DefaultRefreshMargin is how close to expiry a stored session is refreshed.
const DefaultRefreshMargin = 30 * time.Second

// Options configure a Client.
type Options struct {
	StorageKey    string
	Storage       Storage
	Verifier      Verifier
	RefreshMargin time.Duration
}

// Client is the per-browser view of the hosted service: it persists the
// current session, refreshes it, and tells subscribers about transitions.
// Listeners run synchronously inside the call that caused the transition.
type Client struct {
	api      API
	storage  Storage
	key      string
	verifier Verifier
	margin   time.Duration

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	verified  string

	refreshMu sync.Mutex
}

// NewClient creates a client over api.
func NewClient(api API, opts Options) *Client {
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = DefaultRefreshMargin
	}
	if opts.Storage == nil {
		opts.Storage = sessions.NewMemoryRepository()
	}
	if opts.StorageKey == "" {
		opts.StorageKey = StorageKey("local", "")
	}
	return &Client{
		api:       api,
		storage:   opts.Storage,
		key:       opts.StorageKey,
		verifier:  opts.Verifier,
		margin:    opts.RefreshMargin,
		listeners: map[int]Listener{},
	}
}

// Subscription is the handle returned by OnAuthStateChange.
type Subscription struct {
	once   sync.Once
	client *Client
	id     int
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.mu.Lock()
		delete(s.client.listeners, s.id)
		s.client.mu.Unlock()
	})
}

// OnAuthStateChange registers l for future auth-state transitions.
func (c *Client) OnAuthStateChange(l Listener) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners[c.nextID] = l
	return &Subscription{client: c, id: c.nextID}
}

// SignInWithPassword exchanges credentials for a session and stores it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.api.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.save(ctx, s); err != nil {
		return nil, err
	}
	c.notify(ctx, EventSignedIn, s)
	return s, nil
}

// SignUp creates an account. The session is stored only when the service
// returned one.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	res, err := c.api.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		if err := c.save(ctx, res.Session); err != nil {
			return nil, err
		}
		c.notify(ctx, EventSignedIn, res.Session)
	}
	return res, nil
}

// SignOut revokes the stored session and removes it. Without a stored
// session it does nothing. A session the service no longer knows counts as
// signed out; transport failures leave the local session in place.
func (c *Client) SignOut(ctx context.Context) error {
	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if err := c.api.Logout(ctx, s.AccessToken); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return err
		}
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			logger.Debugf("sign out: session already gone (%d)", apiErr.Status)
		default:
			return err
		}
	}
	if err := c.remove(ctx); err != nil {
		return err
	}
	c.notify(ctx, EventSignedOut, nil)
	return nil
}

// GetSession returns the stored session, refreshing it when it is about to
// expire. It returns nil when nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	s, err := c.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if s.ExpiresWithin(c.margin, time.Now()) {
		return c.refresh(ctx, s)
	}
	if err := c.verify(ctx, s); err != nil {
		logger.Warnf("stored session rejected by verifier: %v", err)
		if err := c.remove(ctx); err != nil {
			return nil, err
		}
		c.notify(ctx, EventSignedOut, nil)
		return nil, nil
	}
	return s, nil
}

// ProfileByID returns the profiles row of the given user, or nil.
func (c *Client) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return c.api.SelectProfile(ctx, c.accessToken(ctx), "id", id)
}

// ProfileByEmail returns the profiles row matching email, or nil.
func (c *Client) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return c.api.SelectProfile(ctx, c.accessToken(ctx), "email", email)
}

func (c *Client) refresh(ctx context.Context, stale *Session) (*Session, error) {
	c.refreshMu.Lock()
	cur, err := c.load(ctx)
	if err != nil || cur == nil {
		c.refreshMu.Unlock()
		return nil, err
	}
	if cur.RefreshToken != stale.RefreshToken && !cur.ExpiresWithin(c.margin, time.Now()) {
		// refreshed by a concurrent caller
		c.refreshMu.Unlock()
		return cur, nil
	}
	next, err := c.api.RefreshGrant(ctx, cur.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			c.refreshMu.Unlock()
			if time.Now().Before(cur.Expiry()) {
				logger.Warnf("token refresh failed, keeping current session: %v", err)
				return cur, nil
			}
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		rmErr := c.remove(ctx)
		c.refreshMu.Unlock()
		if rmErr != nil {
			return nil, rmErr
		}
		c.notify(ctx, EventSignedOut, nil)
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if err := c.save(ctx, next); err != nil {
		c.refreshMu.Unlock()
		return nil, err
	}
	c.refreshMu.Unlock()
	c.notify(ctx, EventTokenRefreshed, next)
	return next, nil
}

func (c *Client) verify(ctx context.Context, s *Session) error {
	if c.verifier == nil {
		return nil
	}
	c.mu.Lock()
	done := c.verified == s.AccessToken
	c.mu.Unlock()
	if done {
		return nil
	}
	if _, err := c.verifier.Verify(ctx, s.AccessToken); err != nil {
		return err
	}
	c.mu.Lock()
	c.verified = s.AccessToken
	c.mu.Unlock()
	return nil
}

func (c *Client) accessToken(ctx context.Context) string {
	s, err := c.load(ctx)
	if err != nil || s == nil {
		return ""
	}
	return s.AccessToken
}

func (c *Client) notify(ctx context.Context, event Event, s *Session) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, c.listeners[id])
	}
	c.mu.Unlock()

	logger.Debugf("auth event %s user=%q listeners=%d", event, s.UserID(), len(ls))
	for _, l := range ls {
		l(ctx, event, s)
	}
}

func (c *Client) load(ctx context.Context) (*Session, error) {
	b, err := c.storage.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		logger.Warnf("discarding unreadable session under %s: %v", c.key, err)
		_ = c.storage.Delete(ctx, c.key)
		return nil, nil
	}
	return &s, nil
}

func (c *Client) save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.storage.Set(ctx, c.key, b); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) remove(ctx context.Context) error {
	if err := c.storage.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
