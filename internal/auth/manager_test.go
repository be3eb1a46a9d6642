package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSource holds the initial GetSession call until released.
type gatedSource struct {
	*backend.Client
	entered chan struct{}
	release chan *backend.Session
	once    sync.Once
}

func newGatedSource(c *backend.Client) *gatedSource {
	return &gatedSource{Client: c, entered: make(chan struct{}), release: make(chan *backend.Session, 1)}
}

func (g *gatedSource) GetSession(ctx context.Context) (*backend.Session, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case s := <-g.release:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestManager_RestoresExistingSession(t *testing.T) {
	api := newFlakyAPI(true)
	seed(t, api.MemoryAPI, adaRegistration())
	client := backend.NewClient(api, backend.Options{})
	_, err := client.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	m := NewManager(client, client, time.Second)
	assert.Nil(t, m.View().User())
	m.Start(context.Background())
	defer m.Close()
	waitReady(t, m)

	u := m.View().User()
	require.NotNil(t, u)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, RoleTeacher, u.Role)
	assert.Equal(t, "TCH1", u.StaffID)
	assert.True(t, m.View().IsAuthenticated())
}

func TestManager_SignInEventIsVisibleOnReturn(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, bobRegistration())

	sess, err := h.client.SignInWithPassword(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)

	u := h.manager.View().User()
	require.NotNil(t, u)
	assert.Equal(t, sess.User.ID, u.ID)
	assert.Equal(t, "CSC/2021/014", u.MatricNumber)
	assert.Equal(t, sess.AccessToken, h.manager.View().Session().AccessToken)
}

func TestManager_ListenerWinsOverInitialCheck(t *testing.T) {
	api := newFlakyAPI(true)
	seed(t, api.MemoryAPI, adaRegistration())
	client := backend.NewClient(api, backend.Options{})
	src := newGatedSource(client)

	m := NewManager(src, client, time.Second)
	m.Start(context.Background())
	defer m.Close()
	<-src.entered

	_, err := client.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, m.View().User())

	// the stale "nobody signed in" answer arrives afterwards and is dropped
	src.release <- nil
	waitReady(t, m)
	u := m.View().User()
	require.NotNil(t, u)
	assert.Equal(t, "Ada Lovelace", u.Name)
}

func TestManager_SignOutAfterInitialCheckStarted(t *testing.T) {
	api := newFlakyAPI(true)
	seed(t, api.MemoryAPI, adaRegistration())
	client := backend.NewClient(api, backend.Options{})
	sess, err := client.SignInWithPassword(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	src := newGatedSource(client)

	m := NewManager(src, client, time.Second)
	m.Start(context.Background())
	defer m.Close()
	<-src.entered

	require.NoError(t, client.SignOut(context.Background()))
	src.release <- sess
	waitReady(t, m)
	assert.Nil(t, m.View().User())
	assert.Nil(t, m.View().Session())
}

func TestManager_MissingProfileRow(t *testing.T) {
	h := newHarness(t)
	u := seed(t, h.api.MemoryAPI, bobRegistration())
	h.api.DeleteProfile(u.ID)

	_, err := h.client.SignInWithPassword(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)

	assert.NotNil(t, h.manager.View().Session(), "session is kept")
	assert.Nil(t, h.manager.View().User())
	assert.False(t, h.manager.View().IsAuthenticated())
}

func TestManager_LookupFailureKeepsSameUser(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, adaRegistration())
	seed(t, h.api.MemoryAPI, bobRegistration())
	ctx := context.Background()

	_, err := h.client.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	first := h.manager.View().Session().AccessToken

	h.api.setProfileErr(errOffline)
	_, err = h.client.SignInWithPassword(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	u := h.manager.View().User()
	require.NotNil(t, u)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.NotEqual(t, first, h.manager.View().Session().AccessToken)

	// a different account cannot borrow the previous profile
	_, err = h.client.SignInWithPassword(ctx, "bob@example.com", "secret2")
	require.NoError(t, err)
	assert.Nil(t, h.manager.View().User())
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, bobRegistration())

	h.manager.Close()
	h.manager.Close()

	_, err := h.client.SignInWithPassword(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)
	assert.Nil(t, h.manager.View().User(), "closed manager no longer follows events")
	assert.Equal(t, 0, h.api.Calls("profile"))
}

func TestManager_CloseBeforeReady(t *testing.T) {
	client := backend.NewClient(newFlakyAPI(true), backend.Options{})
	src := newGatedSource(client)
	m := NewManager(src, client, time.Minute)
	m.Start(context.Background())
	<-src.entered

	m.Close()
	waitReady(t, m)
	src.release <- nil
}

func TestManager_ClearSupersedesState(t *testing.T) {
	h := newHarness(t)
	seed(t, h.api.MemoryAPI, bobRegistration())
	_, err := h.client.SignInWithPassword(context.Background(), "bob@example.com", "secret2")
	require.NoError(t, err)
	require.True(t, h.manager.View().IsAuthenticated())

	h.manager.Clear()
	assert.False(t, h.manager.View().IsAuthenticated())
	assert.Nil(t, h.manager.View().Session())
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	s := NewSessionStore()
	s.set(&backend.Session{AccessToken: "a"}, &UserProfile{ID: "u", Name: "Ada"})

	u := s.User()
	u.Name = "changed"
	sess := s.Session()
	sess.AccessToken = "changed"

	assert.Equal(t, "Ada", s.User().Name)
	assert.Equal(t, "a", s.Session().AccessToken)
}
