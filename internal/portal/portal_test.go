package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/notify"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/sessions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *backend.MemoryAPI, *sessions.MemoryRepository) {
	t.Helper()
	api := backend.NewMemoryAPI(tokens.NewSigner("portal-test-secret-xxxxxxxxxxxxxxxx", "memory"), time.Hour, true)
	_, err := api.SignUp(context.Background(), backend.SignUpRequest{
		Email:    "bob@example.com",
		Password: "secret2",
		Data:     map[string]interface{}{"name": "Bob Student", "role": "student", "level": "200L"},
	})
	require.NoError(t, err)
	store := sessions.NewMemoryRepository()
	r := NewRegistry(Options{API: api, Storage: store, ProjectRef: "test", IdleTTL: time.Minute, ReadyTimeout: time.Second})
	t.Cleanup(r.Close)
	return r, api, store
}

func TestAcquire_ReusesClientPerID(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	a, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	again, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.Same(t, a, again)

	b, err := r.Acquire(ctx, "b")
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, 2, r.Len())
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.ActiveClients))

	select {
	case <-a.Manager.Ready():
	default:
		t.Fatal("acquire returned before the initial check resolved")
	}
}

func TestAcquire_ClientsAreIsolated(t *testing.T) {
	r, _, store := newRegistry(t)
	ctx := context.Background()

	a, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	b, err := r.Acquire(ctx, "b")
	require.NoError(t, err)

	require.True(t, a.Facade.Login(ctx, "bob@example.com", "secret2", auth.RoleStudent))
	assert.True(t, a.Facade.IsAuthenticated())
	assert.False(t, b.Facade.IsAuthenticated())

	raw, err := store.Get(ctx, backend.StorageKey("test", "a"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestSweep_EvictsIdleAndRestoresLater(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	a, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, a.Facade.Login(ctx, "bob@example.com", "secret2", auth.RoleStudent))
	_, err = r.Acquire(ctx, "b")
	require.NoError(t, err)

	require.Zero(t, r.Sweep(time.Now()))
	require.Equal(t, 2, r.Sweep(time.Now().Add(2*time.Minute)))
	require.Zero(t, r.Len())

	// the evicted manager no longer follows its backend client
	require.NoError(t, a.Backend.SignOut(ctx))
	assert.True(t, a.Facade.IsAuthenticated())

	restored, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.NotSame(t, a, restored)
	assert.False(t, restored.Facade.IsAuthenticated(), "sign-out through the old client removed the stored session")
}

func TestSweep_RestoresPersistedSession(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	a, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, a.Facade.Login(ctx, "bob@example.com", "secret2", auth.RoleStudent))
	require.Equal(t, 1, r.Sweep(time.Now().Add(time.Hour)))

	restored, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	u := restored.Facade.User()
	require.NotNil(t, u)
	assert.Equal(t, "Bob Student", u.Name)
	assert.Equal(t, "200L", u.Level)
}

func TestRotate_MovesSessionAndNotes(t *testing.T) {
	r, _, store := newRegistry(t)
	ctx := context.Background()

	old, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, old.Facade.Login(ctx, "bob@example.com", "secret2", auth.RoleStudent))
	old.Notes.Notify(notify.Success("Login successful", "Welcome back"))

	next, err := r.Rotate(ctx, "a")
	require.NoError(t, err)
	require.NotEqual(t, "a", next.ID)
	require.Equal(t, 1, r.Len())
	require.NotNil(t, next.Facade.User())
	assert.Equal(t, "Bob Student", next.Facade.User().Name)
	assert.Len(t, next.Notes.Drain(), 1)

	raw, err := store.Get(ctx, backend.StorageKey("test", "a"))
	require.NoError(t, err)
	assert.Nil(t, raw)
	raw, err = store.Get(ctx, backend.StorageKey("test", next.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	again, err := r.Acquire(ctx, "a")
	require.NoError(t, err)
	require.NotSame(t, old, again)
	assert.False(t, again.Facade.IsAuthenticated())

	same, err := r.Acquire(ctx, next.ID)
	require.NoError(t, err)
	require.Same(t, next, same)
}

// failingSetStorage rejects every write.
type failingSetStorage struct {
	*sessions.MemoryRepository
}

func (s failingSetStorage) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("storage unavailable")
}

func TestRotate_FailedMoveSignsOutOldID(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	store := sessions.NewMemoryRepository()
	raw := []byte(`{"access_token":"x"}`)
	require.NoError(t, store.Set(ctx, backend.StorageKey("test", "a"), raw))
	r.opts.Storage = failingSetStorage{store}

	_, err := r.Rotate(ctx, "a")
	require.Error(t, err)
	assert.Zero(t, r.Len())
	assert.Zero(t, store.Len())
}

func TestRotate_ClosedRegistry(t *testing.T) {
	r, _, _ := newRegistry(t)
	r.Close()
	_, err := r.Rotate(context.Background(), "a")
	require.ErrorIs(t, err, ErrClosed)
}

func TestClose(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, err := r.Acquire(context.Background(), "a")
	require.NoError(t, err)

	r.Close()
	r.Close()
	require.Zero(t, r.Len())
	_, err = r.Acquire(context.Background(), "a")
	require.ErrorIs(t, err, ErrClosed)
}

func TestRun_StopsWithContext(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NotEmpty(t, NewClientID())
}
