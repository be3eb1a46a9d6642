package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_SetGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:", time.Minute)

	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "sb-local-auth-token:c1", []byte(`{"access_token":"a"}`)))
	require.True(t, m.Exists("test:session:sb-local-auth-token:c1"))

	got, err := repo.Get(ctx, "sb-local-auth-token:c1")
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"a"}`, string(got))

	// test deletion
	require.NoError(t, repo.Delete(ctx, "sb-local-auth-token:c1"))
	got2, err := repo.Get(ctx, "sb-local-auth-token:c1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "", 2*time.Second)

	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "k", []byte("v")))

	// visible immediately
	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	// advance miniredis clock past TTL
	m.FastForward(3 * time.Second)

	got2, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_SetRefreshesTTL(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "", 2*time.Second)

	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "k", []byte("v1")))
	m.FastForward(1500 * time.Millisecond)
	require.NoError(t, repo.Set(ctx, "k", []byte("v2")))
	m.FastForward(1500 * time.Millisecond)

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}
