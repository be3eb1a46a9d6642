package middleware

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 10*time.Second)) // 10 per 10s window
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	var last int
	for i := 0; i < 11; i++ {
		last = serve(r, "/r", "203.0.113.7:1").Code
	}
	// a window boundary may fall inside the loop, so only the shape is checked
	require.Contains(t, []int{http.StatusOK, http.StatusTooManyRequests}, last)

	keys := m.Keys()
	require.NotEmpty(t, keys)
	require.Contains(t, keys[0], "rl:ip:203.0.113.7:")
	require.True(t, m.TTL(keys[0]) > 0)
}

func TestRedisRateLimitMiddleware_Rejects(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Hour))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// 3600 requests per hourly window; pre-fill the counter instead of sending them
	require.NoError(t, m.Set("rl:ip:203.0.113.8:"+bucketSuffix(time.Hour), "3600"))
	w := serve(r, "/r", "203.0.113.8:1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestRedisRateLimitMiddleware_FailsClosedOnRedisError(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	require.Equal(t, http.StatusInternalServerError, serve(r, "/r", "").Code)
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 100, 5, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusOK, serve(r, "/r", "203.0.113.9:1").Code)
}

func bucketSuffix(window time.Duration) string {
	return strconv.FormatInt(time.Now().Unix()/int64(window.Seconds()), 10)
}
