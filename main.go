package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/handlers"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/auth"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/config"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/database"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/oidc"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/portal"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	qhandler "github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/handler"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/repository"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/service"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/sessions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/users"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

const janitorInterval = time.Minute

func main() {
	// LOG_LEVEL from the environment until the config is loaded
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: backend=%s postgres=%v mongo=%v redis=%v", cfg.Backend.Mode, cfg.Postgres.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.Writer(logger.LevelInfo)
	gin.DefaultErrorWriter = logger.Writer(logger.LevelError)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	renderer, err := handlers.NewRenderer()
	if err != nil {
		logger.Fatalf("failed to parse templates: %v", err)
	}
	r.HTMLRender = renderer

	// Redis first: sessions and the rate limiter both prefer it
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			_ = rc.Close()
		} else {
			redisClient = rc
			defer func() { _ = redisClient.Close() }()
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
		}
	}

	// runs after the portal client middleware so signed-in users are limited per user
	var limiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			limiter = middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window)
		} else {
			limiter = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient = connectMongo(ctx, cfg.MongoDB)
		if mongoClient != nil {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		}
	}

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pgPool, err = database.ConnectPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
		if err != nil {
			logger.Warnf("postgres unavailable, using the REST profile lookup: %v", err)
		} else {
			defer pgPool.Close()
			logger.Infof("profiles are read from Postgres")
		}
	}

	storage := sessionStorage(ctx, cfg, redisClient, mongoClient)

	api, verifier, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		logger.Fatalf("failed to set up backend: %v", err)
	}

	opts := portal.Options{
		API:            api,
		Storage:        storage,
		ProjectRef:     cfg.Backend.ProjectRef,
		DuplicateCheck: cfg.Backend.DuplicateCheck,
		IdleTTL:        cfg.Portal.IdleTTL,
		ReadyTimeout:   cfg.Portal.ReadyTimeout,
	}
	if cfg.Backend.VerifyTokens {
		opts.Verifier = verifier
	}
	if pgPool != nil {
		opts.Profiles = users.NewService(users.NewPostgresRepository(pgPool))
	}
	registry := portal.NewRegistry(opts)
	defer registry.Close()
	go registry.Run(ctx, janitorInterval)

	catalog, err := questionService(ctx, mongoClient, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatalf("failed to set up past questions: %v", err)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: every configured dependency must be reachable
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{"backend": true}
		if cfg.Redis.Enabled() {
			deps["redis"] = redisClient != nil && redisClient.Ping(c.Request.Context()).Err() == nil
			ready = ready && deps["redis"]
		}
		if cfg.MongoDB.URI != "" {
			deps["mongodb"] = mongoClient != nil && mongoClient.Ping(c.Request.Context(), nil) == nil
			ready = ready && deps["mongodb"]
		}
		if cfg.Postgres.URL != "" {
			deps["postgres"] = pgPool != nil && pgPool.Ping(c.Request.Context()) == nil
			ready = ready && deps["postgres"]
		}
		if cfg.Backend.VerifyTokens {
			deps["verifier"] = verifier != nil
			ready = ready && deps["verifier"]
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "clients": registry.Len(), "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterSwagger(r)

	clients := middleware.PortalClient(registry, middleware.CookieOptions{
		Name:   cfg.Portal.CookieName,
		Secure: cfg.Portal.SecureCookie,
	})

	api1 := r.Group("/api/v1", cors, limiter)
	api1.GET("/me", clients, handlers.Me)
	if verifier != nil {
		qhandler.RegisterQuestionRoutes(api1, catalog, middleware.AuthMiddleware(verifier))
	} else {
		logger.Warnf("no token verifier: catalog write API is disabled")
		qhandler.RegisterQuestionRoutes(api1, catalog, func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token verification is not configured"})
		})
	}

	pages := r.Group("/", clients, limiter)
	handlers.NewPageHandler(auth.NewGuard(cfg.Portal.LoginPath), catalog).Register(pages)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting StudyHub SE on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// cors allows cross-origin reads of the JSON API.
func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// connectMongo retries with backoff to ride out container start order.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB")
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil
}

// sessionStorage prefers Redis, then MongoDB, then process memory.
func sessionStorage(ctx context.Context, cfg *config.Config, rc *redis.Client, mc *mongo.Client) backend.Storage {
	if rc != nil {
		logger.Infof("using Redis for session storage")
		return sessions.NewRedisRepository(rc, "studyhub:session:", cfg.Redis.SessionTTL)
	}
	if mc != nil {
		repo, err := sessions.NewMongoRepository(ctx, mc.Database(cfg.MongoDB.Database).Collection("sessions"), cfg.MongoDB.SessionTTL)
		if err == nil {
			logger.Infof("using MongoDB for session storage")
			return repo
		}
		logger.Warnf("mongo session storage unavailable: %v", err)
	}
	logger.Warnf("sessions are kept in memory and lost on restart")
	return sessions.NewMemoryRepository()
}

// newBackend returns the auth/data API and a verifier for its access tokens.
// The verifier may be nil when discovery fails.
func newBackend(ctx context.Context, cfg config.BackendConfig) (backend.API, backend.Verifier, error) {
	switch cfg.Mode {
	case config.BackendHTTP:
		api := backend.NewHTTPAPI(cfg.URL, cfg.AnonKey, cfg.Timeout)
		if os.Getenv("ALLOW_INSECURE_TOKEN") == "true" {
			logger.Warnf("enabling insecure token verifier (integration mode)")
			return api, oidc.NewInsecureVerifier(), nil
		}
		ver, err := oidc.NewVerifier(ctx, oidc.IssuerURL(cfg.URL), tokens.Audience)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
			return api, nil, nil
		}
		return api, ver, nil
	case config.BackendMemory:
		signer := tokens.NewSigner(cfg.JWTSecret, "studyhub-memory")
		logger.Warnf("using the in-process auth backend; accounts are lost on restart")
		return backend.NewMemoryAPI(signer, cfg.AccessTTL, cfg.AutoConfirm), oidc.NewSecretVerifier(signer), nil
	}
	return nil, nil, errors.New("unknown backend mode " + cfg.Mode)
}

// questionService uses MongoDB when connected, seeding an empty catalog.
func questionService(ctx context.Context, mc *mongo.Client, db string) (service.Service, error) {
	seed, err := questions.Seed()
	if err != nil {
		return nil, err
	}
	var repo repository.Repository
	if mc != nil {
		repo, err = repository.NewMongoRepo(ctx, mc.Database(db).Collection("past_questions"))
		if err != nil {
			return nil, err
		}
	} else {
		repo = repository.NewMemoryRepo()
	}
	n, err := service.SeedIfEmpty(ctx, repo, seed)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logger.Infof("seeded %d past questions", n)
	}
	return service.New(repo), nil
}
