package main

import (
	"context"
	"os"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/database"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/oidc"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/handler"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/repository"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/service"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// catalog serves the past questions JSON API on its own. Writes need a
// bearer token from the hosted backend (BACKEND_URL) or, for local use, one
// signed with BACKEND_JWT_SECRET.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("CATALOG_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}
	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())

	// Prefer a Mongo-backed catalog when MONGODB_URI is provided
	var repo repository.Repository = repository.NewMemoryRepo()
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		timeout := 10 * time.Second
		if v, err := time.ParseDuration(os.Getenv("MONGODB_TIMEOUT")); err == nil && v > 0 {
			timeout = v
		}
		client, err := database.ConnectMongo(ctx, uri, timeout)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v), using memory-backed repo", err)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := os.Getenv("MONGODB_DATABASE")
			if db == "" {
				db = "studyhub"
			}
			mrepo, err := repository.NewMongoRepo(ctx, client.Database(db).Collection("past_questions"))
			if err != nil {
				logger.Fatalf("past questions collection: %v", err)
			}
			repo = mrepo
		}
	}

	seed, err := questions.Seed()
	if err != nil {
		logger.Fatalf("seed catalog: %v", err)
	}
	if n, err := service.SeedIfEmpty(ctx, repo, seed); err != nil {
		logger.Fatalf("seed catalog: %v", err)
	} else if n > 0 {
		logger.Infof("seeded %d past questions", n)
	}

	var verifier middleware.Verifier
	switch {
	case os.Getenv("BACKEND_URL") != "":
		ver, err := oidc.NewVerifier(ctx, oidc.IssuerURL(os.Getenv("BACKEND_URL")), tokens.Audience)
		if err != nil {
			logger.Fatalf("token verifier: %v", err)
		}
		verifier = ver
	case os.Getenv("BACKEND_JWT_SECRET") != "":
		verifier = oidc.NewSecretVerifier(tokens.NewSigner(os.Getenv("BACKEND_JWT_SECRET"), ""))
	default:
		logger.Warnf("no BACKEND_URL or BACKEND_JWT_SECRET: accepting unverified tokens")
		verifier = oidc.NewInsecureVerifier()
	}

	handler.RegisterQuestionRoutes(r.Group("/api/v1"), service.New(repo), middleware.AuthMiddleware(verifier))

	logger.Infof("catalog service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("%v", err)
	}
}
