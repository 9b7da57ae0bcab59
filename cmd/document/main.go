package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/secureblog/secureblog/backend/go-services/handlers"
	"github.com/secureblog/secureblog/backend/go-services/internal/analysis"
	"github.com/secureblog/secureblog/backend/go-services/internal/audit"
	"github.com/secureblog/secureblog/backend/go-services/internal/config"
	"github.com/secureblog/secureblog/backend/go-services/internal/database"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/handler"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/ledger"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/repository"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/service"
	"github.com/secureblog/secureblog/backend/go-services/internal/ingestion"
	"github.com/secureblog/secureblog/backend/go-services/internal/oidc"
	"github.com/secureblog/secureblog/backend/go-services/internal/storage"
	"github.com/secureblog/secureblog/backend/go-services/pkg/logger"
	"github.com/secureblog/secureblog/backend/go-services/pkg/metrics"
	"github.com/secureblog/secureblog/backend/go-services/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors())

	// Redis backs the shared rate limiter and the distributed ledger lock.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Identity runs before the rate limiter so authenticated callers get their own bucket.
	verifier := newVerifier(ctx, cfg)
	if verifier != nil {
		r.Use(middleware.AuthMiddleware(verifier))
	} else {
		logger.Infof("OIDC not configured; trusting %s header", cfg.Server.IdentityHeader)
		r.Use(middleware.HeaderIdentity(cfg.Server.IdentityHeader))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	var (
		repo     service.Repository
		recorder audit.Recorder
		mclient  *mongo.Client
	)
	if cfg.MongoDB.URI != "" {
		mclient, err = database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			logger.Warnf("%v; using in-memory store", err)
		} else {
			defer func() { _ = mclient.Disconnect(context.Background()) }()
			db := mclient.Database(cfg.MongoDB.Database)
			mrepo, err := repository.NewMongoRepo(ctx, db)
			if err != nil {
				logger.Fatalf("prepare document collections: %v", err)
			}
			repo = mrepo
			recorder = audit.NewMongoRecorder(db)
			logger.Infof("using MongoDB database %s", cfg.MongoDB.Database)
		}
	}
	if repo == nil {
		repo = repository.NewMemoryRepo()
		recorder = audit.NewMemoryRecorder(0)
	}

	var locker ledger.Locker = ledger.NewLocalLocker()
	if strings.EqualFold(cfg.Lock.Backend, "redis") {
		if rdb != nil {
			locker = ledger.NewRedisLocker(rdb, "lock:", cfg.Lock.TTL)
			logger.Infof("ledger lock: redis (ttl %s)", cfg.Lock.TTL)
		} else {
			logger.Warnf("LOCK_BACKEND=redis but Redis is unavailable; using in-process lock")
		}
	}

	var archiver service.Archiver
	if cfg.MinIO.Endpoint != "" {
		arch, err := storage.NewRevisionArchive(ctx, storage.Options{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Warnf("revision archive disabled: %v", err)
		} else {
			archiver = arch
		}
	}

	similarity := analysis.NewSimilarityScorer(cfg.Analysis.Similarity)
	features := analysis.NewSentenceUniformity(cfg.Analysis.Heuristic)
	policy := ingestion.NewPolicy(cfg.Analysis.Ingestion, similarity, features)
	logger.Infof("ingestion policy: reject above %.2f%%, score edits=%v",
		cfg.Analysis.Ingestion.RejectThreshold, cfg.Analysis.Ingestion.ScoreEdits)

	svc := service.New(service.Options{
		Repo:     repo,
		Ledger:   ledger.New(repo, locker),
		Policy:   policy,
		Recorder: recorder,
		Archiver: archiver,
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{"store": true}
		if cfg.MongoDB.URI != "" {
			deps["mongo"] = mclient != nil && mclient.Ping(c.Request.Context(), nil) == nil
			ready = ready && deps["mongo"]
		}
		if cfg.Redis.Host != "" && (cfg.RateLimit.UseRedis || strings.EqualFold(cfg.Lock.Backend, "redis")) {
			deps["redis"] = rdb != nil && rdb.Ping(c.Request.Context()).Err() == nil
			ready = ready && deps["redis"]
		}
		if cfg.Keycloak.URL != "" {
			deps["oidc"] = verifier != nil
			ready = ready && deps["oidc"]
		}
		deps["archive"] = archiver != nil

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handler.New(svc, similarity, features).Register(r)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("document service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newVerifier returns an OIDC verifier for the configured Keycloak realm, or
// nil when none is configured or discovery fails.
func newVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.Keycloak.URL == "" || cfg.Keycloak.ClientID == "" {
		return nil
	}
	issuer := strings.TrimRight(cfg.Keycloak.URL, "/")
	if cfg.Keycloak.Realm != "" {
		issuer += "/realms/" + cfg.Keycloak.Realm
	}
	ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
	if err != nil {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
		return nil
	}
	return ver
}

// cors is a permissive policy for the blog frontend.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-User-ID")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
