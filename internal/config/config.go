package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/secureblog/secureblog/backend/go-services/internal/analysis"
	"github.com/secureblog/secureblog/backend/go-services/internal/ingestion"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Lock      LockConfig
	Keycloak  KeycloakConfig
	MinIO     MinIOConfig
	Analysis  AnalysisConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// IdentityHeader carries the caller's identity when no OIDC issuer is configured.
	IdentityHeader string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LockConfig selects how the revision ledger serialises writes per document.
type LockConfig struct {
	Backend string // "local" or "redis"
	TTL     time.Duration
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// AnalysisConfig groups the screening thresholds and weighting parameters.
type AnalysisConfig struct {
	Ingestion  ingestion.Config
	Similarity analysis.SimilarityConfig
	Heuristic  analysis.HeuristicConfig
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	heuristic := analysis.DefaultHeuristicConfig()
	v.SetDefault("SERVER_PORT", "5010")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_IDENTITY_HEADER", "X-User-ID")
	v.SetDefault("MONGODB_DATABASE", "secure_blog")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("LOCK_BACKEND", "local")
	v.SetDefault("LOCK_TTL_SECONDS", 10)
	v.SetDefault("MINIO_BUCKET", "revisions")
	v.SetDefault("ANALYSIS_REJECT_THRESHOLD", ingestion.DefaultConfig().RejectThreshold)
	v.SetDefault("ANALYSIS_SCORE_EDITS", false)
	v.SetDefault("ANALYSIS_SMOOTH_IDF", true)
	v.SetDefault("ANALYSIS_SUBLINEAR_TF", false)
	v.SetDefault("ANALYSIS_WORKERS", 0)
	v.SetDefault("ANALYSIS_MIN_SENTENCES", heuristic.MinSentences)
	v.SetDefault("ANALYSIS_INSUFFICIENT_SCORE", heuristic.InsufficientScore)
	v.SetDefault("ANALYSIS_VARIANCE_WEIGHT", heuristic.VarianceWeight)
	v.SetDefault("ANALYSIS_SCORE_FLOOR", heuristic.Floor)
	v.SetDefault("ANALYSIS_SCORE_CEILING", heuristic.Ceiling)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			Environment:    v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdentityHeader: v.GetString("SERVER_IDENTITY_HEADER"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Lock: LockConfig{
			Backend: v.GetString("LOCK_BACKEND"),
			TTL:     time.Duration(v.GetInt("LOCK_TTL_SECONDS")) * time.Second,
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Analysis: AnalysisConfig{
			Ingestion: ingestion.Config{
				RejectThreshold: v.GetFloat64("ANALYSIS_REJECT_THRESHOLD"),
				ScoreEdits:      v.GetBool("ANALYSIS_SCORE_EDITS"),
			},
			Similarity: analysis.SimilarityConfig{
				SmoothIDF:   v.GetBool("ANALYSIS_SMOOTH_IDF"),
				SublinearTF: v.GetBool("ANALYSIS_SUBLINEAR_TF"),
				Workers:     v.GetInt("ANALYSIS_WORKERS"),
			},
			Heuristic: analysis.HeuristicConfig{
				MinSentences:      v.GetInt("ANALYSIS_MIN_SENTENCES"),
				InsufficientScore: v.GetInt("ANALYSIS_INSUFFICIENT_SCORE"),
				VarianceWeight:    v.GetFloat64("ANALYSIS_VARIANCE_WEIGHT"),
				Floor:             v.GetFloat64("ANALYSIS_SCORE_FLOOR"),
				Ceiling:           v.GetFloat64("ANALYSIS_SCORE_CEILING"),
			},
		},
	}
	return cfg, nil
}
