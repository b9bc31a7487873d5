package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP        HTTP
		Log         Log
		PG          PG
		Redis       Redis
		S3          S3
		Kafka       Kafka
		OutboxRelay OutboxRelay
		RenderPool  RenderPool
		CacheWarmer CacheWarmer
		Screenshot  Screenshot
		Swagger     Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	Redis struct {
		URL string `env:"REDIS_URL,required"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		Bucket         string        `env:"S3_BUCKET,required"`
		Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
		CDNBaseURL     string        `env:"S3_CDN_BASE_URL"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		GroupID string   `env:"KAFKA_GROUP_ID,required"`
		Topic   string   `env:"KAFKA_TOPIC,required"`
	}

	OutboxRelay struct {
		PollInterval        time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"2s"`
		MarkFailedInterval  time.Duration `env:"OUTBOX_RELAY_MARK_FAILED_INTERVAL" envDefault:"2m"`
		CleanupInterval     time.Duration `env:"OUTBOX_RELAY_CLEANUP_INTERVAL" envDefault:"24h"`
		ProcessBatchTimeout time.Duration `env:"OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"OUTBOX_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
		MaxRetries          int           `env:"OUTBOX_RELAY_MAX_RETRIES" envDefault:"3"`
	}

	RenderPool struct {
		Workers         int           `env:"RENDER_POOL_WORKERS" envDefault:"4"`
		PollInterval    time.Duration `env:"RENDER_POOL_POLL_INTERVAL" envDefault:"1s"`
		ClaimBatchSize  int           `env:"RENDER_POOL_CLAIM_BATCH_SIZE" envDefault:"8"`
		RenderTimeout   time.Duration `env:"RENDER_POOL_RENDER_TIMEOUT" envDefault:"45s"`
		CommitTimeout   time.Duration `env:"RENDER_POOL_COMMIT_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"RENDER_POOL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	CacheWarmer struct {
		Workers         int           `env:"CACHE_WARMER_WORKERS" envDefault:"2"`
		ShutdownTimeout time.Duration `env:"CACHE_WARMER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Screenshot struct {
		DefaultTTL     time.Duration `env:"SCREENSHOT_DEFAULT_TTL" envDefault:"24h"`
		DefaultWidth   int           `env:"SCREENSHOT_DEFAULT_WIDTH" envDefault:"1200"`
		DefaultHeight  int           `env:"SCREENSHOT_DEFAULT_HEIGHT" envDefault:"630"`
		AllowedDomains []string      `env:"SCREENSHOT_ALLOWED_DOMAINS"`
		ContactEmail   string        `env:"SCREENSHOT_CONTACT_EMAIL" envDefault:"support@kactica.com"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
