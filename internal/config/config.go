package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the API server and the worker.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	ObjectStore ObjectStoreConfig
	Model       ModelConfig
	Detector    DetectorConfig
	Auth        AuthConfig
	Worker      WorkerConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
	UploadMaxBytes     int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	Name       string
	PopTimeout time.Duration
}

type ObjectStoreConfig struct {
	Provider       string
	Bucket         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Region         string
	ForcePathStyle bool
}

// ModelConfig identifies the detection configuration recorded on every job.
type ModelConfig struct {
	Name    string
	Version string
}

type DetectorConfig struct {
	Provider string
	BaseURL  string
	Timeout  time.Duration
}

type AuthConfig struct {
	SecretKey string
}

type WorkerConfig struct {
	ScratchDir     string
	RetryDelay     time.Duration
	MetricsAddr    string
	MaxImagePixels int
}

var validDetectors = map[string]bool{
	"stub": true,
	"http": true,
}

var validObjectStores = map[string]bool{
	"minio": true,
	"s3":    true,
}

// Load reads configuration from environment variables (and a .env file in the
// working directory, if present) and returns a validated Config.
func Load() (*Config, error) {
	// Variables already in the environment win over .env entries.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("PORT", 8000),
			Env:                envString("APP_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			UploadMaxBytes:     int64(envInt("UPLOAD_MAX_BYTES", 20<<20)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			Name:       envString("QUEUE_NAME", "job_queue"),
			PopTimeout: envDuration("QUEUE_POP_TIMEOUT", 5*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Provider:       envString("OBJECT_STORE_PROVIDER", "minio"),
			Bucket:         os.Getenv("MINIO_BUCKET"),
			Endpoint:       os.Getenv("MINIO_ENDPOINT"),
			AccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:      os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:         envBool("MINIO_USE_SSL", false),
			Region:         envString("S3_REGION", "us-east-1"),
			ForcePathStyle: envBool("S3_FORCE_PATH_STYLE", false),
		},
		Model: ModelConfig{
			Name:    envString("MODEL_NAME", "yolov8n"),
			Version: envString("MODEL_VERSION", "v1"),
		},
		Detector: DetectorConfig{
			Provider: envString("DETECTOR_PROVIDER", "stub"),
			BaseURL:  os.Getenv("DETECTOR_BASE_URL"),
			Timeout:  envDuration("DETECTOR_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			SecretKey: os.Getenv("SECRET_KEY"),
		},
		Worker: WorkerConfig{
			ScratchDir:     envString("WORKER_SCRATCH_DIR", os.TempDir()),
			RetryDelay:     envDuration("WORKER_RETRY_DELAY", 2*time.Second),
			MetricsAddr:    envString("WORKER_METRICS_ADDR", ":9100"),
			MaxImagePixels: envInt("WORKER_MAX_IMAGE_PIXELS", 40_000_000),
		},
	}
	if cfg.ObjectStore.Provider == "s3" {
		cfg.ObjectStore.Endpoint = envString("S3_ENDPOINT", cfg.ObjectStore.Endpoint)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Queue.PopTimeout < time.Second {
		return fmt.Errorf("QUEUE_POP_TIMEOUT must be at least 1s, got %s", c.Queue.PopTimeout)
	}

	if !validObjectStores[c.ObjectStore.Provider] {
		return fmt.Errorf("OBJECT_STORE_PROVIDER must be one of minio, s3; got %q", c.ObjectStore.Provider)
	}
	if c.ObjectStore.Bucket == "" {
		return fmt.Errorf("MINIO_BUCKET is required")
	}
	if c.ObjectStore.Provider == "minio" {
		if c.ObjectStore.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when OBJECT_STORE_PROVIDER is minio")
		}
		if strings.Contains(c.ObjectStore.Endpoint, "://") {
			return fmt.Errorf("MINIO_ENDPOINT must be host:port without a scheme, got %q", c.ObjectStore.Endpoint)
		}
	}

	if !validDetectors[c.Detector.Provider] {
		return fmt.Errorf("DETECTOR_PROVIDER must be one of stub, http; got %q", c.Detector.Provider)
	}
	if c.Detector.Provider == "http" {
		if !strings.HasPrefix(c.Detector.BaseURL, "http://") && !strings.HasPrefix(c.Detector.BaseURL, "https://") {
			return fmt.Errorf("DETECTOR_BASE_URL must start with http:// or https:// when DETECTOR_PROVIDER is http, got %q", c.Detector.BaseURL)
		}
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}

	if c.Server.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Worker.MaxImagePixels <= 0 {
		return fmt.Errorf("WORKER_MAX_IMAGE_PIXELS must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
