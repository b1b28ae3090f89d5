package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageFirebase = "firebase"
	StorageS3       = "s3"
	StorageLocal    = "local"
)

type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"photowall"`
	Port            string        `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsPort     string        `env:"METRICS_PORT" envDefault:"9090"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	PostgresConnStr string `env:"POSTGRES_CONN_STR,notEmpty"`
	MongoURI        string `env:"MONGO_URI,notEmpty"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"photowall"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	NatsURL         string `env:"NATS_URL"` // empty keeps the change feed in-process

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseStorageBucket   string `env:"FIREBASE_STORAGE_BUCKET"`

	StorageBackend      string `env:"STORAGE_BACKEND" envDefault:"firebase"`
	LocalStoragePath    string `env:"LOCAL_STORAGE_PATH" envDefault:"./media"`
	LocalStorageBaseURL string `env:"LOCAL_STORAGE_BASE_URL" envDefault:"http://localhost:8080/media"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3PublicBaseURL     string `env:"S3_PUBLIC_BASE_URL"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3AccessKeyID       string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey         string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle      bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`

	JWTSecret       string        `env:"JWT_SECRET" envDefault:"supersecretjwtkey"`
	JWTTTL          time.Duration `env:"JWT_TTL" envDefault:"72h"`
	ModeratorEmails []string      `env:"MODERATOR_EMAILS" envSeparator:","`

	DuplicateThreshold int           `env:"DUPLICATE_THRESHOLD" envDefault:"15"`
	SubmissionCooldown time.Duration `env:"SUBMISSION_COOLDOWN" envDefault:"720h"`
	RejectedRetention  time.Duration `env:"REJECTED_RETENTION" envDefault:"2160h"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	GalleryCacheTTL    time.Duration `env:"GALLERY_CACHE_TTL" envDefault:"5m"`
	AnonSessionTTL     time.Duration `env:"ANON_SESSION_TTL" envDefault:"8760h"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (*Config, error) {
	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case StorageFirebase:
		if c.FirebaseCredentialsPath == "" || c.FirebaseStorageBucket == "" {
			return fmt.Errorf("STORAGE_BACKEND=firebase requires FIREBASE_CREDENTIALS_PATH and FIREBASE_STORAGE_BUCKET")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("STORAGE_BACKEND=s3 requires S3_BUCKET")
		}
	case StorageLocal:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	emails := c.ModeratorEmails[:0]
	for _, e := range c.ModeratorEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	c.ModeratorEmails = emails

	if c.DuplicateThreshold < 0 {
		c.DuplicateThreshold = 15
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	c.LocalStorageBaseURL = strings.TrimRight(c.LocalStorageBaseURL, "/")
	c.S3PublicBaseURL = strings.TrimRight(c.S3PublicBaseURL, "/")
	return nil
}

// IsModeratorEmail reports whether email is on the bootstrap moderator list.
func (c *Config) IsModeratorEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.ModeratorEmails {
		if e == email {
			return true
		}
	}
	return false
}
