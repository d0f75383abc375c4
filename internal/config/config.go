package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSecret = "dev-secret"

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Enabled reports whether enough is set to talk to a bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	LogFormat       string
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	UploadDir       string
	UploadMaxBytes  int64
	S3              S3Config
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTTL         time.Duration
	Seed            bool
	CORSOrigins     []string
	Dev             bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            getenv("FP_PORT", "8080"),
		DBPath:          getenv("FP_DB_PATH", "familypoints.db"),
		LogLevel:        getenv("FP_LOG_LEVEL", "info"),
		LogFormat:       getenv("FP_LOG_FORMAT", "text"),
		JWTSecret:       getenv("FP_JWT_SECRET", devSecret),
		JWTIssuer:       getenv("FP_JWT_ISSUER", "familypoints"),
		AccessTokenTTL:  getenvDuration("FP_ACCESS_TOKEN_TTL", 7*24*time.Hour),
		UploadDir:       getenv("FP_UPLOAD_DIR", "static/uploads"),
		UploadMaxBytes:  int64(getenvInt("FP_UPLOAD_MAX_BYTES", 10<<20)),
		VAPIDPublicKey:  os.Getenv("FP_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("FP_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    os.Getenv("FP_VAPID_SUBJECT"),
		PushTTL:         getenvDuration("FP_PUSH_TTL", 24*time.Hour),
		Seed:            getenvBool("FP_SEED", false),
		CORSOrigins:     splitList(os.Getenv("FP_CORS_ORIGINS")),
		Dev:             getenvBool("FP_DEV", false),
		S3: S3Config{
			Endpoint:  os.Getenv("FP_S3_ENDPOINT"),
			Bucket:    os.Getenv("FP_S3_BUCKET"),
			Region:    getenv("FP_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("FP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("FP_S3_SECRET_KEY"),
			PublicURL: os.Getenv("FP_S3_PUBLIC_URL"),
		},
	}

	if cfg.JWTSecret == devSecret && !cfg.Dev {
		return cfg, errors.New("FP_JWT_SECRET must be set (or FP_DEV=true for local development)")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
