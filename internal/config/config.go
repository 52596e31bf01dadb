// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverLocal = "local"
	DriverMinio = "minio"
)

// Config holds all runtime configuration for the service. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	Port   string `validate:"required,numeric"`
	AppEnv string `validate:"required"`

	// STORAGE_DRIVER selects the single active backend.
	StorageDriver string `validate:"required,oneof=local minio"`

	// Local disk backend
	UploadsDir       string `validate:"required_if=StorageDriver local"`
	UploadsURLPrefix string `validate:"required_if=StorageDriver local,omitempty,startswith=/"`

	// Object storage (S3-compatible: MinIO locally, any S3 provider in production)
	StorageEndpoint   string `validate:"required_if=StorageDriver minio"`
	StorageAccessKey  string `validate:"required_if=StorageDriver minio"`
	StorageSecretKey  string `validate:"required_if=StorageDriver minio"`
	StorageBucket     string `validate:"required_if=StorageDriver minio"`
	StorageUseSSL     bool
	StoragePublicBase string `validate:"required_if=StorageDriver minio,omitempty,url"` // browser-accessible base URL, e.g. "http://localhost:9000/media"
	StorageNamespace  string `validate:"required_if=StorageDriver minio"`               // top-level folder for every object key

	ListLimit      int   `validate:"min=1,max=1000"`
	MaxUploadBytes int64 `validate:"min=1"`
	MaxBodyBytes   int64 `validate:"min=1"`
	UploadTimeout  time.Duration
	// ExposeBackendErrors passes backend error messages through to clients.
	ExposeBackendErrors bool
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:          getEnv("PORT", "3000"),
		AppEnv:        getEnv("APP_ENV", "development"),
		StorageDriver: getEnv("STORAGE_DRIVER", DriverLocal),

		UploadsDir:       getEnv("UPLOADS_DIR", "./uploads"),
		UploadsURLPrefix: getEnv("UPLOADS_URL_PREFIX", "/uploads"),

		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "media"),
		StorageUseSSL:     getEnvBool("STORAGE_USE_SSL", false),
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/media"),
		StorageNamespace:  getEnv("STORAGE_NAMESPACE", "talmud"),

		ListLimit:           getEnvInt("LIST_LIMIT", 100),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 50*1000*1000)),
		UploadTimeout:       getEnvDuration("UPLOAD_TIMEOUT", 2*time.Minute),
		ExposeBackendErrors: getEnvBool("EXPOSE_BACKEND_ERRORS", true),
	}
}

// Validate checks the loaded values against their struct tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		log.Printf("config: %s is not a boolean, using %t", key, fallback)
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		log.Printf("config: %s is not an integer, using %d", key, fallback)
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		log.Printf("config: %s is not a duration, using %s", key, fallback)
		return fallback
	}
	return v
}
