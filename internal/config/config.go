package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config is the environment-driven server configuration. Values come from
// the process environment; cmd/server loads a .env first.
type Config struct {
	Port          string
	DatabaseDSN   string
	UploadDir     string
	OutputDir     string
	AllowedOrigin string
	// ProcessTimeout bounds one reconciliation run end to end.
	ProcessTimeout time.Duration
	MaxUploadMB    int64
}

func Load() Config {
	return Config{
		Port:           getenv("PORT", "8080"),
		DatabaseDSN:    getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=rutas port=5432 sslmode=disable"),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		OutputDir:      getenv("OUTPUT_DIR", "output"),
		AllowedOrigin:  getenv("ALLOWED_ORIGIN", "http://localhost:3000"),
		ProcessTimeout: getDuration("PROCESS_TIMEOUT", 2*time.Minute),
		MaxUploadMB:    getInt64("MAX_UPLOAD_MB", 50),
	}
}

// InitDB opens the Postgres connection used for run history.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("conectando a la base de datos: %w", err)
	}
	return db, nil
}

// EnsureDirs creates the upload and output directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creando directorio %s: %w", dir, err)
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
