package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional; without it the company directory is served from CorpCodeFile.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int    `envconfig:"PG_MAX_CONNS" default:"8"`
	RedisAddr  string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisDB    int    `envconfig:"REDIS_DB" default:"0"`

	GotenbergURL string `envconfig:"GOTENBERG_URL"`

	FilingsDir   string `envconfig:"FILINGS_DIR" default:"./data/filings"`
	CorpCodeFile string `envconfig:"CORP_CODE_FILE"`

	CompareWorkers int           `envconfig:"COMPARE_WORKERS" default:"4"`
	MaxCompanies   int           `envconfig:"MAX_COMPANIES" default:"10"`
	MaxYears       int           `envconfig:"MAX_YEARS" default:"5"`
	ExportTTL      time.Duration `envconfig:"EXPORT_TTL" default:"1h"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
}

// LoadConfig reads configuration from environment variables. Files passed in
// envFiles (default ".env") are loaded first; missing files are ignored and
// variables already present in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("app: load %s: %w", file, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.CompareWorkers < 1:
		return errors.New("app: COMPARE_WORKERS must be positive")
	case c.MaxCompanies < 1:
		return errors.New("app: MAX_COMPANIES must be positive")
	case c.MaxYears < 1:
		return errors.New("app: MAX_YEARS must be positive")
	case c.ExportTTL <= 0:
		return errors.New("app: EXPORT_TTL must be positive")
	case c.PGMaxConns < 1:
		return errors.New("app: PG_MAX_CONNS must be positive")
	case c.RedisDB < 0:
		return errors.New("app: REDIS_DB must not be negative")
	case c.WorkerConcurrency < 1:
		return errors.New("app: WORKER_CONCURRENCY must be positive")
	case c.LogFormat != "json" && c.LogFormat != "pretty":
		return fmt.Errorf("app: unsupported LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
