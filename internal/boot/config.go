package boot

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env       string `env:"ENV,default=dev"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
	Server    struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	SMTP struct {
		Enabled     bool          `env:"SMTP_ENABLED,default=true"`
		Port        string        `env:"SMTP_PORT,default=2525"`
		Domain      string        `env:"SMTP_DOMAIN,default=localhost"`
		StrictParse bool          `env:"SMTP_STRICT_PARSE,default=false"`
		ReadTimeout time.Duration `env:"SMTP_READ_TIMEOUT,default=60s"`
		MaxBytes    int64         `env:"SMTP_MAX_MESSAGE_BYTES,default=10485760"`
	}
	Stream struct {
		Keepalive time.Duration `env:"KEEPALIVE_INTERVAL,default=15s"`
	}
	Ingest struct {
		// URL of the ingest endpoint when the SMTP receiver runs out of
		// process and forwards over HTTP instead of writing directly.
		URL string `env:"INGEST_URL"`
	}
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}
