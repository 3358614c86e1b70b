package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Docflow"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"docflow"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"60s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Vertex struct {
		Project             string  `envconfig:"VERTEX_PROJECT"`
		Region              string  `envconfig:"VERTEX_REGION" default:"europe-west2"`
		ClassificationModel string  `envconfig:"VERTEX_CLASSIFICATION_MODEL" default:"gemini-2.0-flash"`
		ExtractionModel     string  `envconfig:"VERTEX_EXTRACTION_MODEL" default:"gemini-2.0-flash"`
		Temperature         float32 `envconfig:"VERTEX_TEMPERATURE" default:"0"`
	}

	Notify struct {
		// Empty endpoint logs notifications instead of sending them.
		Endpoint string        `envconfig:"NOTIFY_ENDPOINT"`
		Token    string        `envconfig:"NOTIFY_TOKEN"`
		Timeout  time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	}

	Workflow struct {
		Concurrency int           `envconfig:"WORKFLOW_CONCURRENCY" default:"4"`
		StaleAfter  time.Duration `envconfig:"WORKFLOW_STALE_AFTER" default:"15m"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Vertex.Project == "" {
		return nil, fmt.Errorf("VERTEX_PROJECT is required")
	}

	return &cfg, nil
}
