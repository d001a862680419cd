// pkg/config/config.go

// Package config loads invoicer settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

// DefaultFile is read when no --config flag is given and the file exists.
const DefaultFile = "invoicer.yaml"

type Config struct {
	// Env is "development" or "production". Development exposes diagnostic
	// error detail and the sample endpoint.
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Numbering NumberingConfig `yaml:"numbering"`
	Render    RenderConfig    `yaml:"render"`
	Input     InputConfig     `yaml:"input"`
	Auth      AuthConfig      `yaml:"auth"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	// URL is a PostgreSQL DSN; empty keeps invoices in memory.
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

type NumberingConfig struct {
	// Strategy is "sequential" or "opaque".
	Strategy string `yaml:"strategy"`
	// Counter backs the sequential strategy: "store", "redis" or "postgres".
	Counter string `yaml:"counter"`
}

type RenderConfig struct {
	// Engine is "chrome" or "fpdf".
	Engine         string        `yaml:"engine"`
	ChromePath     string        `yaml:"chrome_path"`
	TemplatePath   string        `yaml:"template_path"`
	Timeout        time.Duration `yaml:"timeout"`
	CurrencySymbol string        `yaml:"currency_symbol"`
}

type InputConfig struct {
	// Coercion is "strict" or "lenient"; see invoice.CoercionPolicy.
	Coercion string `yaml:"coercion"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type ArchiveConfig struct {
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

func Default() *Config {
	return &Config{
		Env: "production",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Numbering: NumberingConfig{Strategy: "sequential", Counter: "store"},
		Render: RenderConfig{
			Engine:         "chrome",
			Timeout:        30 * time.Second,
			CurrencySymbol: "₹",
		},
		Input: InputConfig{Coercion: "strict"},
	}
}

// Load reads path (optional) over the defaults, then applies .env and
// environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "INVOICER_ENV")
	setString(&c.HTTP.Addr, "INVOICER_ADDR")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Render.ChromePath, "CHROME_PATH")
	setString(&c.Render.TemplatePath, "INVOICER_TEMPLATE")
	setString(&c.Archive.S3Bucket, "S3_BUCKET")
	setString(&c.Archive.S3Region, "AWS_REGION")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Development reports whether diagnostics may be shown to clients.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Env == "development" || c.Env == "production", "env must be development or production, got %q", c.Env)
	check(c.HTTP.Addr != "", "http.addr is required")
	check(c.Numbering.Strategy == "sequential" || c.Numbering.Strategy == "opaque",
		"numbering.strategy must be sequential or opaque, got %q", c.Numbering.Strategy)
	if c.Numbering.Strategy == "sequential" {
		switch c.Numbering.Counter {
		case "store":
		case "redis":
			check(c.Redis.URL != "", "redis.url is required for numbering.counter=redis")
		case "postgres":
			check(c.Database.URL != "", "database.url is required for numbering.counter=postgres")
		default:
			check(false, "numbering.counter must be store, redis or postgres, got %q", c.Numbering.Counter)
		}
	}
	check(c.Render.Engine == "chrome" || c.Render.Engine == "fpdf", "render.engine must be chrome or fpdf, got %q", c.Render.Engine)
	check(c.Render.Timeout > 0, "render.timeout must be positive")
	_, err := invoice.ParseCoercionPolicy(c.Input.Coercion)
	check(err == nil, "input.coercion must be strict or lenient, got %q", c.Input.Coercion)
	check(c.Auth.JWTSecret != "" || c.Development(), "auth.jwt_secret is required outside development")
	check(c.Archive.S3Bucket == "" || c.Archive.S3Region != "", "archive.s3_region is required when archive.s3_bucket is set")

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
