package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/db"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/upload"
)

// Config is the portal's runtime configuration. Values come from the
// defaults below, then an optional YAML file, then PORTAL_* variables.
type Config struct {
	HTTPAddr   string   `yaml:"addr"`
	Database   Database `yaml:"database"`
	SchemaDir  string   `yaml:"schema_dir"`
	Auth       Auth     `yaml:"auth"`
	Upload     Upload   `yaml:"upload"`
	OxiDB      OxiDB    `yaml:"oxidb"`
	GelfAddr   string   `yaml:"gelf_addr"`
	Notify     Notify   `yaml:"notify"`
	CORSOrigin string   `yaml:"cors_origin"`
}

type Database struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AdminEmail string        `yaml:"admin_email"`
	AdminPass  string        `yaml:"admin_password"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

type Upload struct {
	// Backend is "disk" or "oxidb".
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type OxiDB struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	PoolSize  int           `yaml:"pool_size"`
	Bucket    string        `yaml:"bucket"`
	Keepalive time.Duration `yaml:"keepalive"`
}

type Notify struct {
	WebhookURL string        `yaml:"webhook_url"`
	QueueSize  int           `yaml:"queue_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Database: Database{
			Driver:       "sqlite",
			DSN:          "file:portal.db?_pragma=foreign_keys(1)",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			AutoMigrate:  true,
		},
		Auth: Auth{
			JWTSecret:  "oxiportal-dev-secret-change-me",
			AdminEmail: "admin@oxiportal.local",
			AdminPass:  "admin123",
			TokenTTL:   24 * time.Hour,
		},
		Upload: Upload{
			Backend:  "disk",
			Dir:      "uploads",
			MaxBytes: upload.DefaultMaxBytes,
		},
		OxiDB: OxiDB{
			Host:      "127.0.0.1",
			Port:      4444,
			PoolSize:  3,
			Bucket:    "portal_files",
			Keepalive: 30 * time.Second,
		},
		Notify: Notify{
			QueueSize: 64,
			Timeout:   10 * time.Second,
		},
		CORSOrigin: "*",
	}
}

// Load builds the configuration. An empty path falls back to
// PORTAL_CONFIG; with neither set only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("PORTAL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("PORTAL_ADDR", c.HTTPAddr)
	c.Database.Driver = getEnv("PORTAL_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("PORTAL_DB_DSN", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvInt("PORTAL_DB_MAX_OPEN", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("PORTAL_DB_MAX_IDLE", c.Database.MaxIdleConns)
	c.Database.AutoMigrate = getEnvBool("PORTAL_DB_AUTO_MIGRATE", c.Database.AutoMigrate)
	c.SchemaDir = getEnv("PORTAL_SCHEMA_DIR", c.SchemaDir)

	c.Auth.JWTSecret = getEnv("PORTAL_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AdminEmail = getEnv("PORTAL_ADMIN_EMAIL", c.Auth.AdminEmail)
	c.Auth.AdminPass = getEnv("PORTAL_ADMIN_PASS", c.Auth.AdminPass)

	c.Upload.Backend = getEnv("PORTAL_UPLOAD_BACKEND", c.Upload.Backend)
	c.Upload.Dir = getEnv("PORTAL_UPLOAD_DIR", c.Upload.Dir)
	c.Upload.BaseURL = getEnv("PORTAL_UPLOAD_BASE_URL", c.Upload.BaseURL)
	c.Upload.MaxBytes = int64(getEnvInt("PORTAL_UPLOAD_MAX_BYTES", int(c.Upload.MaxBytes)))

	c.OxiDB.Host = getEnv("OXIDB_HOST", c.OxiDB.Host)
	c.OxiDB.Port = getEnvInt("OXIDB_PORT", c.OxiDB.Port)
	c.OxiDB.PoolSize = getEnvInt("PORTAL_OXIDB_POOL_SIZE", c.OxiDB.PoolSize)
	c.OxiDB.Bucket = getEnv("PORTAL_OXIDB_BUCKET", c.OxiDB.Bucket)

	c.GelfAddr = getEnv("PORTAL_GELF_ADDR", c.GelfAddr)
	c.Notify.WebhookURL = getEnv("PORTAL_NOTIFY_WEBHOOK", c.Notify.WebhookURL)
	c.Notify.QueueSize = getEnvInt("PORTAL_NOTIFY_QUEUE", c.Notify.QueueSize)
	c.CORSOrigin = getEnv("PORTAL_CORS_ORIGIN", c.CORSOrigin)
}

func (c *Config) validate() error {
	var problems []error
	switch c.Database.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		problems = append(problems, fmt.Errorf("database.driver %q: want sqlite, postgres or pgx", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.AdminEmail == "" || c.Auth.AdminPass == "" {
		problems = append(problems, errors.New("auth.admin_email and auth.admin_password are required"))
	}
	switch c.Upload.Backend {
	case "disk":
		if c.Upload.Dir == "" {
			problems = append(problems, errors.New("upload.dir is required for the disk backend"))
		}
	case "oxidb":
		if c.OxiDB.Host == "" || c.OxiDB.Port == 0 || c.OxiDB.Bucket == "" {
			problems = append(problems, errors.New("oxidb.host, oxidb.port and oxidb.bucket are required for the oxidb backend"))
		}
	default:
		problems = append(problems, fmt.Errorf("upload.backend %q: want disk or oxidb", c.Upload.Backend))
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = upload.DefaultMaxBytes
	}
	if c.Notify.QueueSize < 1 {
		c.Notify.QueueSize = 1
	}
	c.Upload.BaseURL = strings.TrimRight(c.Upload.BaseURL, "/")
	return errors.Join(problems...)
}

// DBOptions returns the pool settings for db.Open.
func (c *Config) DBOptions() db.Options {
	return db.Options{
		Driver:          c.Database.Driver,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
