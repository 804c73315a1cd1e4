package pubsite

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/eringen/pubsite/blocks"
)

// Environments.
const (
	EnvDev        = "dev"
	EnvProduction = "production"
)

// SiteConfig holds all configuration for a pubsite site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Site")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Environment  string   `yaml:"environment"` // dev or production (default dev)
	Addr         string   `yaml:"addr"`        // Listen address (default ":3000")
	DatabasePath string   `yaml:"database_path"`
	MediaDir     string   `yaml:"media_dir"` // Uploaded images when S3 is not configured
	AllowedHosts []string `yaml:"allowed_hosts"`
	LogLevel     string   `yaml:"log_level"`

	AdminPassword string `yaml:"admin_password"` // Required
	SessionSecret string `yaml:"session_secret"` // Required
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	PageCacheTTL time.Duration `yaml:"page_cache_ttl"` // Live page cache TTL (default 5min)

	Content ContentConfig `yaml:"content"`
	Redis   RedisConfig   `yaml:"redis"`
	Embeds  EmbedsConfig  `yaml:"embeds"`
	S3      S3Config      `yaml:"s3"`
	SMTP    SMTPConfig    `yaml:"smtp"`
}

// ContentConfig controls how stored block streams are read.
type ContentConfig struct {
	// LenientStreams keeps blocks of unknown type as opaque values instead
	// of failing the page.
	LenientStreams bool `yaml:"lenient_streams"`
}

// Mode returns the stream parse mode.
func (c ContentConfig) Mode() blocks.Mode {
	if c.LenientStreams {
		return blocks.Lenient
	}
	return blocks.Strict
}

type RedisConfig struct {
	URL string `yaml:"url"` // Embed cache; in-memory when empty
}

type EmbedsConfig struct {
	RateLimit float64          `yaml:"rate_limit"` // Provider requests per second (default 5)
	Burst     int              `yaml:"burst"`      // default 10
	CacheTTL  time.Duration    `yaml:"cache_ttl"`  // default 24h
	MaxWidth  int              `yaml:"max_width"`  // default 800
	Providers []ProviderConfig `yaml:"providers"`  // In addition to the built-in ones
}

type ProviderConfig struct {
	Name     string   `yaml:"name"`
	Endpoint string   `yaml:"endpoint"`
	Patterns []string `yaml:"patterns"`
}

// S3Config enables S3 image storage when Bucket is set.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
	Prefix          string `yaml:"prefix"`
}

// SMTPConfig enables form emails over SMTP when Host is set. Without it
// emails are written to the log.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Site"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Environment == "" {
		c.Environment = EnvDev
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.LogLevel == "" {
		if c.IsProduction() {
			c.LogLevel = "info"
		} else {
			c.LogLevel = "debug"
		}
	}
	if c.PageCacheTTL == 0 {
		c.PageCacheTTL = 5 * time.Minute
	}
	if c.Embeds.RateLimit == 0 {
		c.Embeds.RateLimit = 5
	}
	if c.Embeds.Burst == 0 {
		c.Embeds.Burst = 10
	}
	if c.Embeds.CacheTTL == 0 {
		c.Embeds.CacheTTL = 24 * time.Hour
	}
	if c.Embeds.MaxWidth == 0 {
		c.Embeds.MaxWidth = 800
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// IsProduction reports whether the site runs with production settings.
func (c SiteConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate checks the settings New cannot default.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("admin password is required (ADMIN_PASSWORD)"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session secret is required (SESSION_SECRET)"))
	}
	if c.Environment != EnvDev && c.Environment != EnvProduction {
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("pubsite: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfig reads .env (if present), then the YAML file at path (if path is
// not empty), then applies environment overrides and defaults.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SITE_NAME", &c.Name)
	setString("SITE_URL", &c.URL)
	setString("SITE_DESCRIPTION", &c.Description)
	setString("SITE_AUTHOR", &c.Author)
	setString("PUBSITE_ENV", &c.Environment)
	setString("ADDR", &c.Addr)
	setString("DATABASE_PATH", &c.DatabasePath)
	setString("MEDIA_DIR", &c.MediaDir)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("ADMIN_PASSWORD", &c.AdminPassword)
	setString("SESSION_SECRET", &c.SessionSecret)
	setString("REDIS_URL", &c.Redis.URL)
	setString("S3_BUCKET", &c.S3.Bucket)
	setString("S3_REGION", &c.S3.Region)
	setString("S3_ENDPOINT", &c.S3.Endpoint)
	setString("S3_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	setString("S3_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)
	setString("S3_PUBLIC_URL", &c.S3.PublicURL)
	setString("SMTP_HOST", &c.SMTP.Host)
	setString("SMTP_USERNAME", &c.SMTP.Username)
	setString("SMTP_PASSWORD", &c.SMTP.Password)
	setString("SMTP_FROM", &c.SMTP.From)

	if v := os.Getenv("ALLOWED_HOSTS"); v != "" {
		c.AllowedHosts = FilterEmpty(strings.Split(v, ","))
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("LENIENT_STREAMS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LENIENT_STREAMS: %w", err)
		}
		c.Content.LenientStreams = b
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = n
	}
	if v := os.Getenv("PAGE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PAGE_CACHE_TTL: %w", err)
		}
		c.PageCacheTTL = d
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Log = l
		a.logSet = true
	}
}

// WithCatalog replaces the default block catalog, e.g. to add variants or policies.
func WithCatalog(c *blocks.Catalog) Option {
	return func(a *App) {
		a.Catalog = c
	}
}

// WithTemplates overrides block templates by identifier.
func WithTemplates(ts blocks.TemplateSet) Option {
	return func(a *App) {
		for k, v := range ts {
			a.templates[k] = v
		}
	}
}

// WithEmbedResolver replaces the oEmbed resolver built from the config.
func WithEmbedResolver(r blocks.EmbedResolver) Option {
	return func(a *App) {
		a.embeds = r
	}
}

// WithImageStorage replaces the image storage built from the config.
func WithImageStorage(s ImageStorage) Option {
	return func(a *App) {
		a.images = s
	}
}

// WithMailer replaces the mailer built from the config.
func WithMailer(m Mailer) Option {
	return func(a *App) {
		a.mailer = m
	}
}
