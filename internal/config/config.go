// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Session backends.
const (
	SessionMemory    = "memory"
	SessionFirestore = "firestore"
)

var defaultAllowedAttributes = []string{"pa_material", "pa_room-type-usage", "pa_finish", "pa_colour"}

// Config holds all service configuration.
// Environment determines whether store secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production and for Firestore sessions)
	GCPProject string
	SecretID   string

	// Store credentials (loaded from secrets)
	Store StoreConfig

	CORSOrigins []string

	Session SessionConfig
	Cache   CacheConfig
	Payment PaymentConfig

	// PendingOrdersPageSize is the page size for legacy cart scans.
	PendingOrdersPageSize int
	AllowedAttributes     []string
}

// StoreConfig contains the store secrets.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	SiteURL        string `json:"site_url"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	JWTSecret      string `json:"jwt_secret"`
}

// SessionConfig selects and tunes the cart session store.
type SessionConfig struct {
	Backend       string
	Collection    string
	TTL           time.Duration
	SweepInterval time.Duration
}

// CacheConfig sizes the attribute slug cache.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// PaymentConfig tunes the simulated gateway.
type PaymentConfig struct {
	Delay       time.Duration
	DeclineRate float64
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:              envOrDefault("PORT", "8080"),
		Environment:       envOrDefault("ENVIRONMENT", "development"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		GCPProject:        os.Getenv("GCP_PROJECT"),
		SecretID:          envOrDefault("SECRET_ID", "storefront-gateway"),
		CORSOrigins:       splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		AllowedAttributes: splitList(os.Getenv("ALLOWED_ATTRIBUTES")),
		Session: SessionConfig{
			Backend:    envOrDefault("SESSION_BACKEND", SessionMemory),
			Collection: envOrDefault("SESSION_COLLECTION", "cart_sessions"),
		},
	}

	var err error
	if cfg.Session.TTL, err = envDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.SweepInterval, err = envDuration("SESSION_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Cache.Size, err = envInt("CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.Cache.TTL, err = envDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Payment.Delay, err = envDuration("PAYMENT_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Payment.DeclineRate, err = envFloat("PAYMENT_DECLINE_RATE", 0.05); err != nil {
		return nil, err
	}
	if cfg.PendingOrdersPageSize, err = envInt("PENDING_ORDERS_PAGE_SIZE", 10); err != nil {
		return nil, err
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port              string      `json:"port"`
		Environment       string      `json:"environment"`
		LogLevel          string      `json:"log_level"`
		GCPProject        string      `json:"gcp_project"`
		Store             StoreConfig `json:"store"`
		CORSOrigins       []string    `json:"cors_allowed_origins"`
		AllowedAttributes []string    `json:"allowed_attributes"`
		Session           struct {
			Backend       string `json:"backend"`
			Collection    string `json:"collection"`
			TTL           string `json:"ttl"`
			SweepInterval string `json:"sweep_interval"`
		} `json:"session"`
		Cache struct {
			Size int    `json:"size"`
			TTL  string `json:"ttl"`
		} `json:"cache"`
		Payment struct {
			Delay       string   `json:"delay"`
			DeclineRate *float64 `json:"decline_rate"`
		} `json:"payment"`
		PendingOrdersPageSize int `json:"pending_orders_page_size"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:              withDefault(fileConfig.Port, "8080"),
		Environment:       withDefault(fileConfig.Environment, "development"),
		LogLevel:          withDefault(fileConfig.LogLevel, "info"),
		GCPProject:        fileConfig.GCPProject,
		Store:             fileConfig.Store,
		CORSOrigins:       fileConfig.CORSOrigins,
		AllowedAttributes: fileConfig.AllowedAttributes,
		Session: SessionConfig{
			Backend:    withDefault(fileConfig.Session.Backend, SessionMemory),
			Collection: withDefault(fileConfig.Session.Collection, "cart_sessions"),
		},
		Cache:                 CacheConfig{Size: fileConfig.Cache.Size},
		PendingOrdersPageSize: fileConfig.PendingOrdersPageSize,
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:5173"}
	}

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"session.ttl", fileConfig.Session.TTL, 24 * time.Hour, &cfg.Session.TTL},
		{"session.sweep_interval", fileConfig.Session.SweepInterval, time.Hour, &cfg.Session.SweepInterval},
		{"cache.ttl", fileConfig.Cache.TTL, time.Hour, &cfg.Cache.TTL},
		{"payment.delay", fileConfig.Payment.Delay, 2 * time.Second, &cfg.Payment.Delay},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.name, d.raw, d.def); err != nil {
			return nil, err
		}
	}

	cfg.Payment.DeclineRate = 0.05
	if fileConfig.Payment.DeclineRate != nil {
		cfg.Payment.DeclineRate = *fileConfig.Payment.DeclineRate
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches the store secrets from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads the store secrets from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() {
	c.Store = StoreConfig{
		SiteURL:        os.Getenv("WC_SITE_URL"),
		ConsumerKey:    os.Getenv("WC_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("WC_CONSUMER_SECRET"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
	}
}

func (c *Config) applyDefaults() {
	if len(c.AllowedAttributes) == 0 {
		c.AllowedAttributes = append([]string(nil), defaultAllowedAttributes...)
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 256
	}
	if c.PendingOrdersPageSize <= 0 {
		c.PendingOrdersPageSize = 10
	}
	c.Store.SiteURL = strings.TrimSuffix(c.Store.SiteURL, "/")
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.SiteURL == "" {
		return fmt.Errorf("site_url is required")
	}
	if c.Store.ConsumerKey == "" {
		return fmt.Errorf("consumer_key is required")
	}
	if c.Store.ConsumerSecret == "" {
		return fmt.Errorf("consumer_secret is required")
	}
	if c.Store.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}

	u, err := url.Parse(c.Store.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid site_url: %q", c.Store.SiteURL)
	}

	switch c.Session.Backend {
	case SessionMemory:
	case SessionFirestore:
		if c.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT required for firestore sessions")
		}
	default:
		return fmt.Errorf("unknown session backend %q (memory or firestore)", c.Session.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep interval must be positive")
	}
	if c.Payment.DeclineRate < 0 || c.Payment.DeclineRate > 1 {
		return fmt.Errorf("payment decline rate must be between 0 and 1, got %v", c.Payment.DeclineRate)
	}
	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key), def)
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
