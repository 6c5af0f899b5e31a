// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/dispatch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Backends
// --------------------------------------------------------------------------

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"

	TransportFCM  = "fcm"
	TransportAMQP = "amqp"
	TransportLog  = "log"
)

// WakeUpKey is the activation key accepted as a liveness probe. It answers
// 200 without running a dispatch cycle.
const WakeUpKey = "wake_up"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	LogLevel    string // debug, info, warn, error
	LogFormat   string // text | json

	// Trigger
	ActivationKey string

	// Firebase service account
	FirebaseProjectID       string
	FirebasePrivateKey      string
	FirebaseClientEmail     string
	FirebaseCredentialsFile string

	// Stores
	StoreBackend     string
	EventsCollection string
	UsersCollection  string

	// Database (postgres backend)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Transport
	Transport      string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	SendTimeout    time.Duration

	// Reminders
	Location *time.Location

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	loc, err := loadLocation(envOr("REMINDER_TIMEZONE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("PORT", envInt("API_PORT", 3000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "text"),

		ActivationKey: envOr("HTTP_ACTIVATION_KEY", envOr("ACTIVATION_KEY", "")),

		FirebaseProjectID:       unescape(envOr("FIREBASE_PROJECT_ID", "")),
		FirebasePrivateKey:      unescape(envOr("FIREBASE_PRIVATE_KEY", "")),
		FirebaseClientEmail:     unescape(envOr("FIREBASE_CLIENT_EMAIL", "")),
		FirebaseCredentialsFile: envOr("FIREBASE_CREDENTIALS_FILE", ""),

		StoreBackend:     strings.ToLower(envOr("STORE_BACKEND", StoreFirestore)),
		EventsCollection: envOr("EVENTS_COLLECTION", "root_special_events"),
		UsersCollection:  envOr("USERS_COLLECTION", "users"),

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		Transport:      strings.ToLower(envOr("TRANSPORT", TransportFCM)),
		AMQPURL:        envOr("AMQP_URL", ""),
		AMQPExchange:   envOr("AMQP_EXCHANGE", ""),
		AMQPRoutingKey: envOr("AMQP_ROUTING_KEY", "push_notifications"),
		SendTimeout:    time.Duration(envInt("SEND_TIMEOUT_SECONDS", 10)) * time.Second,

		Location: loc,

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFirestore:
		if !c.HasFirebaseCredentials() {
			return fmt.Errorf("firestore store requires FIREBASE_PROJECT_ID, FIREBASE_PRIVATE_KEY and FIREBASE_CLIENT_EMAIL or FIREBASE_CREDENTIALS_FILE")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres store requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Transport {
	case TransportFCM:
		if !c.HasFirebaseCredentials() {
			return fmt.Errorf("fcm transport requires firebase credentials")
		}
	case TransportAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("amqp transport requires AMQP_URL")
		}
	case TransportLog:
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}
	return nil
}

// ValidateServer checks the options only the HTTP trigger needs. The CLI
// runner does not require an activation key.
func (c *Config) ValidateServer() error {
	if c.ActivationKey == "" {
		return fmt.Errorf("HTTP_ACTIVATION_KEY must be set")
	}
	if c.ActivationKey == WakeUpKey {
		return fmt.Errorf("HTTP_ACTIVATION_KEY must not be %q", WakeUpKey)
	}
	return nil
}

// HasFirebaseCredentials reports whether a service account is configured,
// either inline or as a file.
func (c *Config) HasFirebaseCredentials() bool {
	if c.FirebaseCredentialsFile != "" {
		return true
	}
	return c.FirebaseProjectID != "" && c.FirebasePrivateKey != "" && c.FirebaseClientEmail != ""
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// unescape expands literal "\n" sequences. Hosting dashboards store the PEM
// private key on a single line.
func unescape(v string) string {
	return strings.ReplaceAll(v, `\n`, "\n")
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load REMINDER_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
