package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes
const (
	BackendMock   = "mock"
	BackendRemote = "remote"
)

// Session store drivers
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreMySQL    = "mysql"
	SessionStoreSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Data-access backend configuration
	Backend BackendConfig

	// Session configuration
	Session SessionConfig

	// Database configuration (only used by SQL session stores)
	Database DatabaseConfig

	// JWT configuration (used by the simulated backend to issue tokens)
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	Timezone    string // IANA zone used to display departure times
}

// BackendConfig selects and configures the data-access implementation
type BackendConfig struct {
	Mode           string // "mock" or "remote"
	BaseURL        string // remote API base URL, e.g. http://localhost:8000
	Timeout        time.Duration
	MockLatency    time.Duration // artificial delay per simulated call
	MockSeedAdmin  bool          // seed an admin account in the simulated dataset
	MockAdminEmail string
	MockAdminPass  string
}

// SessionConfig holds session cookie and store configuration
type SessionConfig struct {
	Store      string // memory, postgres, mysql, sqlite
	CookieName string
	MaxAge     time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	SecureCookies    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Environment: environment,
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Timezone:    getEnv("APP_TIMEZONE", "Africa/Kigali"),
		},
		Backend: BackendConfig{
			Mode:           strings.ToLower(getEnv("BACKEND_MODE", BackendMock)),
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
			Timeout:        time.Duration(getEnvAsInt("API_TIMEOUT_SECONDS", 15)) * time.Second,
			MockLatency:    time.Duration(getEnvAsInt("MOCK_LATENCY_MS", 300)) * time.Millisecond,
			MockSeedAdmin:  getEnvAsBool("MOCK_SEED_ADMIN", true),
			MockAdminEmail: getEnv("MOCK_ADMIN_EMAIL", "admin@busticket.rw"),
			MockAdminPass:  getEnv("MOCK_ADMIN_PASSWORD", "admin123"),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
			CookieName: getEnv("SESSION_COOKIE_NAME", "busticket_session"),
			MaxAge:     time.Duration(getEnvAsInt("SESSION_MAX_AGE_SECONDS", 604800)) * time.Second,
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 86400)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			SecureCookies:    getEnvAsBool("SECURE_COOKIES", environment == "production"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case BackendMock:
		// The simulated backend signs its own tokens; a random secret is fine
		// for development but production must pin one.
		if c.JWT.Secret == "" && c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required for the mock backend in production")
		}
	case BackendRemote:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("API_BASE_URL is required for remote backend mode")
		}
		if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
			return fmt.Errorf("API_BASE_URL must be an http(s) URL: %s", c.Backend.BaseURL)
		}
	default:
		return fmt.Errorf("invalid BACKEND_MODE: %s (must be 'mock' or 'remote')", c.Backend.Mode)
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStorePostgres, SessionStoreMySQL, SessionStoreSQLite:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s session store", c.Session.Store)
		}
	default:
		return fmt.Errorf("invalid SESSION_STORE: %s (must be memory, postgres, mysql or sqlite)", c.Session.Store)
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
