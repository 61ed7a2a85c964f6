package config

import (
	"fmt"
	"strconv"
	"time"

	"galaxy-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Galaxy    GalaxyConfig
	Session   SessionConfig
}

type RedisConfig struct {
	Enabled   bool
	URL       string
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// GalaxyConfig holds generation limits and the defaults used when a
// request omits parameters.
type GalaxyConfig struct {
	MaxCount               int
	DefaultCount           int
	DefaultSize            float64
	DefaultRadius          float64
	DefaultBranches        int
	DefaultSpin            float64
	DefaultRandomness      float64
	DefaultRandomnessPower float64
	DefaultInnerColor      string
	DefaultOuterColor      string
}

type SessionConfig struct {
	TTL           time.Duration
	MaxSessions   int
	Debounce      time.Duration
	PreviewWidth  int
	PreviewHeight int
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Load reads the configuration from the environment without touching GlobalConfig.
func Load() (*Config, error) {
	config, err := load()
	if err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Galaxy:    loadGalaxyConfig(),
		Session:   loadSessionConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "false") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:   enabled,
		URL:       redisURL,
		Host:      utils.GetEnv("REDIS_HOST", "localhost"),
		Port:      utils.GetEnv("REDIS_PORT", "6379"),
		Password:  utils.GetEnv("REDIS_PASSWORD", ""),
		DB:        db,
		KeyPrefix: utils.GetEnv("REDIS_KEY_PREFIX", "galaxy:"),
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "60"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Enabled:         utils.GetEnv("DB_ENABLED", "true") == "true",
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "galaxy"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadAuthConfig() AuthConfig {
	tokenExpiration, _ := strconv.Atoi(utils.GetEnv("JWT_EXPIRATION_HOURS", "24"))

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		CookieSecure:    utils.GetEnv("COOKIE_SECURE", "false") == "true",
		CookieSameSite:  utils.GetEnv("COOKIE_SAMESITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production" || utils.GetEnv("LOG_FORMAT", "text") == "json"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func loadGalaxyConfig() GalaxyConfig {
	return GalaxyConfig{
		MaxCount:               utils.GetEnvInt("GALAXY_MAX_COUNT", 1_000_000),
		DefaultCount:           utils.GetEnvInt("GALAXY_DEFAULT_COUNT", 100_000),
		DefaultSize:            utils.GetEnvFloat("GALAXY_DEFAULT_SIZE", 0.01),
		DefaultRadius:          utils.GetEnvFloat("GALAXY_DEFAULT_RADIUS", 5),
		DefaultBranches:        utils.GetEnvInt("GALAXY_DEFAULT_BRANCHES", 5),
		DefaultSpin:            utils.GetEnvFloat("GALAXY_DEFAULT_SPIN", 1),
		DefaultRandomness:      utils.GetEnvFloat("GALAXY_DEFAULT_RANDOMNESS", 0.2),
		DefaultRandomnessPower: utils.GetEnvFloat("GALAXY_DEFAULT_RANDOMNESS_POWER", 3),
		DefaultInnerColor:      utils.GetEnv("GALAXY_DEFAULT_INNER_COLOR", "#ff6030"),
		DefaultOuterColor:      utils.GetEnv("GALAXY_DEFAULT_OUTER_COLOR", "#1b3984"),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           utils.GetEnvDuration("SESSION_TTL", 24*time.Hour),
		MaxSessions:   utils.GetEnvInt("SESSION_MAX", 64),
		Debounce:      utils.GetEnvDuration("SESSION_DEBOUNCE", 250*time.Millisecond),
		PreviewWidth:  utils.GetEnvInt("PREVIEW_WIDTH", 512),
		PreviewHeight: utils.GetEnvInt("PREVIEW_HEIGHT", 512),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	if c.Galaxy.MaxCount <= 0 {
		return fmt.Errorf("GALAXY_MAX_COUNT must be positive")
	}

	if c.Galaxy.DefaultCount < 0 || c.Galaxy.DefaultCount > c.Galaxy.MaxCount {
		return fmt.Errorf("GALAXY_DEFAULT_COUNT must be between 0 and GALAXY_MAX_COUNT")
	}

	if c.Session.PreviewWidth <= 0 || c.Session.PreviewHeight <= 0 {
		return fmt.Errorf("PREVIEW_WIDTH and PREVIEW_HEIGHT must be positive")
	}

	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("SESSION_MAX must be positive")
	}

	return nil
}

// AdminAuthConfigured reports whether admin tokens can be issued and checked.
func (c *Config) AdminAuthConfigured() bool {
	return c.Auth.JWTSecret != ""
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
