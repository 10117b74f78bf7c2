// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database    DatabaseConfig    `json:"database"`
	Server      ServerConfig      `json:"server"`
	Security    SecurityConfig    `json:"security"`
	JWT         JWTConfig         `json:"jwt"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Cache       CacheConfig       `json:"cache"`
	Deployment  DeploymentConfig  `json:"deployment"`
	NOWPayments NOWPaymentsConfig `json:"nowpayments"`
	Settlement  SettlementConfig  `json:"settlement"`
	Shop        ShopConfig        `json:"shop"`
	Telegram    TelegramConfig    `json:"telegram"`
	Kafka       KafkaConfig       `json:"kafka"`
	Admin       AdminConfig       `json:"admin"`
	Internal    InternalConfig    `json:"internal"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	TrustedProxies  []string      `json:"trusted_proxies"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	AuthRateLimit   int           `json:"auth_rate_limit"`   // requests per minute
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per minute
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	HSTSMaxAge     int      `json:"hsts_max_age"`
	CSPPolicy      string   `json:"csp_policy"`
	ReferrerPolicy string   `json:"referrer_policy"`
	IPBlacklist    []string `json:"ip_blacklist"`

	BcryptCost int `json:"bcrypt_cost"`
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	PrivateKey      string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey       string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys      bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`

	EnableAccessLog bool `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	RedisURL            string        `json:"redis_url"`
	RedisDB             int           `json:"redis_db"`
	RedisPassword       string        `json:"redis_password"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// NOWPaymentsConfig holds the IPN verification settings
type NOWPaymentsConfig struct {
	IPNSecret       string `json:"-"`
	VerifySignature bool   `json:"verify_signature"`
}

// SettlementConfig bounds the settlement engine and its background jobs
type SettlementConfig struct {
	StoreTimeout    time.Duration `json:"store_timeout"`
	FinalizeTimeout time.Duration `json:"finalize_timeout"`
	CreditTimeout   time.Duration `json:"credit_timeout"`
	ReleaseTimeout  time.Duration `json:"release_timeout"`
	NotifyTimeout   time.Duration `json:"notify_timeout"`
	LockTimeout     time.Duration `json:"lock_timeout"`
	LockTTL         time.Duration `json:"lock_ttl"`
	Workers         int           `json:"workers"`
	QueueSize       int           `json:"queue_size"`
	AckWait         time.Duration `json:"ack_wait"`
	FiatCurrency    string        `json:"fiat_currency"`
	PendingTTL      time.Duration `json:"pending_ttl"`
	SweepInterval   time.Duration `json:"sweep_interval"`
	SweepBatchSize  int           `json:"sweep_batch_size"`
}

// ShopConfig points at the shop service that delivers baskets
type ShopConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

type TelegramConfig struct {
	BotToken    string        `json:"-"`
	AdminChatID int64         `json:"admin_chat_id"`
	APIBaseURL  string        `json:"api_base_url"`
	Retries     int           `json:"retries"`
	Timeout     time.Duration `json:"timeout"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type AdminConfig struct {
	BootstrapUsername string `json:"bootstrap_username"`
	BootstrapPassword string `json:"-"`
}

// InternalConfig guards the endpoints called by other internal services
type InternalConfig struct {
	APIKeys []string `json:"-"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := loadFromEnv()

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromEnv() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024), // 1MB
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-API-Key"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 20),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			HSTSMaxAge:       getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
			CSPPolicy:        getEnvString("CSP_POLICY", "default-src 'self'; frame-ancestors 'none';"),
			ReferrerPolicy:   getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			IPBlacklist:      getEnvStringSlice("IP_BLACKLIST", []string{}),
			BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:      getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:       getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:      getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			Issuer:          getEnvString("JWT_ISSUER", "ipn-settlement"),
			Audience:        getEnvString("JWT_AUDIENCE", "ipn-settlement-admin"),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Format:          getEnvString("LOG_FORMAT", "json"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "/var/log/ipn-settlement/app.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:             getEnvBool("CACHE_ENABLED", true),
			RedisURL:            getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:             getEnvInt("CACHE_REDIS_DB", 0),
			RedisPassword:       getEnvString("REDIS_PASSWORD", ""),
			HealthCheckInterval: getEnvDuration("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
		NOWPayments: NOWPaymentsConfig{
			IPNSecret:       getEnvString("NOWPAYMENTS_IPN_SECRET", ""),
			VerifySignature: getEnvBool("NOWPAYMENTS_VERIFY_SIGNATURE", true),
		},
		Settlement: SettlementConfig{
			StoreTimeout:    getEnvDuration("SETTLEMENT_STORE_TIMEOUT", 10*time.Second),
			FinalizeTimeout: getEnvDuration("SETTLEMENT_FINALIZE_TIMEOUT", 60*time.Second),
			CreditTimeout:   getEnvDuration("SETTLEMENT_CREDIT_TIMEOUT", 30*time.Second),
			ReleaseTimeout:  getEnvDuration("SETTLEMENT_RELEASE_TIMEOUT", 30*time.Second),
			NotifyTimeout:   getEnvDuration("SETTLEMENT_NOTIFY_TIMEOUT", 10*time.Second),
			LockTimeout:     getEnvDuration("SETTLEMENT_LOCK_TIMEOUT", 90*time.Second),
			LockTTL:         getEnvDuration("SETTLEMENT_LOCK_TTL", 3*time.Minute),
			Workers:         getEnvInt("SETTLEMENT_WORKERS", 4),
			QueueSize:       getEnvInt("SETTLEMENT_QUEUE_SIZE", 256),
			AckWait:         getEnvDuration("SETTLEMENT_ACK_WAIT", 5*time.Second),
			FiatCurrency:    getEnvString("SETTLEMENT_FIAT_CURRENCY", "EUR"),
			PendingTTL:      getEnvDuration("SETTLEMENT_PENDING_TTL", 24*time.Hour),
			SweepInterval:   getEnvDuration("SETTLEMENT_SWEEP_INTERVAL", 10*time.Minute),
			SweepBatchSize:  getEnvInt("SETTLEMENT_SWEEP_BATCH_SIZE", 100),
		},
		Shop: ShopConfig{
			BaseURL: getEnvString("SHOP_BASE_URL", ""),
			APIKey:  getEnvString("SHOP_API_KEY", ""),
			Timeout: getEnvDuration("SHOP_TIMEOUT", 30*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnvString("TELEGRAM_BOT_TOKEN", ""),
			AdminChatID: getEnvInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
			APIBaseURL:  getEnvString("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			Retries:     getEnvInt("TELEGRAM_RETRIES", 3),
			Timeout:     getEnvDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvStringSlice("KAFKA_BROKERS", []string{}),
			Topic:   getEnvString("KAFKA_TOPIC", "settlement-events"),
		},
		Admin: AdminConfig{
			BootstrapUsername: getEnvString("ADMIN_BOOTSTRAP_USERNAME", ""),
			BootstrapPassword: getEnvString("ADMIN_BOOTSTRAP_PASSWORD", ""),
		},
		Internal: InternalConfig{
			APIKeys: getEnvStringSlice("INTERNAL_API_KEYS", []string{}),
		},
	}
}

// loadEnvFile loads environment variables from path if it exists.
// Variables already present in the environment are kept.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if !cfg.JWT.UseRSAKeys && len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.UseRSAKeys && (cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "") {
		errors = append(errors, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		errors = append(errors, "JWT_REFRESH_TOKEN_TTL must be positive")
	}
	if cfg.JWT.Issuer == "" {
		errors = append(errors, "JWT_ISSUER is required")
	}
	if cfg.JWT.Audience == "" {
		errors = append(errors, "JWT_AUDIENCE is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	if cfg.Security.BcryptCost < 10 || cfg.Security.BcryptCost > 14 {
		errors = append(errors, "BCRYPT_COST must be between 10 and 14")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if (cfg.Logging.Output == "file" || cfg.Logging.Output == "both") && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Validate NOWPayments configuration
	if cfg.NOWPayments.VerifySignature && cfg.NOWPayments.IPNSecret == "" {
		errors = append(errors, "NOWPAYMENTS_IPN_SECRET is required when signature verification is enabled")
	}

	// Validate settlement configuration
	s := cfg.Settlement
	for name, d := range map[string]time.Duration{
		"SETTLEMENT_STORE_TIMEOUT":    s.StoreTimeout,
		"SETTLEMENT_FINALIZE_TIMEOUT": s.FinalizeTimeout,
		"SETTLEMENT_CREDIT_TIMEOUT":   s.CreditTimeout,
		"SETTLEMENT_RELEASE_TIMEOUT":  s.ReleaseTimeout,
		"SETTLEMENT_NOTIFY_TIMEOUT":   s.NotifyTimeout,
		"SETTLEMENT_LOCK_TIMEOUT":     s.LockTimeout,
		"SETTLEMENT_LOCK_TTL":         s.LockTTL,
		"SETTLEMENT_ACK_WAIT":         s.AckWait,
		"SETTLEMENT_PENDING_TTL":      s.PendingTTL,
		"SETTLEMENT_SWEEP_INTERVAL":   s.SweepInterval,
	} {
		if d <= 0 {
			errors = append(errors, name+" must be positive")
		}
	}
	if s.LockTTL > 0 && s.FinalizeTimeout > 0 && s.LockTTL <= s.FinalizeTimeout {
		errors = append(errors, "SETTLEMENT_LOCK_TTL must exceed SETTLEMENT_FINALIZE_TIMEOUT")
	}
	if s.Workers <= 0 {
		errors = append(errors, "SETTLEMENT_WORKERS must be positive")
	}
	if s.QueueSize <= 0 {
		errors = append(errors, "SETTLEMENT_QUEUE_SIZE must be positive")
	}
	if s.SweepBatchSize <= 0 {
		errors = append(errors, "SETTLEMENT_SWEEP_BATCH_SIZE must be positive")
	}
	if len(s.FiatCurrency) != 3 {
		errors = append(errors, "SETTLEMENT_FIAT_CURRENCY must be a 3-letter currency code")
	}

	if cfg.Shop.BaseURL == "" {
		errors = append(errors, "SHOP_BASE_URL is required")
	}
	if cfg.Shop.Timeout <= 0 {
		errors = append(errors, "SHOP_TIMEOUT must be positive")
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID == 0 {
		errors = append(errors, "TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			errors = append(errors, "KAFKA_BROKERS is required when Kafka is enabled")
		}
		if cfg.Kafka.Topic == "" {
			errors = append(errors, "KAFKA_TOPIC is required when Kafka is enabled")
		}
	}

	if (cfg.Admin.BootstrapUsername == "") != (cfg.Admin.BootstrapPassword == "") {
		errors = append(errors, "ADMIN_BOOTSTRAP_USERNAME and ADMIN_BOOTSTRAP_PASSWORD must be set together")
	}
	if cfg.Admin.BootstrapPassword != "" && len(cfg.Admin.BootstrapPassword) < 8 {
		errors = append(errors, "ADMIN_BOOTSTRAP_PASSWORD must be at least 8 characters long")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
