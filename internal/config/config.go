package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Mailer    MailerConfig    `yaml:"mailer"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Subscribe SubscribeConfig `yaml:"subscribe"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StorageConfig holds subscriber store configuration
type StorageConfig struct {
	Type          string `yaml:"type"` // "dynamodb" or "memory"
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// MailerConfig holds AWS SES confirmation email configuration
type MailerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromEmail      string `yaml:"from_email"` // Must be a pre-verified SES identity
	Subject        string `yaml:"subject"`
	Body           string `yaml:"body"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c MailerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds bearer-token validation configuration
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Issuer   string `yaml:"issuer"`   // e.g. https://cognito-idp.us-east-1.amazonaws.com/<pool-id>
	ClientID string `yaml:"client_id"`
	JWKSURL  string `yaml:"jwks_url"` // Defaults to <issuer>/.well-known/jwks.json
}

// RateLimitConfig holds per-client subscribe rate limiting
type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	PerMinute     int    `yaml:"per_minute"`
	WindowSeconds int    `yaml:"window_seconds"`
}

// Window returns the rate limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// SubscribeConfig holds subscription handler policy flags
type SubscribeConfig struct {
	RequireEmail         bool `yaml:"require_email"`
	NotificationsEnabled bool `yaml:"notifications_enabled"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	// require_email defaults to true; the lenient variant must be opted into
	cfg.Subscribe.RequireEmail = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Mailer.Region == "" {
		cfg.Mailer.Region = cfg.Storage.AWSRegion
	}
	if cfg.Mailer.TimeoutSeconds == 0 {
		cfg.Mailer.TimeoutSeconds = 30
	}
	if cfg.Mailer.Subject == "" {
		cfg.Mailer.Subject = "Welcome to LaunchList!"
	}
	if cfg.Mailer.Body == "" {
		cfg.Mailer.Body = "Thanks for subscribing."
	}
	if cfg.Auth.JWKSURL == "" && cfg.Auth.Issuer != "" {
		cfg.Auth.JWKSURL = cfg.Auth.Issuer + "/.well-known/jwks.json"
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 60
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if table := os.Getenv("TABLE_NAME"); table != "" {
		cfg.Storage.DynamoDBTable = table
		cfg.Storage.Type = "dynamodb"
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Storage.AWSRegion = region
	}
	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.Mailer.FromEmail = from
		cfg.Mailer.Enabled = true
		cfg.Subscribe.NotificationsEnabled = true
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Mailer.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Mailer.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Mailer.Region = region
	}

	// Auth overrides
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
		cfg.Auth.Enabled = true
		if cfg.Auth.JWKSURL == "" {
			cfg.Auth.JWKSURL = v + "/.well-known/jwks.json"
		}
	}
	if v := os.Getenv("AUTH_CLIENT_ID"); v != "" {
		cfg.Auth.ClientID = v
	}

	// Redis override (rate limiting)
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
		cfg.RateLimit.Enabled = true
	}

	return cfg, nil
}
