package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env unless GO_ENV says otherwise
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil {
			return err
		}
	}

	return nil
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	GoEnv          string
	Port           int
	AllowedOrigins string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// SMTPConfig holds mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// GoogleOAuthConfig holds the external identity provider settings
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Config is the full application configuration, assembled once at startup
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	SMTP        SMTPConfig
	GoogleOAuth GoogleOAuthConfig
	RedisURL    string
	FrontendURL string
}

// Get reads all environment variables into a Config
func Get() (*Config, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	smtpPort := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			smtpPort = parsed
		}
	}

	expiryHours := 24
	if e := os.Getenv("JWT_EXPIRY_HOURS"); e != "" {
		if parsed, err := strconv.Atoi(e); err == nil {
			expiryHours = parsed
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			GoEnv:          os.Getenv("GO_ENV"),
			Port:           port,
			AllowedOrigins: getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER_NAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			Issuer:      getEnvOrDefault("JWT_ISSUER", "kujua-api"),
			ExpiryHours: expiryHours,
		},
		SMTP: SMTPConfig{
			Host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "noreply@kujua.org"),
		},
		GoogleOAuth: GoogleOAuthConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		},
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg, nil
}

// Validate fails fast on missing required settings so a misconfigured
// process never starts serving requests
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("config: DB_USER_NAME and DB_NAME are required")
	}
	return nil
}

// GoogleOAuthEnabled reports whether the OAuth flow is configured
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleOAuth.ClientID != "" && c.GoogleOAuth.ClientSecret != "" && c.GoogleOAuth.CallbackURL != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
