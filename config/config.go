package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	Port          = "3000"
	AllowedOrigin = "https://chcomelon-inventory-website.vercel.app"
	UploadDir     = "uploads"
	UploadPrefix  = "/uploads"

	defaultDBName = "inventory"
)

var ErrMissingMongoURI = errors.New("MongoDB URI is not defined in environment variables")

type Config struct {
	MongoURI      string
	DBName        string
	Port          string
	AllowedOrigin string
	UploadDir     string
	UploadPrefix  string
	JWTSecret     string
	Env           string
	FrontendURL   string
	LogLevel      string
	Email         EmailConfig
}

type EmailConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

func LoadEnv() {
	_ = godotenv.Load()
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration from the environment. MONGO_URI is the only
// required value.
func Load() (*Config, error) {
	uri := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if uri == "" {
		return nil, ErrMissingMongoURI
	}

	cfg := &Config{
		MongoURI:      uri,
		DBName:        GetEnv("DB_NAME", dbNameFromURI(uri)),
		Port:          Port,
		AllowedOrigin: AllowedOrigin,
		UploadDir:     UploadDir,
		UploadPrefix:  UploadPrefix,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Env:           GetEnv("NODE_ENV", "development"),
		FrontendURL:   strings.TrimRight(GetEnv("FRONTEND_URL", AllowedOrigin), "/"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		Email: EmailConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     GetEnv("EMAIL_PORT", "587"),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
		},
	}
	return cfg, nil
}

func (c *Config) Warnings() []string {
	var w []string
	if c.JWTSecret == "" {
		w = append(w, "JWT_SECRET not set - login and registration will fail")
	}
	if c.Email.Host == "" {
		w = append(w, "EMAIL_HOST not set - emails are logged instead of sent")
	}
	return w
}

func dbNameFromURI(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil || cs.Database == "" {
		return defaultDBName
	}
	return cs.Database
}
