package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port     string
	LogLevel string

	Database Database

	SupabaseURL        string
	SupabaseJWTSecret  string
	SupabaseServiceKey string

	NewsAPIKey     string
	NewsAPIBaseURL string
	NewsCacheTTL   time.Duration

	YouTubeAPIKey string

	CORSAllowedOrigins []string
}

// Database describes how to reach Postgres. URL wins over the split fields.
type Database struct {
	URL      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	Retries  int
}

// DSN returns the connection string handed to lib/pq.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=require",
	}
	return u.String()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("NEWS_API_BASE_URL", "https://newsapi.org/v2")
	v.SetDefault("NEWS_CACHE_TTL", "60s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

// New returns a viper instance with defaults and environment binding. The
// .env file is loaded into the process environment first; a missing file is
// not an error.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	ttl, err := time.ParseDuration(v.GetString("NEWS_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid NEWS_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Port:     trimmed(v, "PORT"),
		LogLevel: trimmed(v, "LOG_LEVEL"),
		Database: Database{
			URL:      trimmed(v, "DATABASE_URL"),
			User:     env("user"),
			Password: env("password"),
			Host:     env("host"),
			Port:     env("port"),
			Name:     env("dbname"),
			Retries:  v.GetInt("DB_CONNECT_RETRIES"),
		},
		SupabaseURL:        trimmed(v, "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseJWTSecret:  trimmed(v, "SUPABASE_JWT_SECRET"),
		SupabaseServiceKey: trimmed(v, "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_SECRET_KEY", "SUPABASE_SERVICE_ROLE"),
		NewsAPIKey:         trimmed(v, "NEWS_API_KEY", "NEWS_API_KEY2"),
		NewsAPIBaseURL:     strings.TrimRight(trimmed(v, "NEWS_API_BASE_URL"), "/"),
		NewsCacheTTL:       ttl,
		YouTubeAPIKey:      trimmed(v, "YOUTUBE_API_KEY", "NEXT_PUBLIC_YOUTUBE_API_KEY"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.Retries < 1 {
		cfg.Database.Retries = 1
	}
	return cfg, nil
}

// env reads the lowercase connection variables the Supabase dashboard hands
// out. They bypass viper because its env lookup is case-insensitive and would
// pick up USER and PORT.
func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// trimmed returns the first non-empty value among keys.
func trimmed(v *viper.Viper, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.GetString(k)); s != "" {
			return s
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
