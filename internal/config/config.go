package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Activity ActivityConfig `yaml:"activity"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"` // debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// AuthConfig selects how sessions are issued and resolved.
type AuthConfig struct {
	Strategy     string  `yaml:"strategy"` // cookie, redis
	JWTSecret    string  `yaml:"jwt_secret"`
	SessionHours int     `yaml:"session_hours"`
	CookieName   string  `yaml:"cookie_name"`
	CookieSecure bool    `yaml:"cookie_secure"`
	LoginRPS     float64 `yaml:"login_rps"`
	LoginBurst   int     `yaml:"login_burst"`
}

// RedisConfig backs the hosted session strategy and the async task queue.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AIConfig configures the embedding provider used for auto-linking.
type AIConfig struct {
	Provider            string  `yaml:"provider"` // openai, azure, ollama, gemini
	BaseURL             string  `yaml:"base_url"`
	APIKey              string  `yaml:"api_key"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxLinksPerNode     int     `yaml:"max_links_per_node"`
}

type ActivityConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Unmarshal over the defaults so a partial file keeps the rest.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	cfg.normalize()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "3001",
			Mode:        "debug",
			CORSOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "meshflow.db",
		},
		Auth: AuthConfig{
			Strategy:     "cookie",
			JWTSecret:    "meshflow-secret-key-change-in-production",
			SessionHours: 24 * 7,
			CookieName:   "meshflow_session",
			LoginRPS:     1,
			LoginBurst:   5,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		AI: AIConfig{
			Provider:            "openai",
			BaseURL:             "https://api.openai.com/v1",
			EmbeddingModel:      "text-embedding-3-small",
			SimilarityThreshold: 0.8,
			MaxLinksPerNode:     3,
		},
		Activity: ActivityConfig{
			DefaultLimit: 50,
			MaxLimit:     200,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitAndTrim(origins, ",")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if strategy := os.Getenv("AUTH_STRATEGY"); strategy != "" {
		c.Auth.Strategy = strategy
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.Provider = provider
	}
	if baseURL := os.Getenv("AI_BASE_URL"); baseURL != "" {
		c.AI.BaseURL = baseURL
	}
	if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		c.AI.APIKey = apiKey
	} else if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && c.AI.APIKey == "" {
		c.AI.APIKey = apiKey
	}
	if model := os.Getenv("AI_EMBEDDING_MODEL"); model != "" {
		c.AI.EmbeddingModel = model
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// normalize fills in zero values a config file may have left behind.
func (c *Config) normalize() {
	c.Auth.Strategy = strings.ToLower(strings.TrimSpace(c.Auth.Strategy))
	if c.Auth.Strategy == "" {
		c.Auth.Strategy = "cookie"
	}
	if c.Auth.SessionHours <= 0 {
		c.Auth.SessionHours = 24 * 7
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "meshflow_session"
	}
	if c.Activity.DefaultLimit <= 0 {
		c.Activity.DefaultLimit = 50
	}
	if c.Activity.MaxLimit <= 0 {
		c.Activity.MaxLimit = 200
	}
	if c.Activity.DefaultLimit > c.Activity.MaxLimit {
		c.Activity.DefaultLimit = c.Activity.MaxLimit
	}
	if c.AI.MaxLinksPerNode <= 0 {
		c.AI.MaxLinksPerNode = 3
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
