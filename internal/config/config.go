// Package config loads runtime settings from the environment and an optional
// YAML file.
//
// Environment variables (or their defaults) are read first; if a file path is
// given, the YAML document is decoded over the result, so keys present in the
// file win. Missing keys keep their env/default value.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret ships in the defaults so a fresh checkout starts. The
// server logs a warning whenever it is still in use.
const DefaultJWTSecret = "change_me_to_a_secure_random_string"

type Config struct {
	Port                     int           `yaml:"port"`
	DatabaseURL              string        `yaml:"database_url"`
	JWTSecret                string        `yaml:"jwt_secret"`
	JWTAlgorithm             string        `yaml:"jwt_algorithm"`
	AccessTokenExpireMinutes int           `yaml:"access_token_expire_minutes"`
	AllowOrigins             string        `yaml:"allow_origins"`
	MinPasswordLength        int           `yaml:"min_password_length"`
	LLM                      LLMConfig     `yaml:"llm"`
	GitHub                   GitHubConfig  `yaml:"github"`
	Log                      LogConfig     `yaml:"log"`
	ShutdownTimeout          time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig selects the optional language-model backend. Gemini wins when an
// API key is set; otherwise Ollama is used when a URL is set; otherwise the
// analysis runs on rules alone.
type LLMConfig struct {
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	OllamaURL    string        `yaml:"ollama_url"`
	OllamaModel  string        `yaml:"ollama_model"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GitHubConfig enables GitHub sign-in when both ID and secret are set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load builds a Config from the environment, then overlays the YAML file at
// path when path is non-empty.
func Load(path string) (*Config, error) {
	port, err := getEnvInt("PORT", 8000)
	if err != nil {
		return nil, err
	}
	expire, err := getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	minPassword, err := getEnvInt("MIN_PASSWORD_LENGTH", 8)
	if err != nil {
		return nil, err
	}
	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                     port,
		DatabaseURL:              getEnv("DATABASE_URL", "sqlite:///./realestate.db"),
		JWTSecret:                getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTAlgorithm:             getEnv("JWT_ALGORITHM", "HS256"),
		AccessTokenExpireMinutes: expire,
		AllowOrigins:             getEnv("ALLOW_ORIGINS", "http://localhost:3000"),
		MinPasswordLength:        minPassword,
		LLM: LLMConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			OllamaURL:    getEnv("OLLAMA_URL", ""),
			OllamaModel:  getEnv("OLLAMA_MODEL", "llama3.2"),
			Timeout:      llmTimeout,
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		ShutdownTimeout: 30 * time.Second,
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: opening %s: %w", path, err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decoding %s: %w", path, err)
		}
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported jwt_algorithm %q", c.JWTAlgorithm))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("access_token_expire_minutes must be positive"))
	}
	if c.MinPasswordLength <= 0 {
		errs = append(errs, errors.New("min_password_length must be positive"))
	}
	if len(c.CORSOrigins()) == 0 {
		errs = append(errs, errors.New("allow_origins must name at least one origin"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CORSOrigins splits AllowOrigins on commas, trimming blanks.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// InsecureJWTSecret reports whether the shipped default secret is in use.
func (c *Config) InsecureJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// GitHubEnabled reports whether GitHub sign-in routes should be mounted.
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, v)
	}
	return d, nil
}
