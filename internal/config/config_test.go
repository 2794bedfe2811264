package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/real-estate-ai/internal/config"
)

// clearEnv unsets every variable Load reads so the host environment can't
// leak into a test. t.Setenv restores the previous value on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_URL", "JWT_SECRET", "JWT_ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES",
		"ALLOW_ORIGINS", "MIN_PASSWORD_LENGTH", "GEMINI_API_KEY", "GEMINI_MODEL",
		"OLLAMA_URL", "OLLAMA_MODEL", "LLM_TIMEOUT", "GITHUB_CLIENT_ID",
		"GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "sqlite:///./realestate.db", cfg.DatabaseURL)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins())
	assert.True(t, cfg.InsecureJWTSecret())
	assert.False(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:8000/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "a-much-longer-production-secret")
	t.Setenv("ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MIN_PASSWORD_LENGTH", "12")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.InsecureJWTSecret())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	assert.Equal(t, 12, cfg.MinPasswordLength)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
}

func TestLoad_BadInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "thirty")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OLLAMA_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
port: 7000
database_url: ":memory:"
llm:
  ollama_url: http://localhost:11434
  timeout: 45s
github:
  client_id: id
  client_secret: secret
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaURL)
	assert.Equal(t, "from-env", cfg.LLM.OllamaModel, "keys absent from the file keep their env value")
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:7000/auth/github/callback", cfg.GitHub.CallbackURL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Port:                     8000,
			DatabaseURL:              ":memory:",
			JWTSecret:                "0123456789abcdef",
			JWTAlgorithm:             "HS256",
			AccessTokenExpireMinutes: 30,
			AllowOrigins:             "http://localhost:3000",
			MinPasswordLength:        8,
			LLM:                      config.LLMConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"port zero", func(c *config.Config) { c.Port = 0 }},
		{"empty database url", func(c *config.Config) { c.DatabaseURL = " " }},
		{"unknown algorithm", func(c *config.Config) { c.JWTAlgorithm = "RS256" }},
		{"non-positive expiry", func(c *config.Config) { c.AccessTokenExpireMinutes = 0 }},
		{"non-positive min password", func(c *config.Config) { c.MinPasswordLength = -1 }},
		{"no origins", func(c *config.Config) { c.AllowOrigins = " , " }},
		{"zero llm timeout", func(c *config.Config) { c.LLM.Timeout = 0 }},
	}

	assert.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
