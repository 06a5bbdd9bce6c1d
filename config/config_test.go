package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agentweave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderGemini, cfg.Model.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model.Name)
	assert.Equal(t, 3, cfg.Workflows.PoolSize)
	assert.Equal(t, 5, cfg.Workflows.LoopMaxIterations)
	assert.InDelta(t, 0.9, cfg.Workflows.LoopThreshold, 1e-9)
	assert.Equal(t, HumanConsole, cfg.Human.Mode)
	assert.Equal(t, "Good response with clear communication", cfg.Human.DefaultFeedback)
}

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	t.Setenv("GOOGLE_AI_API_KEY", "gkey")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Model.Provider)
	assert.Equal(t, "gkey", cfg.Model.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_AI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_AI_API_KEY")
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: ollama
  name: llama3.2
server:
  address: ":9090"
  read_timeout: 5s
workflows:
  pool_size: 8
  loop_threshold: 0.8
human:
  mode: static
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Model.Provider)
	assert.Equal(t, "llama3.2", cfg.Model.Name)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8, cfg.Workflows.PoolSize)
	assert.InDelta(t, 0.8, cfg.Workflows.LoopThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Workflows.LoopMaxIterations, "unset keys keep defaults")
	assert.Equal(t, HumanStatic, cfg.Human.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "model:\n  provider: gemini\n")

	t.Setenv("AGENTWEAVE_PROVIDER", "openai")
	t.Setenv("AGENTWEAVE_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "okey")
	t.Setenv("AGENTWEAVE_SERVER_ADDRESS", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, "okey", cfg.Model.APIKey)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestLoad_OllamaHost(t *testing.T) {
	t.Setenv("AGENTWEAVE_PROVIDER", "ollama")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Model.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"unknown provider": func(c *Config) { c.Model.Provider = "bard" },
		"temperature":      func(c *Config) { c.Model.Temperature = 3 },
		"pool size":        func(c *Config) { c.Workflows.PoolSize = 0 },
		"loop iterations":  func(c *Config) { c.Workflows.LoopMaxIterations = 0 },
		"loop threshold":   func(c *Config) { c.Workflows.LoopThreshold = 1.5 },
		"supervisor steps": func(c *Config) { c.Workflows.SupervisorMaxSteps = 0 },
		"human mode":       func(c *Config) { c.Human.Mode = "telepathy" },
		"log format":       func(c *Config) { c.Log.Format = "xml" },
		"call limit":       func(c *Config) { c.Model.MaxCallsPerInvocation = -1 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Model.Provider = ProviderMock
			mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}

	ok := DefaultConfig()
	ok.Model.Provider = ProviderMock
	assert.NoError(t, ok.Validate())
}

func TestYAML_RedactsKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.APIKey = "secret"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.Equal(t, "secret", cfg.Model.APIKey)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, cfg.Workflows, decoded.Workflows)
	assert.Equal(t, cfg.Server.Address, decoded.Server.Address)
}
