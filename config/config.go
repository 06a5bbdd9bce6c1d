// Package config loads the AgentWeave configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in model.provider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// Human modes accepted in human.mode.
const (
	HumanConsole = "console"
	HumanStatic  = "static"
)

// Config is the root configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Workflows WorkflowConfig  `yaml:"workflows" mapstructure:"workflows"`
	Human     HumanConfig     `yaml:"human" mapstructure:"human"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ModelConfig selects the language model backing every workflow.
type ModelConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama, mock
	Name        string  `yaml:"name" mapstructure:"name"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Host        string  `yaml:"host,omitempty" mapstructure:"host"` // ollama only
	// MaxCallsPerInvocation bounds model calls of one workflow run; 0 is unlimited.
	MaxCallsPerInvocation int `yaml:"max_calls_per_invocation" mapstructure:"max_calls_per_invocation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// WorkflowConfig tunes the prebuilt workflows.
type WorkflowConfig struct {
	PoolSize           int     `yaml:"pool_size" mapstructure:"pool_size"`
	LoopMaxIterations  int     `yaml:"loop_max_iterations" mapstructure:"loop_max_iterations"`
	LoopThreshold      float64 `yaml:"loop_threshold" mapstructure:"loop_threshold"`
	SupervisorMaxSteps int     `yaml:"supervisor_max_steps" mapstructure:"supervisor_max_steps"`
}

// HumanConfig selects how human feedback is collected.
type HumanConfig struct {
	Mode            string `yaml:"mode" mapstructure:"mode"` // console, static
	DefaultFeedback string `yaml:"default_feedback" mapstructure:"default_feedback"`
}

// TelemetryConfig toggles tracing and sets the metrics endpoint.
type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing" mapstructure:"tracing"`
	MetricsPath string `yaml:"metrics_path" mapstructure:"metrics_path"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    ProviderGemini,
			Name:        "gemini-2.5-flash-lite",
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Workflows: WorkflowConfig{
			PoolSize:           3,
			LoopMaxIterations:  5,
			LoopThreshold:      0.9,
			SupervisorMaxSteps: 10,
		},
		Human: HumanConfig{
			Mode:            HumanConsole,
			DefaultFeedback: "Good response with clear communication",
		},
		Telemetry: TelemetryConfig{
			MetricsPath: "/metrics",
		},
	}
}

// apiKeyEnv maps providers to the environment variable holding their key.
var apiKeyEnv = map[string]string{
	ProviderGemini:    "GOOGLE_AI_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// Load reads the configuration. An empty path skips the file. Values are
// layered: defaults, then the file, then AGENTWEAVE_* environment variables
// (AGENTWEAVE_MODEL_NAME, AGENTWEAVE_SERVER_ADDRESS, ...). The provider and
// model name can also be set with AGENTWEAVE_PROVIDER and AGENTWEAVE_MODEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AGENTWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	for key, env := range map[string]string{
		"model.provider": "AGENTWEAVE_PROVIDER",
		"model.name":     "AGENTWEAVE_MODEL",
		"model.host":     "OLLAMA_HOST",
	} {
		if err := v.BindEnv(key, "AGENTWEAVE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv(apiKeyEnv[cfg.Model.Provider])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.temperature", d.Model.Temperature)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	v.SetDefault("model.host", d.Model.Host)
	v.SetDefault("model.max_calls_per_invocation", d.Model.MaxCallsPerInvocation)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("workflows.pool_size", d.Workflows.PoolSize)
	v.SetDefault("workflows.loop_max_iterations", d.Workflows.LoopMaxIterations)
	v.SetDefault("workflows.loop_threshold", d.Workflows.LoopThreshold)
	v.SetDefault("workflows.supervisor_max_steps", d.Workflows.SupervisorMaxSteps)
	v.SetDefault("human.mode", d.Human.Mode)
	v.SetDefault("human.default_feedback", d.Human.DefaultFeedback)
	v.SetDefault("telemetry.tracing", d.Telemetry.Tracing)
	v.SetDefault("telemetry.metrics_path", d.Telemetry.MetricsPath)
}

// Validate checks the configuration for values no workflow can run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if c.Model.APIKey == "" {
			errs = append(errs, fmt.Errorf("model.api_key is required for provider %s (or set %s)", c.Model.Provider, apiKeyEnv[c.Model.Provider]))
		}
	case ProviderOllama, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown model.provider %q", c.Model.Provider))
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0, 2], got %v", c.Model.Temperature))
	}

	if c.Model.MaxCallsPerInvocation < 0 {
		errs = append(errs, errors.New("model.max_calls_per_invocation must not be negative"))
	}

	if c.Workflows.PoolSize < 1 {
		errs = append(errs, errors.New("workflows.pool_size must be at least 1"))
	}

	if c.Workflows.LoopMaxIterations < 1 {
		errs = append(errs, errors.New("workflows.loop_max_iterations must be at least 1"))
	}

	if c.Workflows.LoopThreshold < 0 || c.Workflows.LoopThreshold > 1 {
		errs = append(errs, fmt.Errorf("workflows.loop_threshold must be within [0, 1], got %v", c.Workflows.LoopThreshold))
	}

	if c.Workflows.SupervisorMaxSteps < 1 {
		errs = append(errs, errors.New("workflows.supervisor_max_steps must be at least 1"))
	}

	if c.Human.Mode != HumanConsole && c.Human.Mode != HumanStatic {
		errs = append(errs, fmt.Errorf("unknown human.mode %q", c.Human.Mode))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return nil
}

// YAML renders the configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	cp := *c
	if cp.Model.APIKey != "" {
		cp.Model.APIKey = "********"
	}

	return yaml.Marshal(&cp)
}
