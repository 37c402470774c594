// Package config loads the application configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BLOGWRITER_LLM_MODEL.
const EnvPrefix = "BLOGWRITER"

// Config holds the application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Store    StoreConfig    `mapstructure:"store"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryWait  time.Duration `mapstructure:"retry_wait"`
}

// SearchConfig selects the search backend.
type SearchConfig struct {
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	Depth      string `mapstructure:"depth"`
	MaxResults int    `mapstructure:"max_results"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// StoreConfig selects where checkpoints live.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// OutputConfig controls where articles and research notes are written.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	ResearchDir string `mapstructure:"research_dir"`
	Author      string `mapstructure:"author"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// WorkflowConfig tunes the pipeline.
type WorkflowConfig struct {
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	WritingStyle        string        `mapstructure:"writing_style"`
	ResearchTemperature float64       `mapstructure:"research_temperature"`
	WritingTemperature  float64       `mapstructure:"writing_temperature"`
	EditingTemperature  float64       `mapstructure:"editing_temperature"`
	ClarifyTemperature  float64       `mapstructure:"clarify_temperature"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_wait", "1s")

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.max_retries", 2)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "checkpoints/blog_workflows.sqlite")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.research_dir", "output/research")
	v.SetDefault("output.author", "AI Blog Writer")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("workflow.run_timeout", "0s")
	v.SetDefault("workflow.writing_style", "")
	v.SetDefault("workflow.research_temperature", 0.3)
	v.SetDefault("workflow.writing_temperature", 0.7)
	v.SetDefault("workflow.editing_temperature", 0.5)
	v.SetDefault("workflow.clarify_temperature", 0.7)
}

// providerKeyEnv maps a provider to the conventional key variable it reads
// when no explicit key is configured.
var providerKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"gemini":   "GOOGLE_API_KEY",
	"google":   "GOOGLE_API_KEY",
	"tavily":   "TAVILY_API_KEY",
}

// Load reads path (optional) and applies BLOGWRITER_* environment overrides.
// A missing file at an explicitly given path is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Search.Provider = strings.ToLower(strings.TrimSpace(cfg.Search.Provider))
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(providerKeyEnv[cfg.LLM.Provider])
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv(providerKeyEnv[cfg.Search.Provider])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
// Missing API keys are reported when the client is built.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "openai", "deepseek", "gemini", "google", "mock":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	switch c.Search.Provider {
	case "tavily", "mock":
	default:
		errs = append(errs, fmt.Errorf("search.provider %q is not supported", c.Search.Provider))
	}
	switch c.Search.Depth {
	case "basic", "advanced":
	default:
		errs = append(errs, fmt.Errorf("search.depth %q must be basic or advanced", c.Search.Depth))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, errors.New("search.max_results must be positive"))
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be sqlite or memory", c.Store.Driver))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	if c.LLM.MaxRetries < 0 || c.Search.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}
	if c.Workflow.RunTimeout < 0 {
		errs = append(errs, errors.New("workflow.run_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
