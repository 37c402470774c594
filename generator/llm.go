package generator

import (
	"context"
	"fmt"
	"strings"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewLLM picks the client for settings.Provider.
func NewLLM(ctx context.Context, cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is nil")
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAILLMFromConfig(cfg)
	case "deepseek":
		c := *cfg
		if c.BaseURL == "" {
			c.BaseURL = "https://api.deepseek.com"
		}
		if c.Model == "" {
			c.Model = "deepseek-chat"
		}
		return NewOpenAILLMFromConfig(&c)
	case "gemini", "google":
		return NewGeminiLLMFromConfig(ctx, cfg)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
