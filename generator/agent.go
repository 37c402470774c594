package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Agent 持有模型客户端与写作设置，供各阶段处理器共享。
type Agent struct {
	llm      LLMClient
	settings Settings
	logger   *slog.Logger
}

func NewAgent(llm LLMClient, settings Settings, logger *slog.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Agent{llm: llm, settings: settings, logger: logger}, nil
}

// Settings returns the agent's tuning values.
func (a *Agent) Settings() Settings { return a.settings }

// generate runs one markdown-producing completion for stage.
func (a *Agent) generate(ctx context.Context, stage string, prompt Prompt) (string, error) {
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	md, err := PostProcess(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	return md, nil
}
