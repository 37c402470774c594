package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auto_blog_writer/workflow"
)

// Clarifier produces the reader questions shown before a phase. It never
// fails: any problem with the model output falls back to the fixed batch.
type Clarifier struct {
	agent *Agent
}

// Clarifier returns the question generator backed by a.
func (a *Agent) Clarifier() *Clarifier {
	return &Clarifier{agent: a}
}

func (c *Clarifier) Generate(ctx context.Context, st workflow.State, phase workflow.Phase) []workflow.Question {
	prompt := BuildClarifyPrompt(st, phase, c.agent.settings.ClarifyTemperature)
	raw, err := c.agent.llm.Complete(ctx, prompt)
	if err != nil {
		c.agent.logger.Warn("question generation failed, using defaults", "phase", phase, "err", err)
		return workflow.DefaultQuestions(phase)
	}
	qs, err := ParseQuestions(raw)
	if err != nil {
		c.agent.logger.Warn("model questions rejected, using defaults", "phase", phase, "err", err)
		return workflow.DefaultQuestions(phase)
	}
	c.agent.logger.Debug("questions generated", "phase", phase, "count", len(qs))
	return qs
}

// ParseQuestions decodes a {"questions": [...]} batch, tolerating a
// surrounding markdown code fence.
func ParseQuestions(raw string) ([]workflow.Question, error) {
	var payload struct {
		Questions []workflow.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	qs := make([]workflow.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		qs = append(qs, workflow.Question{
			Text:        strings.TrimSpace(q.Text),
			Category:    workflow.Category(strings.ToLower(strings.TrimSpace(string(q.Category)))),
			Placeholder: strings.TrimSpace(q.Placeholder),
		})
	}
	if !workflow.ValidBatch(qs) {
		return nil, fmt.Errorf("invalid question batch of %d", len(qs))
	}
	return qs, nil
}
