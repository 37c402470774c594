package generator

import (
	"context"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt.User, `"questions"`) {
		return "```json\n" + mockQuestions + "\n```", nil
	}

	// 很简单地把提示词的首行拼接成 Markdown。
	first, _, _ := strings.Cut(strings.TrimSpace(prompt.User), "\n")
	var sb strings.Builder
	sb.WriteString("# Sample title\n\n")
	sb.WriteString("A short generated summary of the main points.\n\n")
	for _, section := range []string{"Background", "Details", "Takeaways"} {
		sb.WriteString("## " + section + "\n\n")
		sb.WriteString("### Notes\n\n")
		sb.WriteString("Generated from the prompt: " + first + "\n\n")
	}
	return sb.String(), nil
}

const mockQuestions = `{"questions": [
  {"text": "Who is the main audience?", "category": "audience", "placeholder": "e.g. backend engineers"},
  {"text": "What should the post emphasize?", "category": "direction", "placeholder": "e.g. hands-on examples"},
  {"text": "Anything to avoid?", "category": "constraint", "placeholder": "e.g. vendor names"}
]}`
