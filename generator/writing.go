package generator

import (
	"context"
	"strings"

	"auto_blog_writer/workflow"
)

// Writer drafts the post in two passes: outline, then full text.
type Writer struct {
	agent *Agent
}

func (a *Agent) Writer() *Writer {
	return &Writer{agent: a}
}

func (w *Writer) Process(ctx context.Context, st workflow.State) (workflow.Update, error) {
	s := w.agent.settings
	outline, err := w.agent.generate(ctx, "outline", BuildOutlinePrompt(st, s.WritingStyle, s.WritingTemperature))
	if err != nil {
		return workflow.Update{}, err
	}
	draft, err := w.agent.generate(ctx, "draft", BuildDraftPrompt(st, outline, s.WritingStyle, s.WritingTemperature))
	if err != nil {
		return workflow.Update{}, err
	}
	w.agent.logger.Info("draft complete", "stage", "writing", "topic", st.Topic, "words", len(strings.Fields(draft)))
	return workflow.Update{Outline: &outline, DraftContent: &draft}, nil
}
