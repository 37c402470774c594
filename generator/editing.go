package generator

import (
	"context"

	"auto_blog_writer/seo"
	"auto_blog_writer/workflow"
)

// Editor polishes the draft and scores it before and after the rewrite.
type Editor struct {
	agent *Agent
}

func (a *Agent) Editor() *Editor {
	return &Editor{agent: a}
}

func (e *Editor) Process(ctx context.Context, st workflow.State) (workflow.Update, error) {
	before := seo.Score(st.DraftContent, st.Keywords)
	final, err := e.agent.generate(ctx, "editing", BuildEditPrompt(st, before, e.agent.settings.EditingTemperature))
	if err != nil {
		return workflow.Update{}, err
	}
	after := seo.Score(final, st.Keywords)
	e.agent.logger.Info("editing complete", "stage", "editing", "topic", st.Topic,
		"seo_before", before.Score, "seo_after", after.Score)

	score := after.Score
	return workflow.Update{FinalContent: &final, SEOScore: &score}, nil
}
