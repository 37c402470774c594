package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_writer/search"
	"auto_blog_writer/workflow"
)

// fakeLLM replays canned replies in order and records every prompt.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []Prompt
}

func (f *fakeLLM) Complete(_ context.Context, p Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, p)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "# reply\n\nbody.", nil
}

type recordingSearcher struct {
	mu      sync.Mutex
	queries []search.Request
	err     error
}

func (s *recordingSearcher) Search(_ context.Context, req search.Request) (search.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, req)
	s.mu.Unlock()
	if s.err != nil {
		return search.Response{}, s.err
	}
	return search.Response{
		Answer: "answer for " + req.Query,
		Results: []search.Result{
			{Title: "One", URL: "https://one.example", Content: "first", Score: 0.9},
			{Title: "Two", URL: "https://two.example", Content: "second", Score: 0.5},
		},
	}, nil
}

type notesFunc func(ctx context.Context, research string, sources []string, topic string) (string, error)

func (f notesFunc) SaveNotes(ctx context.Context, research string, sources []string, topic string) (string, error) {
	return f(ctx, research, sources, topic)
}

func newAgent(t *testing.T, llm LLMClient) *Agent {
	t.Helper()
	a, err := NewAgent(llm, DefaultSettings(), nil)
	require.NoError(t, err)
	return a
}

func testState(t *testing.T) workflow.State {
	t.Helper()
	st, err := workflow.NewState(workflow.Input{Topic: "Go generics", Keywords: []string{"type sets", "constraints"}, TargetLength: 1800})
	require.NoError(t, err)
	return st
}

func withClarification(st workflow.State, phase workflow.Phase, answers ...string) workflow.State {
	rec := workflow.NewClarificationRecord(phase, workflow.DefaultQuestions(phase), answers, false, time.Now().UTC())
	if st.Clarifications == nil {
		st.Clarifications = map[workflow.Phase]workflow.ClarificationRecord{}
	}
	st.Clarifications[phase] = rec
	return st
}

func TestParseQuestions(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		qs, err := ParseQuestions("```json\n" + mockQuestions + "\n```")
		require.NoError(t, err)
		require.Len(t, qs, 3)
		assert.Equal(t, workflow.CategoryAudience, qs[0].Category)
	})
	t.Run("normalizes category case", func(t *testing.T) {
		qs, err := ParseQuestions(`{"questions":[{"text":" a ","category":"Audience"},{"text":"b","category":"direction"},{"text":"c","category":"CONSTRAINT"}]}`)
		require.NoError(t, err)
		assert.Equal(t, "a", qs[0].Text)
		assert.Equal(t, workflow.CategoryConstraint, qs[2].Category)
	})
	t.Run("too few", func(t *testing.T) {
		_, err := ParseQuestions(`{"questions":[{"text":"a","category":"audience"}]}`)
		require.Error(t, err)
	})
	t.Run("unknown category", func(t *testing.T) {
		_, err := ParseQuestions(`{"questions":[{"text":"a","category":"audience"},{"text":"b","category":"tone"},{"text":"c","category":"constraint"}]}`)
		require.Error(t, err)
	})
	t.Run("not json", func(t *testing.T) {
		_, err := ParseQuestions("Sure! Here are some questions:")
		require.Error(t, err)
	})
}

func TestClarifierFallsBack(t *testing.T) {
	st := testState(t)
	cases := map[string]*fakeLLM{
		"error":     {errs: []error{errors.New("boom")}},
		"malformed": {replies: []string{"not json"}},
		"too many":  {replies: []string{`{"questions":[` + strings.Repeat(`{"text":"q","category":"audience"},`, 5) + `{"text":"q","category":"audience"}]}`}},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			qs := newAgent(t, llm).Clarifier().Generate(context.Background(), st, workflow.PhaseWriting)
			assert.Equal(t, workflow.DefaultQuestions(workflow.PhaseWriting), qs)
		})
	}
}

func TestClarifierUsesModelBatch(t *testing.T) {
	st := testState(t)
	st.ResearchData = strings.Repeat("r", 500)
	llm := &fakeLLM{}
	qs := newAgent(t, MockLLM{}).Clarifier().Generate(context.Background(), st, workflow.PhaseWriting)
	require.Len(t, qs, 3)
	assert.Equal(t, "Who is the main audience?", qs[0].Text)

	newAgent(t, llm).Clarifier().Generate(context.Background(), st, workflow.PhaseWriting)
	require.Len(t, llm.prompts, 1)
	p := llm.prompts[0]
	assert.InDelta(t, 0.7, p.Temperature, 1e-9)
	assert.Contains(t, p.User, "- Topic: Go generics")
	assert.Contains(t, p.User, "type sets, constraints")
	assert.Contains(t, p.User, "- Research summary: "+strings.Repeat("r", 200)+"...")
	assert.NotContains(t, p.User, strings.Repeat("r", 201))
}

func TestResearcherProcess(t *testing.T) {
	st := withClarification(testState(t), workflow.PhaseResearch, "platform engineers", "", "no vendor pitches")
	llm := &fakeLLM{replies: []string{"```markdown\n# Brief\n\nfacts.\n```"}}
	searcher := &recordingSearcher{}
	var savedTopic string
	notes := notesFunc(func(_ context.Context, research string, sources []string, topic string) (string, error) {
		savedTopic = topic
		assert.Equal(t, "# Brief\n\nfacts.", research)
		assert.Len(t, sources, 2)
		return "output/research/notes.md", nil
	})

	upd, err := newAgent(t, llm).Researcher(searcher, notes).Process(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, searcher.queries, 3)
	assert.Equal(t, "Go generics latest information", searcher.queries[0].Query)
	assert.Equal(t, search.DepthAdvanced, searcher.queries[0].Depth)
	assert.Equal(t, 10, searcher.queries[0].MaxResults)
	assert.Equal(t, "Go generics type sets in detail", searcher.queries[1].Query)

	require.NotNil(t, upd.ResearchData)
	assert.Equal(t, "# Brief\n\nfacts.", *upd.ResearchData)
	assert.Equal(t, []string{"[One](https://one.example)", "[Two](https://two.example)"}, upd.Sources)
	require.NotNil(t, upd.ResearchNotesFile)
	assert.Equal(t, "output/research/notes.md", *upd.ResearchNotesFile)
	assert.Equal(t, "Go generics", savedTopic)
	assert.Nil(t, upd.DraftContent)

	require.Len(t, llm.prompts, 1)
	p := llm.prompts[0]
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
	assert.Contains(t, p.User, "**Q: "+workflow.DefaultQuestions(workflow.PhaseResearch)[0].Text+"**\nA: platform engineers")
	assert.Contains(t, p.User, "no vendor pitches")
	assert.Contains(t, p.User, "# Keyword research: constraints")
	assert.NotContains(t, p.User, "Reviewer feedback")
}

func TestResearcherSearchFailure(t *testing.T) {
	searcher := &recordingSearcher{err: workflow.NewTransientError("search", errors.New("down"))}
	llm := &fakeLLM{}
	_, err := newAgent(t, llm).Researcher(searcher, nil).Process(context.Background(), testState(t))
	require.Error(t, err)
	assert.True(t, workflow.IsTransient(err))
	assert.Empty(t, llm.prompts)
}

func TestWriterIncludesFeedbackAfterRejection(t *testing.T) {
	st := withClarification(testState(t), workflow.PhaseWriting, "friendly", "", "")
	st.ResearchData = "brief"
	st.ApprovalStatus = workflow.ApprovalRejected
	st.UserFeedback = "shorter intro please"
	llm := &fakeLLM{replies: []string{"1. Intro\n2. Body", "# Post\n\nbody."}}

	upd, err := newAgent(t, llm).Writer().Process(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "1. Intro\n2. Body", *upd.Outline)
	assert.Equal(t, "# Post\n\nbody.", *upd.DraftContent)

	require.Len(t, llm.prompts, 2)
	for _, p := range llm.prompts {
		assert.InDelta(t, 0.7, p.Temperature, 1e-9)
		assert.Contains(t, p.User, "A: friendly")
		assert.Contains(t, p.User, "shorter intro please")
		assert.Contains(t, p.User, "about 1800 words")
	}
	assert.Contains(t, llm.prompts[1].User, "1. Intro\n2. Body")
}

func TestWriterEmptyOutput(t *testing.T) {
	st := testState(t)
	st.ResearchData = "brief"
	llm := &fakeLLM{replies: []string{"  "}}
	_, err := newAgent(t, llm).Writer().Process(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outline")
}

func TestEditorScoresFinal(t *testing.T) {
	st := testState(t)
	st.DraftContent = "# Draft\n\nshort."
	llm := &fakeLLM{replies: []string{"# Final\n\nstill short."}}

	upd, err := newAgent(t, llm).Editor().Process(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "# Final\n\nstill short.", *upd.FinalContent)
	require.NotNil(t, upd.SEOScore)
	assert.GreaterOrEqual(t, *upd.SEOScore, 0)
	assert.LessOrEqual(t, *upd.SEOScore, 100)

	p := llm.prompts[0]
	assert.InDelta(t, 0.5, p.Temperature, 1e-9)
	assert.Contains(t, p.User, "**Score**:")
	assert.Contains(t, p.User, "Article is short")
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "x", stripFence("```\nx\n```"))
	assert.Equal(t, "{}", stripFence("```json\n{}\n```"))
	assert.Equal(t, "plain", stripFence(" plain "))
	assert.Equal(t, "x", stripFence("```md\nx"))
}

func TestNewLLM(t *testing.T) {
	c, err := NewLLM(context.Background(), &LLMSettings{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, MockLLM{}, c)

	_, err = NewLLM(context.Background(), &LLMSettings{Provider: "openai", Model: "gpt-4o"})
	require.Error(t, err)

	c, err = NewLLM(context.Background(), &LLMSettings{Provider: "deepseek", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", c.(*OpenAILLM).Model)

	_, err = NewLLM(context.Background(), &LLMSettings{Provider: "nope"})
	require.Error(t, err)
}
