package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_writer/workflow"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`llm:
  provider: mock
  max_retries: 0
search:
  provider: mock
store:
  driver: sqlite
  path: %s
output:
  dir: %s
  research_dir: %s
log:
  level: error
`, filepath.Join(dir, "runs.sqlite"), filepath.Join(dir, "out"), filepath.Join(dir, "out", "research"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInteractiveRunCompletes(t *testing.T) {
	cfg := writeConfig(t)
	input := "/skip\ny\nreaders\n\n\ny\n/skip\ny\n"

	out, err := execute(t, input, "-c", cfg, "start", "--topic", "Go testing", "-k", "testify", "-i")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Who is the main audience?")
	assert.Contains(t, out, "Run complete.")
	assert.Contains(t, out, "Research notes: ")

	m := regexp.MustCompile(`Article: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	data, err := os.ReadFile(m[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))
	assert.Contains(t, string(data), "title: Go testing")

	out, err = execute(t, "", "-c", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "Go testing")
}

func TestStartThenResumeFromFlags(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "", "-c", cfg, "start", "--topic", "Edge caching")
	require.NoError(t, err)
	assert.Contains(t, out, "paused at research_gate")
	m := regexp.MustCompile(`resume with: \S+ resume (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	runID := m[1]

	_, err = execute(t, "", "-c", cfg, "resume", runID, "--approve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--answer or --skip")

	out, err = execute(t, "", "-c", cfg, "resume", runID, "--skip")
	require.NoError(t, err)
	assert.Contains(t, out, "paused at writing_gate")
	assert.Contains(t, out, "Please review the research result.")

	out, err = execute(t, "", "-c", cfg, "resume", runID, "--reject", "more benchmarks")
	require.NoError(t, err)
	assert.Contains(t, out, "paused at writing_gate")

	out, err = execute(t, "", "-c", cfg, "status", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "Please review the research result.")
	assert.Contains(t, out, "version 3")

	_, err = execute(t, "", "-c", cfg, "status", "missing")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestResponseFlags(t *testing.T) {
	approval := &workflow.Suspension{Kind: workflow.KindApproval, Stage: workflow.PhaseResearch}
	clarify := &workflow.Suspension{Kind: workflow.KindClarification, Stage: workflow.PhaseWriting}

	resp, ok, err := responseFlags{approve: true}.response(approval)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, workflow.Approve(), resp)

	resp, ok, err = responseFlags{reject: "tighter intro"}.response(approval)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, workflow.Reject("tighter intro"), resp)

	resp, ok, err = responseFlags{answers: []string{"a", "b"}}.response(clarify)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, workflow.Answer("a", "b"), resp)

	_, ok, err = responseFlags{}.response(clarify)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = responseFlags{skip: true}.response(approval)
	require.Error(t, err)

	_, _, err = responseFlags{approve: true}.response(nil)
	require.Error(t, err)
}

func TestPrompter(t *testing.T) {
	approval := &workflow.Suspension{Kind: workflow.KindApproval, Stage: workflow.PhaseWriting, Message: "Please review the writing result.", Content: "# Draft"}
	questions := workflow.DefaultQuestions(workflow.PhaseWriting)
	clarify := &workflow.Suspension{Kind: workflow.KindClarification, Stage: workflow.PhaseWriting, Questions: questions}

	var out bytes.Buffer
	resp, err := newPrompter(strings.NewReader("maybe\nn\nshorter please\n"), &out).ask(approval)
	require.NoError(t, err)
	assert.Equal(t, workflow.Reject("shorter please"), resp)
	assert.Contains(t, out.String(), "please answer y or n")
	assert.Contains(t, out.String(), "# Draft")

	resp, err = newPrompter(strings.NewReader("yes"), &out).ask(approval)
	require.NoError(t, err)
	assert.Equal(t, workflow.Approve(), resp)

	answers := strings.Repeat("x\n", len(questions))
	resp, err = newPrompter(strings.NewReader(answers), &out).ask(clarify)
	require.NoError(t, err)
	assert.Len(t, resp.Answers, len(questions))

	resp, err = newPrompter(strings.NewReader("/skip\n"), &out).ask(clarify)
	require.NoError(t, err)
	assert.Equal(t, workflow.Skip(), resp)

	_, err = newPrompter(strings.NewReader(""), &out).ask(approval)
	require.Error(t, err)
}
