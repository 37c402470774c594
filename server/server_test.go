package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_writer/workflow"
)

type testEnv struct {
	srv      *httptest.Server
	failEdit atomic.Bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}
	text := func(s string) *string { return &s }
	procs := workflow.Processors{
		Research: workflow.ProcessorFunc(func(ctx context.Context, st workflow.State) (workflow.Update, error) {
			return workflow.Update{ResearchData: text("# Research\n\nfacts about " + st.Topic), Sources: []string{"[a](https://a.example)"}}, nil
		}),
		Writing: workflow.ProcessorFunc(func(ctx context.Context, st workflow.State) (workflow.Update, error) {
			return workflow.Update{Outline: text("1. intro"), DraftContent: text("# Draft\n\nbody")}, nil
		}),
		Editing: workflow.ProcessorFunc(func(ctx context.Context, st workflow.State) (workflow.Update, error) {
			if env.failEdit.Load() {
				return workflow.Update{}, errors.New("model unavailable")
			}
			score := 75
			return workflow.Update{FinalContent: text("# Final\n\npolished"), SEOScore: &score}, nil
		}),
		Questions: workflow.QuestionFunc(func(ctx context.Context, st workflow.State, phase workflow.Phase) []workflow.Question {
			return workflow.DefaultQuestions(phase)
		}),
		Saver: workflow.SaverFunc(func(ctx context.Context, st workflow.State) (string, error) {
			return "output/final.md", nil
		}),
	}
	ctrl, err := workflow.NewController(procs, nil)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	engine, err := workflow.NewEngine(workflow.NewMemoryStore(), ctrl, workflow.WithMetrics(workflow.NewMetrics(reg)))
	require.NoError(t, err)

	var n atomic.Int32
	s, err := New(engine, WithGatherer(reg), WithIDGenerator(func() string {
		return fmt.Sprintf("run-%d", n.Add(1))
	}))
	require.NoError(t, err)
	env.srv = httptest.NewServer(s.Routes())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func suspension(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	s, ok := body["suspension"].(map[string]any)
	require.True(t, ok, "expected a suspension in %v", body)
	return s
}

func TestRunLifecycle(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/runs", map[string]any{"topic": "Go", "keywords": []string{"generics"}, "target_length": 1500})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "research_gate", body["stage"])
	s := suspension(t, body)
	assert.Equal(t, "clarification", s["kind"])
	assert.Len(t, s["questions"], 3)

	code, body = env.do(t, http.MethodPost, "/api/runs/run-1/resume", map[string]any{"answers": []string{"gophers"}})
	require.Equal(t, http.StatusOK, code)
	s = suspension(t, body)
	assert.Equal(t, "approval", s["kind"])
	assert.Equal(t, "research", s["stage"])

	resp, err := http.Get(env.srv.URL + "/api/runs/run-1/preview")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), "<h1>Research</h1>")

	steps := []map[string]any{
		{"approved": true},
		{"skipped": true},
		{"approved": true},
		{"skipped": true},
		{"approved": true},
	}
	for _, step := range steps {
		code, body = env.do(t, http.MethodPost, "/api/runs/run-1/resume", step)
		require.Equal(t, http.StatusOK, code, body)
	}
	assert.Equal(t, "complete", body["status"])
	state := body["state"].(map[string]any)
	assert.Equal(t, "output/final.md", state["output_file"])

	code, body = env.do(t, http.MethodGet, "/api/runs/run-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "complete", body["stage"])

	code, _ = env.do(t, http.MethodPost, "/api/runs/run-1/resume", map[string]any{"approved": true})
	assert.Equal(t, http.StatusConflict, code)

	resp, err = http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metrics), "blogwriter_runs_completed_total 1")
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/runs", map[string]any{"topic": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "topic")

	code, _ = env.do(t, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPost, "/api/runs/missing/resume", map[string]any{"approved": true})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodGet, "/api/runs/missing/preview", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStageFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.failEdit.Store(true)

	code, _ := env.do(t, http.MethodPost, "/api/runs", map[string]any{"topic": "Go"})
	require.Equal(t, http.StatusCreated, code)
	for _, step := range []map[string]any{{"skipped": true}, {"approved": true}, {"skipped": true}, {"approved": true}} {
		code, _ = env.do(t, http.MethodPost, "/api/runs/run-1/resume", step)
		require.Equal(t, http.StatusOK, code)
	}

	code, body := env.do(t, http.MethodPost, "/api/runs/run-1/resume", map[string]any{"skipped": true})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body["error"], "model unavailable")

	code, body = env.do(t, http.MethodGet, "/api/runs/run-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "editing_gate", body["stage"])
	assert.Equal(t, "clarification", suspension(t, body)["kind"])

	env.failEdit.Store(false)
	code, body = env.do(t, http.MethodPost, "/api/runs/run-1/resume", map[string]any{"skipped": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "final", suspension(t, body)["stage"])
}

func TestListRuns(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/runs", map[string]any{"topic": "A"})
	env.do(t, http.MethodPost, "/api/runs", map[string]any{"topic": "B"})

	resp, err := http.Get(env.srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var runs []runSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "A", runs[0].Topic)
	assert.Equal(t, workflow.RunSuspended, runs[1].Status)
}
