package publisher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"auto_blog_writer/workflow"
)

func fixedClock() time.Time { return time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC) }

func newWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "output"), filepath.Join(dir, "output", "research"), WithClock(fixedClock))
	require.NoError(t, err)
	return w, dir
}

func readFrontmatter(t *testing.T, path string) (frontmatter, string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	require.True(t, strings.HasPrefix(s, "---\n"))
	end := strings.Index(s[4:], "\n---\n")
	require.GreaterOrEqual(t, end, 0)
	var fm frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(s[4:4+end]), &fm))
	return fm, s[4+end+5:]
}

func TestSaveRun(t *testing.T) {
	w, dir := newWriter(t)
	score := 88
	st := workflow.State{
		Topic:        "AI: in healthcare?",
		Keywords:     []string{"diagnosis", "ml"},
		FinalContent: "# AI in healthcare\n\nIt helps doctors. A lot.",
		SEOScore:     &score,
	}

	path, err := w.SaveRun(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "output", "20250405_060708_AI_in_healthcare.md"), path)

	fm, body := readFrontmatter(t, path)
	assert.Equal(t, "AI: in healthcare?", fm.Title)
	assert.Equal(t, "2025-04-05", fm.Date)
	assert.Equal(t, defaultAuthor, fm.Author)
	assert.Equal(t, []string{"diagnosis", "ml"}, fm.Keywords)
	require.NotNil(t, fm.SEOScore)
	assert.Equal(t, 88, *fm.SEOScore)
	assert.Equal(t, 9, fm.WordCount)
	assert.Equal(t, "It helps doctors. A lot.", fm.Description)
	assert.Equal(t, "\n"+st.FinalContent, body)
}

func TestSaveNeverOverwrites(t *testing.T) {
	w, _ := newWriter(t)
	ctx := context.Background()
	first, err := w.Save(ctx, "one", Metadata{Title: "same"})
	require.NoError(t, err)
	second, err := w.Save(ctx, "two", Metadata{Title: "same"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "_same_2.md"))
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "one"))
}

func TestSaveRunRequiresFinalContent(t *testing.T) {
	w, _ := newWriter(t)
	_, err := w.SaveRun(context.Background(), workflow.State{Topic: "x"})
	require.Error(t, err)
}

func TestSaveNotes(t *testing.T) {
	w, dir := newWriter(t)
	path, err := w.SaveNotes(context.Background(), "the brief", []string{"[a](https://a)", "[b](https://b)"}, "Go tips")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "output", "research", "20250405_060708_Go_tips_research.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "# Research notes: Go tips")
	assert.Contains(t, s, "**Written**: 2025-04-05 06:07:08")
	assert.Contains(t, s, "the brief")
	assert.Contains(t, s, "1. [a](https://a)\n2. [b](https://b)\n")
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Go_generics_in_2025", safeName(" Go generics in 2025! "))
	assert.Equal(t, "한국어_제목", safeName("한국어 제목"))
	assert.Equal(t, "post", safeName("???"))
}

func TestRenderPage(t *testing.T) {
	page, err := RenderPage("---\ntitle: x\n---\n\n# Hello <world>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n", "fallback")
	require.NoError(t, err)
	assert.Contains(t, page, "<title>Hello &lt;world&gt;</title>")
	assert.Contains(t, page, "<table>")
	assert.NotContains(t, page, "title: x")

	page, err = RenderPage("no heading", "fallback")
	require.NoError(t, err)
	assert.Contains(t, page, "<title>fallback</title>")
	assert.Contains(t, page, "<p>no heading</p>")
}
