// Package publisher writes finished articles and research notes to disk and
// renders markdown previews.
package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"auto_blog_writer/workflow"
)

const defaultAuthor = "AI Blog Writer"

// Metadata describes the frontmatter of a saved article.
type Metadata struct {
	Title     string
	Keywords  []string
	SEOScore  *int
	WordCount int
}

type frontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Author      string   `yaml:"author"`
	Description string   `yaml:"description,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	SEOScore    *int     `yaml:"seo_score,omitempty"`
	WordCount   int      `yaml:"word_count,omitempty"`
}

// Writer saves markdown files under fixed output directories. Existing files
// are never overwritten.
type Writer struct {
	outputDir   string
	researchDir string
	author      string
	clock       func() time.Time
	logger      *slog.Logger
}

// Option customizes the writer.
type Option func(*Writer)

// WithAuthor sets the frontmatter author.
func WithAuthor(author string) Option {
	return func(w *Writer) {
		if author != "" {
			w.author = author
		}
	}
}

// WithClock injects the time source used for file names and dates.
func WithClock(clock func() time.Time) Option {
	return func(w *Writer) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets the writer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Writer. Directories are created lazily on first save.
func New(outputDir, researchDir string, opts ...Option) (*Writer, error) {
	if outputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if researchDir == "" {
		researchDir = filepath.Join(outputDir, "research")
	}
	w := &Writer{
		outputDir:   outputDir,
		researchDir: researchDir,
		author:      defaultAuthor,
		clock:       time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Save writes content with a YAML frontmatter block and returns the path.
func (w *Writer) Save(ctx context.Context, content string, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := w.clock()
	fm, err := yaml.Marshal(frontmatter{
		Title:       meta.Title,
		Date:        now.Format("2006-01-02"),
		Author:      w.author,
		Description: defaultDigest(content, 160),
		Keywords:    meta.Keywords,
		SEOScore:    meta.SEOScore,
		WordCount:   meta.WordCount,
	})
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(content)

	name := now.Format("20060102_150405") + "_" + safeName(meta.Title)
	path, err := createExclusive(w.outputDir, name, ".md", buf.Bytes())
	if err != nil {
		return "", err
	}
	w.logger.Info("article saved", "path", path)
	return path, nil
}

// SaveNotes writes the research brief and its numbered sources.
func (w *Writer) SaveNotes(ctx context.Context, research string, sources []string, topic string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := w.clock()
	var b strings.Builder
	fmt.Fprintf(&b, "# Research notes: %s\n\n", topic)
	fmt.Fprintf(&b, "**Written**: %s\n\n---\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("## Summary\n\n")
	b.WriteString(research)
	b.WriteString("\n\n---\n\n## References\n\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, src)
	}

	name := now.Format("20060102_150405") + "_" + safeName(topic) + "_research"
	path, err := createExclusive(w.researchDir, name, ".md", []byte(b.String()))
	if err != nil {
		return "", err
	}
	w.logger.Info("research notes saved", "path", path)
	return path, nil
}

// SaveRun persists the final article of a run.
func (w *Writer) SaveRun(ctx context.Context, st workflow.State) (string, error) {
	if strings.TrimSpace(st.FinalContent) == "" {
		return "", errors.New("save: final content is empty")
	}
	return w.Save(ctx, st.FinalContent, Metadata{
		Title:     st.Topic,
		Keywords:  st.Keywords,
		SEOScore:  st.SEOScore,
		WordCount: len(strings.Fields(st.FinalContent)),
	})
}

// createExclusive writes data to dir/name+ext, adding _2, _3, ... when the
// name is taken.
func createExclusive(dir, name, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	for i := 1; i <= 1000; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		path := filepath.Join(dir, candidate+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// safeName keeps letters, digits, '-' and '_' and turns spaces into '_'.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "post"
	}
	return out
}

func defaultDigest(md string, limit int) string {
	var kept []string
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
	r := []rune(joined)
	if len(r) <= limit {
		return joined
	}
	return string(r[:limit])
}
