// Package seo scores markdown articles against simple search-engine heuristics.
package seo

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Scoring bands.
const (
	MinWords          = 1500
	MaxWords          = 3000
	MinDensity        = 0.5
	MaxDensity        = 2.5
	MinSentenceLength = 15.0
	MaxSentenceLength = 25.0
	MinH2             = 3
	MinH3             = 5
)

// KeywordDensity is the share of words taken up by one keyword, in percent.
type KeywordDensity struct {
	Keyword string  `json:"keyword"`
	Density float64 `json:"density"`
}

// Report is the outcome of scoring one article.
type Report struct {
	Score             int              `json:"score"`
	WordCount         int              `json:"word_count"`
	KeywordDensity    []KeywordDensity `json:"keyword_density"`
	AvgSentenceLength float64          `json:"avg_sentence_length"`
	H2Count           int              `json:"h2_count"`
	H3Count           int              `json:"h3_count"`
	Recommendations   []string         `json:"recommendations"`
}

// Score rates content on a 0-100 scale:
// length 30, keyword density 30, sentence length 20, H2 headings 10, H3 headings 10.
func Score(content string, keywords []string) Report {
	words := len(strings.Fields(content))
	lower := strings.ToLower(content)

	r := Report{WordCount: words, Recommendations: []string{}}
	r.KeywordDensity = make([]KeywordDensity, 0, len(keywords))
	for _, kw := range keywords {
		d := 0.0
		if words > 0 && kw != "" {
			d = float64(strings.Count(lower, strings.ToLower(kw))) / float64(words) * 100
		}
		r.KeywordDensity = append(r.KeywordDensity, KeywordDensity{Keyword: kw, Density: d})
	}

	sentences := strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?")
	r.AvgSentenceLength = float64(words) / float64(max(sentences, 1))
	r.H2Count, r.H3Count = countHeadings(content)

	switch {
	case words >= MinWords && words <= MaxWords:
		r.Score += 30
	case words < MinWords:
		r.recommend("Article is short: %d words, aim for at least %d", words, MinWords)
	default:
		r.recommend("Article is long: %d words, aim for at most %d", words, MaxWords)
	}

	densityOK := true
	for _, kd := range r.KeywordDensity {
		switch {
		case kd.Density < MinDensity:
			densityOK = false
			r.recommend("Use keyword %q more often (currently %.2f%%)", kd.Keyword, kd.Density)
		case kd.Density > MaxDensity:
			densityOK = false
			r.recommend("Keyword %q is overused (currently %.2f%%)", kd.Keyword, kd.Density)
		}
	}
	if densityOK {
		r.Score += 30
	}

	if r.AvgSentenceLength >= MinSentenceLength && r.AvgSentenceLength <= MaxSentenceLength {
		r.Score += 20
	} else {
		r.recommend("Adjust sentence length (average %.1f words)", r.AvgSentenceLength)
	}

	if r.H2Count >= MinH2 {
		r.Score += 10
	} else {
		r.recommend("Add H2 headings (currently %d, at least %d)", r.H2Count, MinH2)
	}
	if r.H3Count >= MinH3 {
		r.Score += 10
	} else {
		r.recommend("Add H3 headings (currently %d, at least %d)", r.H3Count, MinH3)
	}
	return r
}

// Summary renders the report as a markdown block for prompts and logs.
func (r Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **Score**: %d/100\n", r.Score)
	fmt.Fprintf(&sb, "- **Word count**: %d\n", r.WordCount)
	if len(r.KeywordDensity) > 0 {
		parts := make([]string, 0, len(r.KeywordDensity))
		for _, kd := range r.KeywordDensity {
			parts = append(parts, fmt.Sprintf("%s %.2f%%", kd.Keyword, kd.Density))
		}
		fmt.Fprintf(&sb, "- **Keyword density**: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&sb, "- **Average sentence length**: %.1f words\n", r.AvgSentenceLength)
	fmt.Fprintf(&sb, "- **Headings**: H2 %d, H3 %d\n", r.H2Count, r.H3Count)
	return sb.String()
}

func (r *Report) recommend(format string, args ...any) {
	r.Recommendations = append(r.Recommendations, fmt.Sprintf(format, args...))
}

var parser = goldmark.New().Parser()

func countHeadings(content string) (h2, h3 int) {
	src := []byte(content)
	doc := parser.Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			switch h.Level {
			case 2:
				h2++
			case 3:
				h3++
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return h2, h3
}
