package workflow

import (
	"strings"
	"time"
)

// Category classifies a clarification question.
type Category string

const (
	CategoryAudience   Category = "audience"
	CategoryDirection  Category = "direction"
	CategoryConstraint Category = "constraint"
)

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	return c == CategoryAudience || c == CategoryDirection || c == CategoryConstraint
}

const (
	MinQuestions = 3
	MaxQuestions = 5
)

// Question is a single clarification prompt shown to the reviewer.
type Question struct {
	Text        string   `json:"text"`
	Category    Category `json:"category"`
	Placeholder string   `json:"placeholder"`
}

// ValidBatch reports whether qs can be shown as-is: 3 to 5 questions, each
// with text and a known category.
func ValidBatch(qs []Question) bool {
	if len(qs) < MinQuestions || len(qs) > MaxQuestions {
		return false
	}
	for _, q := range qs {
		if strings.TrimSpace(q.Text) == "" || !q.Category.Valid() {
			return false
		}
	}
	return true
}

// ClarificationRecord stores the questions asked before a phase and the
// answers given, paired by index.
type ClarificationRecord struct {
	Questions []Question `json:"questions"`
	Answers   []string   `json:"answers"`
	Skipped   bool       `json:"skipped"`
	Stage     Phase      `json:"stage"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewClarificationRecord pairs answers with questions. Answers are trimmed,
// missing ones become empty and surplus ones are dropped. A skipped record
// keeps no answers.
func NewClarificationRecord(phase Phase, questions []Question, answers []string, skipped bool, at time.Time) ClarificationRecord {
	rec := ClarificationRecord{
		Questions: append([]Question(nil), questions...),
		Skipped:   skipped,
		Stage:     phase,
		Timestamp: at,
	}
	if skipped {
		rec.Answers = []string{}
		return rec
	}
	rec.Answers = make([]string, len(questions))
	for i := range rec.Answers {
		if i < len(answers) {
			rec.Answers[i] = strings.TrimSpace(answers[i])
		}
	}
	return rec
}

// Answer returns the answer paired with question i, empty when skipped.
func (r ClarificationRecord) Answer(i int) string {
	if r.Skipped || i < 0 || i >= len(r.Answers) {
		return ""
	}
	return strings.TrimSpace(r.Answers[i])
}

// PromptContext renders non-empty question/answer pairs in order.
func (r ClarificationRecord) PromptContext() string {
	if r.Skipped {
		return ""
	}
	var b strings.Builder
	for i, q := range r.Questions {
		a := r.Answer(i)
		if a == "" {
			continue
		}
		b.WriteString("**Q: ")
		b.WriteString(q.Text)
		b.WriteString("**\nA: ")
		b.WriteString(a)
		b.WriteString("\n\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n\n## Reader requirements\n\n" + b.String()
}

func (r ClarificationRecord) clone() ClarificationRecord {
	out := r
	out.Questions = append([]Question(nil), r.Questions...)
	out.Answers = cloneStrings(r.Answers)
	return out
}
