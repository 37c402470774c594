// Package workflow holds the run state, the stage state machine and the
// suspend/resume engine that persists runs between human checkpoints.
package workflow

import (
	"fmt"
	"strings"
)

// Stage is a node of the fixed pipeline, also recorded as current_stage.
type Stage string

const (
	StageInitialized  Stage = "initialized"
	StageResearchGate Stage = "research_gate"
	StageResearch     Stage = "research"
	StageWritingGate  Stage = "writing_gate"
	StageWriting      Stage = "writing"
	StageEditingGate  Stage = "editing_gate"
	StageEditing      Stage = "editing"
	StageFinalGate    Stage = "final_gate"
	StageSave         Stage = "save"
	StageComplete     Stage = "complete"
)

// Valid reports whether s is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageInitialized, StageResearchGate, StageResearch, StageWritingGate, StageWriting,
		StageEditingGate, StageEditing, StageFinalGate, StageSave, StageComplete:
		return true
	}
	return false
}

// IsGate reports whether s suspends for human input.
func (s Stage) IsGate() bool {
	switch s {
	case StageResearchGate, StageWritingGate, StageEditingGate, StageFinalGate:
		return true
	}
	return false
}

// Phase names the content-producing part of the pipeline a clarification
// record or approval payload belongs to.
type Phase string

const (
	PhaseResearch Phase = "research"
	PhaseWriting  Phase = "writing"
	PhaseEditing  Phase = "editing"
	PhaseFinal    Phase = "final"
)

// Phases that collect clarification answers, in pipeline order.
var ClarifyPhases = []Phase{PhaseResearch, PhaseWriting, PhaseEditing}

func (p Phase) clarifiable() bool {
	return p == PhaseResearch || p == PhaseWriting || p == PhaseEditing
}

// ApprovalStatus records the last gate decision.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Input is what a caller supplies to open a run.
type Input struct {
	Topic        string   `json:"topic"`
	Keywords     []string `json:"keywords"`
	TargetLength int      `json:"target_length"`
}

// State is the single record threaded through every stage of a run.
type State struct {
	Topic        string   `json:"topic"`
	Keywords     []string `json:"keywords"`
	TargetLength int      `json:"target_length"`

	ResearchData      string   `json:"research_data,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	ResearchNotesFile string   `json:"research_notes_file,omitempty"`
	Outline           string   `json:"outline,omitempty"`
	DraftContent      string   `json:"draft_content,omitempty"`
	FinalContent      string   `json:"final_content,omitempty"`
	SEOScore          *int     `json:"seo_score,omitempty"`

	CurrentStage   Stage          `json:"current_stage"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	UserFeedback   string         `json:"user_feedback,omitempty"`
	OutputFile     string         `json:"output_file,omitempty"`

	Clarifications map[Phase]ClarificationRecord `json:"clarifications,omitempty"`
}

// NewState validates in and returns the initial state of a run.
func NewState(in Input) (State, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return State{}, fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if in.TargetLength <= 0 {
		return State{}, fmt.Errorf("%w: target_length must be positive, got %d", ErrValidation, in.TargetLength)
	}
	keywords := make([]string, 0, len(in.Keywords))
	for i, kw := range in.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return State{}, fmt.Errorf("%w: keyword %d is blank", ErrValidation, i)
		}
		keywords = append(keywords, kw)
	}
	return State{
		Topic:          topic,
		Keywords:       keywords,
		TargetLength:   in.TargetLength,
		CurrentStage:   StageInitialized,
		ApprovalStatus: ApprovalNone,
	}, nil
}

// Clarification returns the record stored for phase, if any.
func (s State) Clarification(phase Phase) (ClarificationRecord, bool) {
	rec, ok := s.Clarifications[phase]
	return rec, ok
}

// ClarificationContext is the prompt snippet for phase, empty when nothing
// usable was answered.
func (s State) ClarificationContext(phase Phase) string {
	rec, ok := s.Clarification(phase)
	if !ok {
		return ""
	}
	return rec.PromptContext()
}

// Update is a partial state change reported by a stage processor. Nil fields
// are left untouched.
type Update struct {
	ResearchData      *string
	Sources           []string
	ResearchNotesFile *string
	Outline           *string
	DraftContent      *string
	FinalContent      *string
	SEOScore          *int
}

// Apply merges u into s.
func (s *State) Apply(u Update) error {
	if u.SEOScore != nil && (*u.SEOScore < 0 || *u.SEOScore > 100) {
		return fmt.Errorf("%w: seo_score %d out of range", ErrValidation, *u.SEOScore)
	}
	if u.ResearchData != nil {
		s.ResearchData = *u.ResearchData
	}
	if u.Sources != nil {
		s.Sources = cloneStrings(u.Sources)
	}
	if u.ResearchNotesFile != nil {
		s.ResearchNotesFile = *u.ResearchNotesFile
	}
	if u.Outline != nil {
		s.Outline = *u.Outline
	}
	if u.DraftContent != nil {
		s.DraftContent = *u.DraftContent
	}
	if u.FinalContent != nil {
		s.FinalContent = *u.FinalContent
	}
	if u.SEOScore != nil {
		score := *u.SEOScore
		s.SEOScore = &score
	}
	return nil
}

func (s *State) setClarification(rec ClarificationRecord) {
	if s.Clarifications == nil {
		s.Clarifications = make(map[Phase]ClarificationRecord)
	}
	s.Clarifications[rec.Stage] = rec
}

// Clone returns a deep copy so snapshots handed to callers never alias the
// engine's working state.
func (s State) Clone() State {
	out := s
	out.Keywords = cloneStrings(s.Keywords)
	out.Sources = cloneStrings(s.Sources)
	if s.SEOScore != nil {
		score := *s.SEOScore
		out.SEOScore = &score
	}
	if s.Clarifications != nil {
		out.Clarifications = make(map[Phase]ClarificationRecord, len(s.Clarifications))
		for k, v := range s.Clarifications {
			out.Clarifications[k] = v.clone()
		}
	}
	return out
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
