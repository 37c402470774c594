package workflow

// SuspensionKind tags the suspension payload union.
type SuspensionKind string

const (
	KindClarification SuspensionKind = "clarification"
	KindApproval      SuspensionKind = "approval"
)

// Suspension is handed to the reviewer when a run pauses at a gate.
type Suspension struct {
	Kind    SuspensionKind `json:"kind"`
	Stage   Phase          `json:"stage"`
	Message string         `json:"message"`

	// Clarification payload.
	Questions []Question `json:"questions,omitempty"`

	// Approval payload.
	Content string         `json:"content,omitempty"`
	Extra   *ApprovalExtra `json:"extra,omitempty"`
}

// ApprovalExtra carries stage-specific display fields for an approval.
type ApprovalExtra struct {
	Sources  []string `json:"sources,omitempty"`
	Outline  string   `json:"outline,omitempty"`
	SEOScore *int     `json:"seo_score,omitempty"`
}

// Response is the reviewer's answer to a Suspension. Approvals read Approved
// and Feedback, clarifications read Skipped and Answers.
type Response struct {
	Approved bool     `json:"approved,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
	Skipped  bool     `json:"skipped,omitempty"`
	Answers  []string `json:"answers,omitempty"`
}

// Approve builds an approval response.
func Approve() Response { return Response{Approved: true} }

// Reject builds a rejection carrying feedback.
func Reject(feedback string) Response { return Response{Feedback: feedback} }

// Answer builds a clarification response.
func Answer(answers ...string) Response { return Response{Answers: answers} }

// Skip builds a skipped clarification response.
func Skip() Response { return Response{Skipped: true} }

func clarificationSuspension(phase Phase, questions []Question) *Suspension {
	return &Suspension{
		Kind:      KindClarification,
		Stage:     phase,
		Message:   "A few questions before the " + string(phase) + " stage starts.",
		Questions: append([]Question(nil), questions...),
	}
}

func approvalSuspension(phase Phase, content string, extra *ApprovalExtra) *Suspension {
	return &Suspension{
		Kind:    KindApproval,
		Stage:   phase,
		Message: "Please review the " + string(phase) + " result.",
		Content: content,
		Extra:   extra,
	}
}

func (s *Suspension) clone() *Suspension {
	if s == nil {
		return nil
	}
	out := *s
	out.Questions = append([]Question(nil), s.Questions...)
	if s.Extra != nil {
		extra := *s.Extra
		extra.Sources = cloneStrings(s.Extra.Sources)
		if s.Extra.SEOScore != nil {
			score := *s.Extra.SEOScore
			extra.SEOScore = &score
		}
		out.Extra = &extra
	}
	return &out
}
