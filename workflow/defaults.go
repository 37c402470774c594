package workflow

// DefaultQuestions is the fixed fallback batch for phase: exactly three
// questions, one per category.
func DefaultQuestions(phase Phase) []Question {
	switch phase {
	case PhaseWriting:
		return []Question{
			{Text: "What tone should the post take?", Category: CategoryDirection, Placeholder: "e.g. friendly and plain, or formal and technical"},
			{Text: "Who will read this draft first?", Category: CategoryAudience, Placeholder: "e.g. first-time parents, backend engineers"},
			{Text: "Are there expressions or styles to avoid?", Category: CategoryConstraint, Placeholder: "e.g. no emoji, no jargon"},
		}
	case PhaseEditing:
		return []Question{
			{Text: "Which part of SEO matters most for this post?", Category: CategoryDirection, Placeholder: "e.g. keyword density, meta description"},
			{Text: "Which section will readers look at first?", Category: CategoryAudience, Placeholder: "e.g. the introduction, the practical tips"},
			{Text: "Anything the edit must be careful about?", Category: CategoryConstraint, Placeholder: "e.g. keep sentences short"},
		}
	default:
		return []Question{
			{Text: "Who is the main audience?", Category: CategoryAudience, Placeholder: "e.g. office workers in their 30s, new parents"},
			{Text: "What should the research focus on?", Category: CategoryDirection, Placeholder: "e.g. latest trends, expert opinion"},
			{Text: "Are there sources or limits the research must respect?", Category: CategoryConstraint, Placeholder: "e.g. exclude certain sites"},
		}
	}
}
