package generator

import (
	"fmt"
	"strings"

	"auto_blog_writer/search"
	"auto_blog_writer/seo"
	"auto_blog_writer/workflow"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System      string
	User        string
	History     []Message
	Temperature float64
}

// Message 用于少量历史（可选）。
type Message struct {
	Role    string
	Content string
}

const markdownOnly = "Answer in Markdown only, with no preamble or closing remarks."

// BuildClarifyPrompt asks for 3-5 reader questions as a JSON batch.
func BuildClarifyPrompt(st workflow.State, phase workflow.Phase, temperature float64) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a blog writing assistant. Before the ")
	sb.WriteString(string(phase))
	sb.WriteString(" stage starts, ask the author what you need to know to write a better post.\n\n")
	sb.WriteString("## Current context\n")
	sb.WriteString(clarifyContext(st, phase))
	sb.WriteString("\n## Question guidelines\n")
	sb.WriteString("1. **Audience**: who is the post for (expertise, age group, interests)?\n")
	sb.WriteString("2. **Direction**: which tone and angle (formal or friendly, academic or practical)?\n")
	sb.WriteString("3. **Constraints**: phrasing to avoid, points to stress, special requirements.\n\n")
	sb.WriteString("## Output format (JSON)\n")
	sb.WriteString(`{"questions": [{"text": "Who is the main audience?", "category": "audience", "placeholder": "e.g. new parents"}]}`)
	sb.WriteString("\n\nCategories are audience, direction or constraint. Produce exactly 3 to 5 questions. Output JSON only.")

	return Prompt{
		System:      "You write short, specific questions and reply with JSON only.",
		User:        sb.String(),
		Temperature: temperature,
	}
}

// clarifyContext summarizes what is known so far; later phases see a short
// excerpt of the previous stage's output.
func clarifyContext(st workflow.State, phase workflow.Phase) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Topic: %s\n", st.Topic)
	fmt.Fprintf(&sb, "- Keywords: %s\n", strings.Join(st.Keywords, ", "))
	fmt.Fprintf(&sb, "- Target length: %d words\n", st.TargetLength)
	switch phase {
	case workflow.PhaseResearch:
		sb.WriteString("- Stage: before research\n")
	case workflow.PhaseWriting:
		sb.WriteString("- Stage: before writing\n")
		fmt.Fprintf(&sb, "- Research summary: %s...\n", excerpt(st.ResearchData, excerptRunes))
	case workflow.PhaseEditing:
		sb.WriteString("- Stage: before editing\n")
		fmt.Fprintf(&sb, "- Draft summary: %s...\n", excerpt(st.DraftContent, excerptRunes))
	}
	return sb.String()
}

// BuildResearchPrompt folds search results into a research brief request.
func BuildResearchPrompt(st workflow.State, searchData string, temperature float64) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Using the search results below, write a research brief for a blog post about %q.\n", st.Topic)
	sb.WriteString(st.ClarificationContext(workflow.PhaseResearch))
	sb.WriteString(revisionNote(st))
	sb.WriteString("\n\n## Search results\n\n")
	sb.WriteString(searchData)
	sb.WriteString("\n\n## Requirements\n\n")
	sb.WriteString("Structure the brief with these sections:\n\n")
	sb.WriteString("1. **Key summary** (3-5 sentences)\n")
	sb.WriteString("2. **Main facts and statistics**\n")
	sb.WriteString("3. **Current trends**\n")
	sb.WriteString("4. **Expert opinions and quotes**\n")
	sb.WriteString("5. **Concrete cases and examples**\n")
	sb.WriteString("6. **Points the reader must know**\n\n")
	sb.WriteString("Keep it clear enough to draft from directly. **Respect the reader requirements above.**")

	return Prompt{
		System:      "You are a research specialist preparing material for a blog writer. " + markdownOnly,
		User:        sb.String(),
		Temperature: temperature,
	}
}

// FormatSearchData renders the main query and the per-keyword answers as markdown.
func FormatSearchData(main search.Response, perKeyword []KeywordResult) string {
	var sb strings.Builder
	sb.WriteString("# Main research results\n\n")
	fmt.Fprintf(&sb, "**Query**: %s\n", main.Query)
	fmt.Fprintf(&sb, "**Summary**: %s\n\n", orNA(main.Answer))
	sb.WriteString("## Detailed results\n\n")
	for i, r := range main.Results {
		fmt.Fprintf(&sb, "### %d. %s\n- **Source**: %s\n- **Relevance**: %.2f\n\n%s\n\n---\n\n", i+1, r.Title, r.URL, r.Score, r.Content)
	}
	for _, kr := range perKeyword {
		fmt.Fprintf(&sb, "# Keyword research: %s\n\n**Summary**: %s\n\n", kr.Keyword, orNA(kr.Response.Answer))
	}
	return sb.String()
}

// BuildOutlinePrompt asks for a structured outline of the post.
func BuildOutlinePrompt(st workflow.State, style string, temperature float64) Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the research below, write a detailed outline for a blog post about %q.\n", st.Topic)
	sb.WriteString(st.ClarificationContext(workflow.PhaseWriting))
	sb.WriteString(revisionNote(st))
	sb.WriteString("\n\n## Research\n\n")
	sb.WriteString(st.ResearchData)
	writeStyle(&sb, style)
	sb.WriteString("\n\n## Requirements\n\n")
	sb.WriteString("1. **A compelling title** following the style guide\n")
	sb.WriteString("2. **Introduction** opening with a vivid scene or anecdote\n")
	sb.WriteString("3. **Body sections** combining experience and expertise, each with concrete numbers\n")
	sb.WriteString("4. **Conclusion** with practical action items\n\n")
	fmt.Fprintf(&sb, "Target length: about %d words\n", st.TargetLength)
	fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(st.Keywords, ", "))

	return Prompt{
		System:      "You are a professional blog writer. " + markdownOnly,
		User:        sb.String(),
		Temperature: temperature,
	}
}

// BuildDraftPrompt asks for the full post from the outline and research.
func BuildDraftPrompt(st workflow.State, outline, style string, temperature float64) Prompt {
	var sb strings.Builder
	sb.WriteString("Write the complete blog post from the outline and research below.\n")
	sb.WriteString(st.ClarificationContext(workflow.PhaseWriting))
	sb.WriteString(revisionNote(st))
	sb.WriteString("\n\n## Outline\n\n")
	sb.WriteString(outline)
	sb.WriteString("\n\n## Research\n\n")
	sb.WriteString(st.ResearchData)
	writeStyle(&sb, style)
	sb.WriteString("\n\n## Requirements\n\n")
	fmt.Fprintf(&sb, "1. **Length**: about %d words\n", st.TargetLength)
	sb.WriteString("2. **Structure**: Markdown with ## and ### headings, **bold** and *italics* where they help\n")
	sb.WriteString("3. **Content**: concrete examples and data, real value for the reader\n")
	fmt.Fprintf(&sb, "4. **Keywords**: work these in naturally: %s\n", strings.Join(st.Keywords, ", "))
	sb.WriteString("5. **Style**: follow the style guide above strictly\n")

	return Prompt{
		System:      "You are a professional blog writer. " + markdownOnly,
		User:        sb.String(),
		Temperature: temperature,
	}
}

// BuildEditPrompt asks for a polished, search-optimized final version.
func BuildEditPrompt(st workflow.State, report seo.Report, temperature float64) Prompt {
	var sb strings.Builder
	sb.WriteString("Review and improve the blog draft below.\n")
	sb.WriteString(st.ClarificationContext(workflow.PhaseEditing))
	sb.WriteString(revisionNote(st))
	sb.WriteString("\n\n## Draft\n\n")
	sb.WriteString(st.DraftContent)
	sb.WriteString("\n\n## Current SEO analysis\n\n")
	sb.WriteString(report.Summary())
	sb.WriteString("\n## Recommendations\n\n")
	if len(report.Recommendations) == 0 {
		sb.WriteString("- None\n")
	}
	for _, rec := range report.Recommendations {
		sb.WriteString("- " + rec + "\n")
	}
	sb.WriteString("\n## Editing tasks\n\n")
	sb.WriteString("1. **Grammar and spelling**: fix errors\n")
	sb.WriteString("2. **Readability**: improve sentence length and flow\n")
	sb.WriteString("3. **SEO**: place keywords naturally, add H2/H3 headings, open with a meta-description friendly intro\n")
	sb.WriteString("4. **Structure**: keep and improve the Markdown\n")
	sb.WriteString("5. **Content**: sharpen clarity and depth\n\n")
	sb.WriteString("Return the final version.")

	return Prompt{
		System:      "You are a professional editor and SEO specialist. " + markdownOnly,
		User:        sb.String(),
		Temperature: temperature,
	}
}

// revisionNote carries the reviewer's comment into the re-run stage.
func revisionNote(st workflow.State) string {
	if st.ApprovalStatus != workflow.ApprovalRejected || strings.TrimSpace(st.UserFeedback) == "" {
		return ""
	}
	return "\n\n## Reviewer feedback on the previous version\n\n" + strings.TrimSpace(st.UserFeedback) +
		"\n\nAddress this feedback in the new version."
}

func writeStyle(sb *strings.Builder, style string) {
	if strings.TrimSpace(style) == "" {
		return
	}
	sb.WriteString("\n\n## Style guide\n\n")
	sb.WriteString(strings.TrimSpace(style))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
