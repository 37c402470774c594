package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"auto_blog_writer/workflow"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	hintColor   = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

// previewRunes caps how much of the content under review is echoed.
const previewRunes = 1500

// prompter reads reviewer responses line by line.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("input closed before a response was given")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask shows s and collects the matching response.
func (p *prompter) ask(s *workflow.Suspension) (workflow.Response, error) {
	if s == nil {
		return workflow.Response{}, errors.New("run has nothing pending")
	}
	printSuspension(p.out, s)
	if s.Kind == workflow.KindClarification {
		return p.askClarification(s)
	}
	return p.askApproval()
}

func (p *prompter) askClarification(s *workflow.Suspension) (workflow.Response, error) {
	hintColor.Fprintln(p.out, "Enter one answer per question. Leave an answer blank to skip it, or type /skip to skip all.")
	answers := make([]string, 0, len(s.Questions))
	for i := range s.Questions {
		line, err := p.readLine(fmt.Sprintf("%d> ", i+1))
		if err != nil {
			return workflow.Response{}, err
		}
		if line == "/skip" {
			return workflow.Skip(), nil
		}
		answers = append(answers, line)
	}
	return workflow.Answer(answers...), nil
}

func (p *prompter) askApproval() (workflow.Response, error) {
	for {
		line, err := p.readLine("Approve? [y/n] ")
		if err != nil {
			return workflow.Response{}, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return workflow.Approve(), nil
		case "n", "no":
			feedback, err := p.readLine("What should change? ")
			if err != nil {
				return workflow.Response{}, err
			}
			return workflow.Reject(feedback), nil
		}
		warnColor.Fprintln(p.out, "please answer y or n")
	}
}

func printSuspension(w io.Writer, s *workflow.Suspension) {
	if s == nil {
		return
	}
	fmt.Fprintln(w)
	headerColor.Fprintf(w, "[%s] %s\n", s.Stage, s.Message)
	switch s.Kind {
	case workflow.KindClarification:
		for i, q := range s.Questions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q.Text)
			if q.Placeholder != "" {
				hintColor.Fprintf(w, "     e.g. %s\n", q.Placeholder)
			}
		}
	case workflow.KindApproval:
		fmt.Fprintln(w, truncate(s.Content, previewRunes))
		if s.Extra == nil {
			return
		}
		if s.Extra.Outline != "" {
			headerColor.Fprintln(w, "Outline")
			fmt.Fprintln(w, s.Extra.Outline)
		}
		if len(s.Extra.Sources) > 0 {
			headerColor.Fprintln(w, "Sources")
			for _, src := range s.Extra.Sources {
				fmt.Fprintf(w, "  - %s\n", src)
			}
		}
		if s.Extra.SEOScore != nil {
			fmt.Fprintf(w, "SEO score: %d/100\n", *s.Extra.SEOScore)
		}
	}
}

func printComplete(w io.Writer, st workflow.State) {
	okColor.Fprintln(w, "Run complete.")
	if st.OutputFile != "" {
		fmt.Fprintf(w, "Article: %s\n", st.OutputFile)
	}
	if st.ResearchNotesFile != "" {
		fmt.Fprintf(w, "Research notes: %s\n", st.ResearchNotesFile)
	}
	if st.SEOScore != nil {
		fmt.Fprintf(w, "SEO score: %d/100\n", *st.SEOScore)
	}
}

func printRuns(w io.Writer, cps []workflow.Checkpoint) {
	if len(cps) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}
	for _, cp := range cps {
		fmt.Fprintf(w, "%s  %-9s  %-14s  %s  %s\n",
			cp.RunID, cp.Status, cp.Cursor.Stage, cp.UpdatedAt.Format("2006-01-02 15:04"), cp.State.Topic)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n..."
}
