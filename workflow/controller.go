package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Processor turns the current state into a partial update for one stage.
type Processor interface {
	Process(ctx context.Context, st State) (Update, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, st State) (Update, error)

func (f ProcessorFunc) Process(ctx context.Context, st State) (Update, error) { return f(ctx, st) }

// QuestionGenerator produces the clarification batch for a phase. It is
// expected to fall back on its own; the controller still replaces an invalid
// batch with DefaultQuestions.
type QuestionGenerator interface {
	Generate(ctx context.Context, st State, phase Phase) []Question
}

// QuestionFunc adapts a function to QuestionGenerator.
type QuestionFunc func(ctx context.Context, st State, phase Phase) []Question

func (f QuestionFunc) Generate(ctx context.Context, st State, phase Phase) []Question {
	return f(ctx, st, phase)
}

// Saver persists the finished article and returns its path.
type Saver interface {
	SaveRun(ctx context.Context, st State) (string, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, st State) (string, error)

func (f SaverFunc) SaveRun(ctx context.Context, st State) (string, error) { return f(ctx, st) }

// Processors bundles the collaborators the controller dispatches to.
type Processors struct {
	Research  Processor
	Writing   Processor
	Editing   Processor
	Questions QuestionGenerator
	Saver     Saver
}

// Transition is the controller's routing decision: park with Suspend, or
// run Next.
type Transition struct {
	Next    Stage
	Suspend *Suspension
}

type gate struct {
	review    Phase
	clarify   Phase
	onApprove Stage
	onReject  Stage
}

var gates = map[Stage]gate{
	StageResearchGate: {clarify: PhaseResearch, onApprove: StageResearch},
	StageWritingGate:  {review: PhaseResearch, clarify: PhaseWriting, onApprove: StageWriting, onReject: StageResearch},
	StageEditingGate:  {review: PhaseWriting, clarify: PhaseEditing, onApprove: StageEditing, onReject: StageWriting},
	StageFinalGate:    {review: PhaseFinal, onApprove: StageSave, onReject: StageEditing},
}

var afterStage = map[Stage]Stage{
	StageResearch: StageWritingGate,
	StageWriting:  StageEditingGate,
	StageEditing:  StageFinalGate,
	StageSave:     StageComplete,
}

// Controller owns every routing decision of a run. Processors only report
// output; the controller picks the next stage.
type Controller struct {
	procs Processors
	clock func() time.Time
}

// NewController validates procs and returns a controller.
func NewController(procs Processors, clock func() time.Time) (*Controller, error) {
	switch {
	case procs.Research == nil:
		return nil, errors.New("research processor is required")
	case procs.Writing == nil:
		return nil, errors.New("writing processor is required")
	case procs.Editing == nil:
		return nil, errors.New("editing processor is required")
	case procs.Questions == nil:
		return nil, errors.New("question generator is required")
	case procs.Saver == nil:
		return nil, errors.New("saver is required")
	}
	if clock == nil {
		clock = utcNow
	}
	return &Controller{procs: procs, clock: clock}, nil
}

// Enter executes stage from its beginning.
func (c *Controller) Enter(ctx context.Context, st *State, stage Stage) (Transition, error) {
	if g, ok := gates[stage]; ok {
		if g.review != "" {
			if content, extra := reviewContent(*st, g.review); content != "" {
				return Transition{Suspend: approvalSuspension(g.review, content, extra)}, nil
			}
		}
		return c.clarifyOrPass(ctx, st, g), nil
	}

	switch stage {
	case StageResearch:
		return c.process(ctx, st, stage, c.procs.Research)
	case StageWriting:
		return c.process(ctx, st, stage, c.procs.Writing)
	case StageEditing:
		return c.process(ctx, st, stage, c.procs.Editing)
	case StageSave:
		path, err := c.procs.Saver.SaveRun(ctx, *st)
		if err != nil {
			return Transition{}, err
		}
		st.OutputFile = path
		return Transition{Next: afterStage[stage]}, nil
	}
	return Transition{}, fmt.Errorf("%w: stage %q cannot be entered", ErrValidation, stage)
}

// Deliver feeds resp to the suspension pending at stage.
func (c *Controller) Deliver(ctx context.Context, st *State, stage Stage, pending *Suspension, resp Response) (Transition, error) {
	g, ok := gates[stage]
	if !ok || pending == nil {
		return Transition{}, fmt.Errorf("%w: stage %q is not awaiting input", ErrConflict, stage)
	}

	switch pending.Kind {
	case KindApproval:
		if !resp.Approved {
			st.ApprovalStatus = ApprovalRejected
			st.UserFeedback = resp.Feedback
			return Transition{Next: g.onReject}, nil
		}
		st.ApprovalStatus = ApprovalApproved
		st.UserFeedback = ""
		return c.clarifyOrPass(ctx, st, g), nil
	case KindClarification:
		rec := NewClarificationRecord(pending.Stage, pending.Questions, resp.Answers, resp.Skipped, c.clock())
		st.setClarification(rec)
		return Transition{Next: g.onApprove}, nil
	}
	return Transition{}, fmt.Errorf("%w: unknown suspension kind %q", ErrValidation, pending.Kind)
}

func (c *Controller) clarifyOrPass(ctx context.Context, st *State, g gate) Transition {
	if g.clarify == "" {
		return Transition{Next: g.onApprove}
	}
	questions := c.procs.Questions.Generate(ctx, *st, g.clarify)
	if !ValidBatch(questions) {
		questions = DefaultQuestions(g.clarify)
	}
	return Transition{Suspend: clarificationSuspension(g.clarify, questions)}
}

func (c *Controller) process(ctx context.Context, st *State, stage Stage, p Processor) (Transition, error) {
	update, err := p.Process(ctx, *st)
	if err != nil {
		return Transition{}, err
	}
	if err := st.Apply(update); err != nil {
		return Transition{}, err
	}
	return Transition{Next: afterStage[stage]}, nil
}

func reviewContent(st State, phase Phase) (string, *ApprovalExtra) {
	switch phase {
	case PhaseResearch:
		return st.ResearchData, &ApprovalExtra{Sources: cloneStrings(st.Sources)}
	case PhaseWriting:
		return st.DraftContent, &ApprovalExtra{Outline: st.Outline}
	case PhaseFinal:
		extra := &ApprovalExtra{}
		if st.SEOScore != nil {
			score := *st.SEOScore
			extra.SEOScore = &score
		}
		return st.FinalContent, extra
	}
	return "", nil
}

func utcNow() time.Time { return time.Now().UTC() }
