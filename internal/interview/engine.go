// Package interview drives an interview session through question
// generation, the answer/evaluation loop and the final report.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/parser"
)

// Oracle operations, used as metric and log labels.
const (
	OpGenerate = "generate"
	OpEvaluate = "evaluate"
	OpReport   = "report"
)

// Fallback report text used when the final report cannot be generated.
const (
	FallbackUserReport = "Thank you for completing the interview. Your detailed report could not be generated " +
		"right now, but your answers and the feedback for each question have been saved."
	FallbackAdminReport = "Automatic report generation failed. Review the per-question feedback and scores; " +
		"the average score is computed from the recorded evaluations."
)

// Oracle is a text-completion service. Implementations return errors that
// wrap model.ErrProvider.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Engine implements the session state machine. Its methods take a session
// value and return a new one; the input is never modified.
type Engine struct {
	oracle  Oracle
	prompts *prompts.Set
	now     func() time.Time
}

// NewEngine creates an engine that renders prompts from p and sends them to o.
func NewEngine(o Oracle, p *prompts.Set) *Engine {
	return &Engine{oracle: o, prompts: p, now: time.Now}
}

// Step is the outcome of one accepted answer.
type Step struct {
	Session    model.Session
	Index      int // index of the question that was answered
	Evaluation parser.Evaluation
	// ReportSource is set when the answer completed the interview.
	ReportSource string
}

// Generate populates a fresh session with model.QuestionCount questions and
// points it at the first one. On failure the returned error wraps
// model.ErrGeneration and the session is left as it was.
func (e *Engine) Generate(ctx context.Context, s model.Session) (model.Session, error) {
	if s.Status() != model.StatusCreated {
		return s, fmt.Errorf("%w: session %s already has questions", model.ErrGeneration, s.ID)
	}

	prompt, err := e.prompts.Questions(s.JobRole, s.ExperienceYears)
	if err != nil {
		return s, fmt.Errorf("%w: %w", model.ErrGeneration, err)
	}
	raw, err := e.call(ctx, OpGenerate, prompt)
	if err != nil {
		return s, fmt.Errorf("%w: %w", model.ErrGeneration, err)
	}
	questions, err := parser.Questions(raw)
	if err != nil {
		slog.Warn("could not parse generated questions", "session_id", s.ID, "raw", raw, "error", err)
		return s, fmt.Errorf("%w: %w", model.ErrGeneration, err)
	}

	next := s.Clone()
	next.Records = make([]model.Record, len(questions))
	for i, q := range questions {
		next.Records[i] = model.Record{Question: q}
	}
	next.CurrentIndex = 0
	next.FinalReport = nil
	next.UpdatedAt = e.now()
	return next, nil
}

// SubmitAnswer evaluates answer against the current question, records it and
// advances the session. Answering the last question also produces the final
// report. On any error the session is returned unchanged.
func (e *Engine) SubmitAnswer(ctx context.Context, s model.Session, answer string) (Step, error) {
	if err := checkIndex(s); err != nil {
		return Step{Session: s}, err
	}
	idx := s.CurrentIndex
	if idx == len(s.Records) {
		return Step{Session: s}, model.ErrInterviewComplete
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Step{Session: s}, model.ErrEmptyAnswer
	}

	question := s.Records[idx].Question
	prompt, err := e.prompts.Evaluate(s.JobRole, s.ExperienceYears, question, answer)
	if err != nil {
		return Step{Session: s}, fmt.Errorf("render evaluation prompt: %w", err)
	}
	raw, err := e.call(ctx, OpEvaluate, prompt)
	if err != nil {
		return Step{Session: s}, fmt.Errorf("evaluate answer %d: %w", idx, err)
	}
	ev := parser.ParseEvaluation(raw)
	if !ev.Parsed {
		slog.Warn("evaluation only partially parsed", "session_id", s.ID, "question_idx", idx, "raw", raw)
	}

	next := s.Clone()
	fb := ev.Feedback
	next.Records[idx].Answer = answer
	next.Records[idx].Feedback = &fb
	next.CurrentIndex = idx + 1
	next.UpdatedAt = e.now()

	step := Step{Index: idx, Evaluation: ev}
	if next.CurrentIndex == len(next.Records) {
		next, step.ReportSource = e.generateReport(ctx, next)
	}
	step.Session = next
	return step, nil
}

// generateReport attaches the final report to a fully answered session. It
// never fails: any problem substitutes the fallback text.
func (e *Engine) generateReport(ctx context.Context, s model.Session) (model.Session, string) {
	next := s.Clone()
	report := model.Report{AverageScore: s.AverageScore()}
	source := metrics.SourceOracle

	text, err := e.reportText(ctx, s)
	switch {
	case err != nil:
		slog.Warn("final report generation failed, using fallback", "session_id", s.ID, "error", err)
		source = metrics.SourceFallback
		report.UserReport = FallbackUserReport
		report.AdminReport = FallbackAdminReport
	case text.UserReport == "" && text.AdminReport == "":
		slog.Warn("final report had no recognizable sections, using fallback", "session_id", s.ID)
		source = metrics.SourceFallback
		report.UserReport = FallbackUserReport
		report.AdminReport = FallbackAdminReport
	default:
		report.UserReport = text.UserReport
		report.AdminReport = text.AdminReport
		if report.UserReport == "" {
			report.UserReport = FallbackUserReport
		}
		if report.AdminReport == "" {
			report.AdminReport = FallbackAdminReport
		}
	}

	metrics.ReportsGenerated.WithLabelValues(source).Inc()
	next.FinalReport = &report
	return next, source
}

func (e *Engine) reportText(ctx context.Context, s model.Session) (parser.ReportText, error) {
	prompt, err := e.prompts.Report(s)
	if err != nil {
		return parser.ReportText{}, fmt.Errorf("render report prompt: %w", err)
	}
	raw, err := e.call(ctx, OpReport, prompt)
	if err != nil {
		return parser.ReportText{}, err
	}
	return parser.ParseReport(raw), nil
}

// call sends one prompt to the oracle and guarantees provider failures wrap
// model.ErrProvider.
func (e *Engine) call(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	raw, err := e.oracle.Complete(ctx, prompt)
	metrics.ObserveOracle(op, start, err)
	if err != nil {
		if !errors.Is(err, model.ErrProvider) {
			err = fmt.Errorf("%w: %w", model.ErrProvider, err)
		}
		slog.Error("oracle call failed", "operation", op, "error", err)
		return "", err
	}
	return raw, nil
}

// checkIndex rejects snapshots that break the session invariants.
func checkIndex(s model.Session) error {
	n := len(s.Records)
	if n != model.QuestionCount {
		return fmt.Errorf("%w: session %s has %d questions", model.ErrInvalidIndex, s.ID, n)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > n {
		return fmt.Errorf("%w: session %s points at question %d of %d", model.ErrInvalidIndex, s.ID, s.CurrentIndex, n)
	}
	for i, r := range s.Records {
		if (r.Feedback != nil) != (i < s.CurrentIndex) {
			return fmt.Errorf("%w: session %s record %d out of step with index %d", model.ErrInvalidIndex, s.ID, i, s.CurrentIndex)
		}
	}
	return nil
}
