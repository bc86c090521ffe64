package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

// Limits on session creation input.
const (
	MaxJobRoleRunes    = 200
	MaxExperienceYears = 100
)

// Service runs interview operations against a session store. Answers for
// the same session are processed one at a time.
type Service struct {
	store  store.Store
	engine *Engine
	locks  *keyedMutex
	newID  func() string
	now    func() time.Time
	ttl    time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the retention window applied on every write. Zero keeps
// sessions forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithIDGenerator replaces the random session id source.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.engine.now = now
	}
}

// NewService creates a service backed by st.
func NewService(st store.Store, engine *Engine, opts ...Option) *Service {
	s := &Service{
		store:  st,
		engine: engine,
		locks:  newKeyedMutex(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnswerResult is the outcome of a submitted answer. NextIndex and
// NextQuestion are nil when the answer completed the interview.
type AnswerResult struct {
	Index        int
	Question     string
	Feedback     model.Feedback
	NextIndex    *int
	NextQuestion *string
	Session      model.Session
}

// ReportView summarizes a session's progress and final report.
type ReportView struct {
	JobRole            string
	ExperienceYears    int
	UserReport         string
	AdminReport        string
	AverageScore       float64
	Complete           bool
	TotalQuestions     int
	CompletedQuestions int
}

// Create validates the request, generates the questions and stores the new
// session. Nothing is stored when generation fails.
func (s *Service) Create(ctx context.Context, jobRole string, experienceYears int) (model.Session, error) {
	jobRole = strings.TrimSpace(jobRole)
	if err := validateCreate(jobRole, experienceYears); err != nil {
		return model.Session{}, err
	}

	now := s.now()
	sess := model.Session{
		ID:              s.newID(),
		JobRole:         jobRole,
		ExperienceYears: experienceYears,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.touch(&sess)

	sess, err := s.engine.Generate(ctx, sess)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("store session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	slog.Info("session created", "session_id", sess.ID, "job_role", sess.JobRole, "experience_years", sess.ExperienceYears)
	return sess, nil
}

// Get returns the stored snapshot of a session.
func (s *Service) Get(ctx context.Context, id string) (model.Session, error) {
	return s.store.Get(ctx, id)
}

// SubmitAnswer records and evaluates the answer to the session's current
// question. The evaluation runs to completion even if ctx is canceled.
func (s *Service) SubmitAnswer(ctx context.Context, id, answer string) (AnswerResult, error) {
	ctx = context.WithoutCancel(ctx)

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return AnswerResult{}, err
	}
	step, err := s.engine.SubmitAnswer(ctx, sess, answer)
	if err != nil {
		return AnswerResult{}, err
	}
	next := step.Session
	s.touch(&next)
	if err := s.store.Update(ctx, next); err != nil {
		return AnswerResult{}, fmt.Errorf("store session: %w", err)
	}
	metrics.AnswersEvaluated.Inc()

	res := AnswerResult{
		Index:    step.Index,
		Question: next.Records[step.Index].Question,
		Feedback: step.Evaluation.Feedback,
		Session:  next,
	}
	if next.Complete() {
		slog.Info("interview complete", "session_id", id, "report_source", step.ReportSource,
			"average_score", next.FinalReport.AverageScore)
	} else {
		idx := next.CurrentIndex
		q := next.Records[idx].Question
		res.NextIndex = &idx
		res.NextQuestion = &q
	}
	slog.Debug("answer evaluated", "session_id", id, "question_idx", step.Index, "score", step.Evaluation.Score)
	return res, nil
}

// Report returns the session's report. Before completion the report texts
// are empty and the average covers the questions evaluated so far.
func (s *Service) Report(ctx context.Context, id string) (ReportView, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return ReportView{}, err
	}
	v := ReportView{
		JobRole:            sess.JobRole,
		ExperienceYears:    sess.ExperienceYears,
		AverageScore:       sess.AverageScore(),
		Complete:           sess.Complete(),
		TotalQuestions:     len(sess.Records),
		CompletedQuestions: sess.CompletedQuestions(),
	}
	if r := sess.FinalReport; r != nil {
		v.UserReport = r.UserReport
		v.AdminReport = r.AdminReport
		v.AverageScore = r.AverageScore
	}
	return v, nil
}

func (s *Service) touch(sess *model.Session) {
	if s.ttl > 0 {
		sess.ExpiresAt = s.now().Add(s.ttl)
	}
}

func validateCreate(jobRole string, experienceYears int) error {
	switch {
	case jobRole == "":
		return fmt.Errorf("%w: job_role is required", model.ErrValidation)
	case utf8.RuneCountInString(jobRole) > MaxJobRoleRunes:
		return fmt.Errorf("%w: job_role is longer than %d characters", model.ErrValidation, MaxJobRoleRunes)
	case experienceYears < 0 || experienceYears > MaxExperienceYears:
		return fmt.Errorf("%w: experience_years must be between 0 and %d", model.ErrValidation, MaxExperienceYears)
	}
	return nil
}
