package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/model"
)

const maxBodyBytes = 1 << 20

// Speaker synthesizes speech from text.
type Speaker interface {
	Speak(ctx context.Context, text, voice string) (io.ReadCloser, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	interviews *interview.Service
	speaker    Speaker
}

// New creates a new Handler. speaker may be nil, which disables /tts.
func New(svc *interview.Service, speaker Speaker) *Handler {
	return &Handler{interviews: svc, speaker: speaker}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(i18n.Middleware)
		r.Get("/", h.handleIndex)
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Post("/sessions/{sessionID}/answers", h.handleSubmitAnswer)
		r.Get("/sessions/{sessionID}/report", h.handleReport)
		if h.speaker != nil {
			r.Post("/tts", h.handleTTS)
		}
	})
}

type createSessionRequest struct {
	JobRole         string `json:"job_role"`
	ExperienceYears *int   `json:"experience_years"`
}

type createSessionResponse struct {
	SessionID       string   `json:"session_id"`
	JobRole         string   `json:"job_role"`
	ExperienceYears int      `json:"experience_years"`
	Questions       []string `json:"questions"`
	CurrentIndex    int      `json:"current_question_idx"`
}

type sessionResponse struct {
	model.Session
	Status model.SessionStatus `json:"status"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type answerResponse struct {
	QuestionIndex     int     `json:"question_idx"`
	Question          string  `json:"question"`
	UserFeedback      string  `json:"user_feedback"`
	AdminFeedback     string  `json:"admin_feedback"`
	AdminScore        int     `json:"admin_score"`
	TechnicalAccuracy int     `json:"admin_technical_accuracy"`
	Completeness      int     `json:"admin_completeness"`
	Clarity           int     `json:"admin_clarity"`
	NextQuestionIndex *int    `json:"next_question_idx"`
	NextQuestion      *string `json:"next_question"`
}

type reportResponse struct {
	JobRole            string  `json:"job_role"`
	ExperienceYears    int     `json:"experience_years"`
	UserReport         string  `json:"user_report"`
	AdminReport        string  `json:"admin_report"`
	AverageScore       float64 `json:"average_score"`
	InterviewComplete  bool    `json:"interview_complete"`
	TotalQuestions     int     `json:"total_questions"`
	CompletedQuestions int     `json:"completed_questions"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": i18n.T(r.Context(), "Greeting")})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if e := validateCreate(req); e != nil {
		writeAPIError(w, r, e)
		return
	}

	sess, err := h.interviews.Create(r.Context(), req.JobRole, *req.ExperienceYears)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		JobRole:         sess.JobRole,
		ExperienceYears: sess.ExperienceYears,
		Questions:       sess.Questions(),
		CurrentIndex:    sess.CurrentIndex,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.interviews.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Status: sess.Status()})
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.interviews.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		QuestionIndex:     res.Index,
		Question:          res.Question,
		UserFeedback:      res.Feedback.UserFeedback,
		AdminFeedback:     res.Feedback.AdminFeedback,
		AdminScore:        res.Feedback.Score,
		TechnicalAccuracy: res.Feedback.TechnicalAccuracy,
		Completeness:      res.Feedback.Completeness,
		Clarity:           res.Feedback.Clarity,
		NextQuestionIndex: res.NextIndex,
		NextQuestion:      res.NextQuestion,
	})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.interviews.Report(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		JobRole:            rep.JobRole,
		ExperienceYears:    rep.ExperienceYears,
		UserReport:         rep.UserReport,
		AdminReport:        rep.AdminReport,
		AverageScore:       rep.AverageScore,
		InterviewComplete:  rep.Complete,
		TotalQuestions:     rep.TotalQuestions,
		CompletedQuestions: rep.CompletedQuestions,
	})
}

func validateCreate(req createSessionRequest) *apiError {
	role := strings.TrimSpace(req.JobRole)
	switch {
	case role == "":
		return invalid("ErrJobRoleRequired", nil)
	case utf8.RuneCountInString(role) > interview.MaxJobRoleRunes:
		return invalidPlural("ErrJobRoleTooLong", interview.MaxJobRoleRunes)
	case req.ExperienceYears == nil:
		return invalid("ErrExperienceYearsRequired", nil)
	case *req.ExperienceYears < 0 || *req.ExperienceYears > interview.MaxExperienceYears:
		return invalid("ErrExperienceYearsRange", map[string]any{"Max": interview.MaxExperienceYears})
	}
	return nil
}

// decodeJSON reads the request body into v, writing a validation error and
// returning false when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeAPIError(w, r, invalid("ErrInvalidJSON", nil))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
