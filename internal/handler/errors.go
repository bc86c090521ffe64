package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeEmptyAnswer        = "EMPTY_ANSWER"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeInterviewComplete  = "INTERVIEW_COMPLETE"
	CodeProvider           = "PROVIDER_ERROR"
	CodeMalformedQuestions = "MALFORMED_QUESTIONS"
	CodeInvalidIndex       = "INVALID_INDEX"
	CodeInternal           = "INTERNAL"
)

type apiError struct {
	status    int
	code      string
	msgID     string
	data      map[string]any
	count     *int
	retryable bool
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func invalid(msgID string, data map[string]any) *apiError {
	return &apiError{status: http.StatusBadRequest, code: CodeValidation, msgID: msgID, data: data}
}

func invalidPlural(msgID string, count int) *apiError {
	return &apiError{status: http.StatusBadRequest, code: CodeValidation, msgID: msgID, count: &count}
}

// classify maps an error from the interview service to its response.
func classify(err error, r *http.Request) *apiError {
	switch {
	case errors.Is(err, model.ErrValidation):
		return invalid("ErrValidation", nil)
	case errors.Is(err, model.ErrEmptyAnswer):
		return &apiError{status: http.StatusBadRequest, code: CodeEmptyAnswer, msgID: "ErrEmptyAnswer"}
	case errors.Is(err, model.ErrSessionNotFound):
		return &apiError{
			status: http.StatusNotFound,
			code:   CodeSessionNotFound,
			msgID:  "ErrSessionNotFound",
			data:   map[string]any{"ID": chi.URLParam(r, "sessionID")},
		}
	case errors.Is(err, model.ErrInterviewComplete):
		return &apiError{status: http.StatusConflict, code: CodeInterviewComplete, msgID: "ErrInterviewComplete"}
	case errors.Is(err, model.ErrMalformedQuestions):
		return &apiError{status: http.StatusBadGateway, code: CodeMalformedQuestions, msgID: "ErrMalformedQuestions"}
	case errors.Is(err, model.ErrProvider):
		return &apiError{status: http.StatusBadGateway, code: CodeProvider, msgID: "ErrProvider", retryable: true}
	case errors.Is(err, model.ErrInvalidIndex):
		return &apiError{status: http.StatusInternalServerError, code: CodeInvalidIndex, msgID: "ErrInvalidIndex"}
	default:
		return &apiError{status: http.StatusInternalServerError, code: CodeInternal, msgID: "ErrInternal"}
	}
}

// writeError logs err and writes its classified JSON response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err, r)
	if e.status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", e.code, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", e.code, "error", err)
	}
	writeAPIError(w, r, e)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, e *apiError) {
	var msg string
	switch {
	case e.count != nil:
		msg = i18n.Tp(r.Context(), e.msgID, *e.count)
	case e.data != nil:
		msg = i18n.Td(r.Context(), e.msgID, e.data)
	default:
		msg = i18n.T(r.Context(), e.msgID)
	}
	writeJSON(w, e.status, errorBody{Error: errorDetail{
		Code:      e.code,
		Message:   msg,
		Retryable: e.retryable,
	}})
}
