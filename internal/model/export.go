package model

import "time"

// SessionExport is the top-level JSON structure for session export.
type SessionExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Store      string          `json:"store"`
	Count      int             `json:"count"`
	Sessions   []SessionResult `json:"sessions"`
}

// SessionResult holds one session's data for export.
type SessionResult struct {
	SessionID          string        `json:"session_id"`
	JobRole            string        `json:"job_role"`
	ExperienceYears    int           `json:"experience_years"`
	Status             SessionStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CompletedQuestions int           `json:"completed_questions"`
	AverageScore       float64       `json:"average_score"`
	Records            []Record      `json:"records"`
	FinalReport        *Report       `json:"final_report,omitempty"`
}

// NewSessionResult flattens a session into its export form.
func NewSessionResult(s Session) SessionResult {
	return SessionResult{
		SessionID:          s.ID,
		JobRole:            s.JobRole,
		ExperienceYears:    s.ExperienceYears,
		Status:             s.Status(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		CompletedQuestions: s.CompletedQuestions(),
		AverageScore:       s.AverageScore(),
		Records:            s.Records,
		FinalReport:        s.FinalReport,
	}
}
