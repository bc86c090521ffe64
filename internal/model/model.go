package model

import (
	"math"
	"time"
)

// QuestionCount is the fixed number of questions in every interview.
const QuestionCount = 5

// MaxScore is the upper bound of every feedback score.
const MaxScore = 10

// SessionStatus represents the state of an interview session.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in_progress"
	StatusComplete   SessionStatus = "complete"
)

// Feedback holds the evaluation of a single answer.
type Feedback struct {
	UserFeedback      string `json:"user_feedback"`
	AdminFeedback     string `json:"admin_feedback"`
	Score             int    `json:"admin_score"`
	TechnicalAccuracy int    `json:"admin_technical_accuracy"`
	Completeness      int    `json:"admin_completeness"`
	Clarity           int    `json:"admin_clarity"`
}

// Record is one question of the interview with its answer and evaluation.
type Record struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Feedback *Feedback `json:"feedback"`
}

// Report is the final assessment produced once all questions are answered.
type Report struct {
	UserReport   string  `json:"user_report"`
	AdminReport  string  `json:"admin_report"`
	AverageScore float64 `json:"average_score"`
}

// Session is a snapshot of one candidate's interview.
//
// Sessions are values: every transition returns a new Session and never
// mutates the records of the one it was given.
type Session struct {
	ID              string    `json:"session_id"`
	JobRole         string    `json:"job_role"`
	ExperienceYears int       `json:"experience_years"`
	Records         []Record  `json:"records"`
	CurrentIndex    int       `json:"current_question_idx"`
	FinalReport     *Report   `json:"final_report"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ExpiresAt       time.Time `json:"expires_at,omitzero"`
}

// Status derives the state machine position from the snapshot.
func (s Session) Status() SessionStatus {
	switch {
	case len(s.Records) == 0:
		return StatusCreated
	case s.CurrentIndex >= len(s.Records):
		return StatusComplete
	default:
		return StatusInProgress
	}
}

// Complete reports whether every question has been answered.
func (s Session) Complete() bool {
	return s.Status() == StatusComplete
}

// Questions returns the question texts in order.
func (s Session) Questions() []string {
	qs := make([]string, len(s.Records))
	for i, r := range s.Records {
		qs[i] = r.Question
	}
	return qs
}

// Expired reports whether the session outlived its retention window.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Clone returns a deep copy that shares no memory with s.
func (s Session) Clone() Session {
	c := s
	if s.Records != nil {
		c.Records = make([]Record, len(s.Records))
		for i, r := range s.Records {
			c.Records[i] = r
			if r.Feedback != nil {
				fb := *r.Feedback
				c.Records[i].Feedback = &fb
			}
		}
	}
	if s.FinalReport != nil {
		rep := *s.FinalReport
		c.FinalReport = &rep
	}
	return c
}

// AverageScore is the mean overall score of the evaluated records, rounded to
// one decimal place. It is 0 when nothing has been evaluated.
func (s Session) AverageScore() float64 {
	var sum, n int
	for _, r := range s.Records {
		if r.Feedback == nil {
			continue
		}
		sum += r.Feedback.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

// CompletedQuestions is the number of evaluated records.
func (s Session) CompletedQuestions() int {
	n := 0
	for _, r := range s.Records {
		if r.Feedback != nil {
			n++
		}
	}
	return n
}
