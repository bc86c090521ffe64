package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func sessionWithScores(scores ...int) Session {
	s := Session{ID: "s1", JobRole: "Backend Engineer", ExperienceYears: 5}
	for i := 0; i < QuestionCount; i++ {
		s.Records = append(s.Records, Record{Question: fmt.Sprintf("Q%d", i+1)})
	}
	for i, sc := range scores {
		s.Records[i].Answer = "a"
		s.Records[i].Feedback = &Feedback{Score: sc}
	}
	s.CurrentIndex = len(scores)
	return s
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		want SessionStatus
	}{
		{"no records", Session{}, StatusCreated},
		{"fresh", sessionWithScores(), StatusInProgress},
		{"midway", sessionWithScores(5, 6), StatusInProgress},
		{"done", sessionWithScores(1, 2, 3, 4, 5), StatusComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAverageScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   float64
	}{
		{"none", nil, 0},
		{"single", []int{7}, 7},
		{"rounds to one decimal", []int{7, 8, 8}, 7.7},
		{"all five", []int{7, 8, 6, 9, 5}, 7},
		{"rounds half up", []int{7, 8, 8, 8, 8}, 7.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWithScores(tt.scores...)
			if got := s.AverageScore(); got != tt.want {
				t.Errorf("AverageScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := sessionWithScores(4)
	s.FinalReport = &Report{UserReport: "u"}
	c := s.Clone()

	c.Records[0].Question = "changed"
	c.Records[0].Feedback.Score = 9
	c.FinalReport.UserReport = "changed"

	if s.Records[0].Question != "Q1" {
		t.Errorf("original question mutated: %q", s.Records[0].Question)
	}
	if s.Records[0].Feedback.Score != 4 {
		t.Errorf("original feedback mutated: %d", s.Records[0].Feedback.Score)
	}
	if s.FinalReport.UserReport != "u" {
		t.Errorf("original report mutated: %q", s.FinalReport.UserReport)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	if (Session{}).Expired(now) {
		t.Error("session without expiry should never expire")
	}
	if !(Session{ExpiresAt: now.Add(-time.Second)}).Expired(now) {
		t.Error("session past expiry should be expired")
	}
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Error("session before expiry should not be expired")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("call: %w", ErrProvider), true},
		{fmt.Errorf("%w: %w", ErrGeneration, ErrProvider), true},
		{fmt.Errorf("%w: %w", ErrGeneration, ErrMalformedQuestions), false},
		{ErrValidation, false},
		{ErrEmptyAnswer, false},
		{errors.New("other"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
