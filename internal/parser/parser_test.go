package parser

import (
	"errors"
	"testing"

	"github.com/pavelanni/interviewer/internal/model"
)

func TestQuestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "bare array",
			raw:  `["A","B","C","D","E"]`,
			want: []string{"A", "B", "C", "D", "E"},
		},
		{
			name: "pretty printed with whitespace",
			raw:  "\n[\n  \"What is a goroutine?\",\n  \"B\",\n  \"C\",\n  \"D\",\n  \" E \"\n]\n",
			want: []string{"What is a goroutine?", "B", "C", "D", "E"},
		},
		{
			name: "code fence",
			raw:  "```json\n[\"A\",\"B\",\"C\",\"D\",\"E\"]\n```",
			want: []string{"A", "B", "C", "D", "E"},
		},
		{
			name: "object wrapper",
			raw:  `{"questions": ["A","B","C","D","E"]}`,
			want: []string{"A", "B", "C", "D", "E"},
		},
		{name: "four questions", raw: `["A","B","C","D"]`, wantErr: true},
		{name: "six questions", raw: `["A","B","C","D","E","F"]`, wantErr: true},
		{name: "not json", raw: "not json", wantErr: true},
		{name: "numbers", raw: `[1,2,3,4,5]`, wantErr: true},
		{name: "blank question", raw: `["A","B","","D","E"]`, wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "object without questions", raw: `{"items": ["A","B","C","D","E"]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Questions(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, model.ErrMalformedQuestions) {
					t.Fatalf("Questions() error = %v, want ErrMalformedQuestions", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Questions() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Questions() returned %d questions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("question %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       model.Feedback
		wantParsed bool
	}{
		{
			name: "partial markers",
			raw:  "USER_FEEDBACK: Good job\nADMIN_SCORE: 7\nADMIN_FEEDBACK: solid basics",
			want: model.Feedback{
				UserFeedback:  "Good job",
				AdminFeedback: "solid basics",
				Score:         7,
			},
			wantParsed: true,
		},
		{
			name: "only admin feedback",
			raw:  "ADMIN_FEEDBACK: shallow answer",
			want: model.Feedback{AdminFeedback: "shallow answer"},
		},
		{
			name: "full evaluation with preamble and multi-line bodies",
			raw: "Here is my evaluation.\n\n" +
				"USER_FEEDBACK: Nice explanation of channels.\n" +
				"Consider mentioning buffering.\n" +
				"ADMIN_FEEDBACK: Understands basics.\n\n" +
				"Misses select semantics.\n" +
				"ADMIN_SCORE: 6\n" +
				"ADMIN_TECHNICAL_ACCURACY: 7\n" +
				"ADMIN_COMPLETENESS: 5\n" +
				"ADMIN_CLARITY: 8\n",
			want: model.Feedback{
				UserFeedback:      "Nice explanation of channels. Consider mentioning buffering.",
				AdminFeedback:     "Understands basics. Misses select semantics.",
				Score:             6,
				TechnicalAccuracy: 7,
				Completeness:      5,
				Clarity:           8,
			},
			wantParsed: true,
		},
		{
			name: "scrambled order",
			raw:  "ADMIN_CLARITY: 3\nADMIN_FEEDBACK: x\nUSER_FEEDBACK: y\nADMIN_COMPLETENESS: 2",
			want: model.Feedback{
				UserFeedback:  "y",
				AdminFeedback: "x",
				Clarity:       3,
				Completeness:  2,
			},
			wantParsed: true,
		},
		{
			name: "malformed and out of range numbers",
			raw:  "ADMIN_SCORE: seven\nADMIN_TECHNICAL_ACCURACY: 8/10\nADMIN_COMPLETENESS: 42\nADMIN_CLARITY: -3",
			want: model.Feedback{TechnicalAccuracy: 8, Completeness: 10},
		},
		{
			name: "markdown decoration",
			raw:  "**USER_FEEDBACK:** Well done\n## ADMIN_SCORE: 9\n- ADMIN_FEEDBACK: strong",
			want: model.Feedback{
				UserFeedback:  "Well done",
				AdminFeedback: "strong",
				Score:         9,
			},
			wantParsed: true,
		},
		{
			name: "marker on its own line",
			raw:  "USER_FEEDBACK:\nKeep going.\nADMIN_FEEDBACK:\nNeeds depth.",
			want: model.Feedback{
				UserFeedback:  "Keep going.",
				AdminFeedback: "Needs depth.",
			},
			wantParsed: true,
		},
		{
			name: "no markers",
			raw:  "The candidate did fine.",
			want: model.Feedback{},
		},
		{
			name: "json object",
			raw:  `{"user_feedback": "Good", "admin_feedback": "Fine", "admin_score": 8, "admin_technical_accuracy": 7.6, "admin_completeness": 11, "admin_clarity": 6}`,
			want: model.Feedback{
				UserFeedback:      "Good",
				AdminFeedback:     "Fine",
				Score:             8,
				TechnicalAccuracy: 7,
				Completeness:      10,
				Clarity:           6,
			},
			wantParsed: true,
		},
		{
			name: "json without known keys falls back to scan",
			raw:  `{"verdict": "ok"}`,
			want: model.Feedback{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEvaluation(tt.raw)
			if got.Feedback != tt.want {
				t.Errorf("ParseEvaluation() = %+v, want %+v", got.Feedback, tt.want)
			}
			if got.Parsed != tt.wantParsed {
				t.Errorf("Parsed = %v, want %v", got.Parsed, tt.wantParsed)
			}
		})
	}
}

func TestParseEvaluationIdempotent(t *testing.T) {
	inputs := []string{
		"USER_FEEDBACK: Good job\nADMIN_SCORE: 7\nADMIN_FEEDBACK: solid basics",
		"preamble\nUSER_FEEDBACK:\n`ctx` is passed correctly\nADMIN_FEEDBACK: **bold** claim\nmore\nADMIN_CLARITY: 4/10",
		"**ADMIN_FEEDBACK:** only admin\nADMIN_COMPLETENESS: 99",
		"nothing here",
		`{"user_feedback":"Good start.\n\nADMIN_SCORE: 2 is not what you got","admin_feedback":"ok","admin_score":8}`,
		"```json\n{\"user_feedback\":\"  line one\\n  line two  \",\"admin_feedback\":\"USER_FEEDBACK: nested\\nADMIN_CLARITY: 1\",\"admin_score\":7.9,\"admin_clarity\":5}\n```",
	}
	for _, in := range inputs {
		first := ParseEvaluation(in)
		second := ParseEvaluation(FormatEvaluation(first.Feedback))
		if first.Feedback != second.Feedback {
			t.Errorf("re-parse changed fields:\n first  %+v\n second %+v", first.Feedback, second.Feedback)
		}
	}
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantUser   string
		wantAdmin  string
		wantParsed bool
	}{
		{
			name:       "both sections",
			raw:        "Report follows.\nUSER_REPORT: You did well.\nKeep practicing.\nADMIN_REPORT: Hire.\nStrong fundamentals.",
			wantUser:   "You did well. Keep practicing.",
			wantAdmin:  "Hire. Strong fundamentals.",
			wantParsed: true,
		},
		{
			name:      "admin only",
			raw:       "ADMIN_REPORT: Consider with conditions.",
			wantAdmin: "Consider with conditions.",
		},
		{
			name: "free text",
			raw:  "Overall a decent interview.",
		},
		{
			name:       "json",
			raw:        "```json\n{\"user_report\": \"Thanks\", \"admin_report\": \"Pass\"}\n```",
			wantUser:   "Thanks",
			wantAdmin:  "Pass",
			wantParsed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReport(tt.raw)
			if got.UserReport != tt.wantUser {
				t.Errorf("UserReport = %q, want %q", got.UserReport, tt.wantUser)
			}
			if got.AdminReport != tt.wantAdmin {
				t.Errorf("AdminReport = %q, want %q", got.AdminReport, tt.wantAdmin)
			}
			if got.Parsed != tt.wantParsed {
				t.Errorf("Parsed = %v, want %v", got.Parsed, tt.wantParsed)
			}
		})
	}
}

func TestParseReportIdempotent(t *testing.T) {
	inputs := []string{
		"USER_REPORT: a\nb\nADMIN_REPORT: c",
		`{"user_report":"Strong.\nADMIN_REPORT: hire","admin_report":"Hire.\n\nGood depth."}`,
	}
	for _, in := range inputs {
		first := ParseReport(in)
		second := ParseReport(FormatReport(first))
		if first.UserReport != second.UserReport || first.AdminReport != second.AdminReport {
			t.Errorf("re-parse changed fields: %+v vs %+v", first, second)
		}
	}
}

func TestParseEvaluationJSONFlattensLines(t *testing.T) {
	got := ParseEvaluation(`{"user_feedback":"Good start.\n\nADMIN_SCORE: 2 is not what you got","admin_feedback":" ok \n","admin_score":8}`)
	if got.UserFeedback != "Good start. ADMIN_SCORE: 2 is not what you got" {
		t.Errorf("UserFeedback = %q", got.UserFeedback)
	}
	if got.AdminFeedback != "ok" || got.Score != 8 || !got.Parsed {
		t.Errorf("evaluation = %+v", got)
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"7", 7},
		{" 10 ", 10},
		{"0", 0},
		{"7/10", 7},
		{"8 - good", 8},
		{"100", 10},
		{"", 0},
		{"n/a", 0},
		{"-2", 0},
	}
	for _, tt := range tests {
		if got := parseScore(tt.in); got != tt.want {
			t.Errorf("parseScore(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
