// Package parser extracts structured fields from free-form model output.
//
// Parsing is best effort. The question-list parser is strict about the number
// of questions; the evaluation and report parsers never fail and leave any
// section they cannot find empty or zero.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pavelanni/interviewer/internal/model"
)

// Line markers recognized in evaluation and report output.
const (
	MarkerUserFeedback      = "USER_FEEDBACK:"
	MarkerAdminFeedback     = "ADMIN_FEEDBACK:"
	MarkerAdminScore        = "ADMIN_SCORE:"
	MarkerTechnicalAccuracy = "ADMIN_TECHNICAL_ACCURACY:"
	MarkerCompleteness      = "ADMIN_COMPLETENESS:"
	MarkerClarity           = "ADMIN_CLARITY:"
	MarkerUserReport        = "USER_REPORT:"
	MarkerAdminReport       = "ADMIN_REPORT:"
)

var evaluationMarkers = []string{
	MarkerUserFeedback,
	MarkerAdminFeedback,
	MarkerAdminScore,
	MarkerTechnicalAccuracy,
	MarkerCompleteness,
	MarkerClarity,
}

var reportMarkers = []string{
	MarkerUserReport,
	MarkerAdminReport,
}

// Evaluation is the parsed assessment of one answer.
type Evaluation struct {
	model.Feedback
	// Parsed is true when both text sections were found.
	Parsed bool
}

// ReportText is the parsed final report.
type ReportText struct {
	UserReport  string
	AdminReport string
	// Parsed is true when both sections were found.
	Parsed bool
}

// Questions parses oracle output into exactly model.QuestionCount questions.
// It accepts a JSON array of strings or an object with a "questions" array,
// optionally wrapped in a markdown code fence.
func Questions(raw string) ([]string, error) {
	text := stripCodeFence(raw)

	var questions []string
	if strings.HasPrefix(text, "{") {
		var wrapped struct {
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrMalformedQuestions, err)
		}
		questions = wrapped.Questions
	} else if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedQuestions, err)
	}

	if len(questions) != model.QuestionCount {
		return nil, fmt.Errorf("%w: got %d questions, want %d",
			model.ErrMalformedQuestions, len(questions), model.QuestionCount)
	}
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("%w: question %d is empty", model.ErrMalformedQuestions, i+1)
		}
		questions[i] = q
	}
	return questions, nil
}

// ParseEvaluation extracts feedback and scores from evaluation output.
// A JSON object is decoded directly; anything else goes through the marker scan.
func ParseEvaluation(raw string) Evaluation {
	if ev, ok := evaluationFromJSON(raw); ok {
		return ev
	}

	sections, found := scanSections(raw, evaluationMarkers)
	return Evaluation{
		Feedback: model.Feedback{
			UserFeedback:      sections[MarkerUserFeedback],
			AdminFeedback:     sections[MarkerAdminFeedback],
			Score:             parseScore(sections[MarkerAdminScore]),
			TechnicalAccuracy: parseScore(sections[MarkerTechnicalAccuracy]),
			Completeness:      parseScore(sections[MarkerCompleteness]),
			Clarity:           parseScore(sections[MarkerClarity]),
		},
		Parsed: found[MarkerUserFeedback] && found[MarkerAdminFeedback],
	}
}

// ParseReport extracts the user and admin report text from report output.
func ParseReport(raw string) ReportText {
	if rep, ok := reportFromJSON(raw); ok {
		return rep
	}

	sections, found := scanSections(raw, reportMarkers)
	return ReportText{
		UserReport:  sections[MarkerUserReport],
		AdminReport: sections[MarkerAdminReport],
		Parsed:      found[MarkerUserReport] && found[MarkerAdminReport],
	}
}

// FormatEvaluation renders feedback in the canonical marker layout.
// ParseEvaluation(FormatEvaluation(f)) yields f for any feedback returned by
// ParseEvaluation, since both parse paths flatten text to a single line.
func FormatEvaluation(f model.Feedback) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", MarkerUserFeedback, f.UserFeedback)
	fmt.Fprintf(&sb, "%s %s\n", MarkerAdminFeedback, f.AdminFeedback)
	fmt.Fprintf(&sb, "%s %d\n", MarkerAdminScore, f.Score)
	fmt.Fprintf(&sb, "%s %d\n", MarkerTechnicalAccuracy, f.TechnicalAccuracy)
	fmt.Fprintf(&sb, "%s %d\n", MarkerCompleteness, f.Completeness)
	fmt.Fprintf(&sb, "%s %d\n", MarkerClarity, f.Clarity)
	return sb.String()
}

// FormatReport renders report text in the canonical marker layout. Like
// FormatEvaluation it round-trips through ParseReport.
func FormatReport(r ReportText) string {
	return fmt.Sprintf("%s %s\n%s %s\n", MarkerUserReport, r.UserReport, MarkerAdminReport, r.AdminReport)
}

// scanSections walks raw line by line. A line that starts with one of markers
// opens a section seeded with the rest of the line; other non-empty lines are
// appended to the open section. Text before the first marker is dropped.
// A repeated marker restarts its section.
func scanSections(raw string, markers []string) (map[string]string, map[string]bool) {
	parts := make(map[string][]string, len(markers))
	found := make(map[string]bool, len(markers))
	open := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if marker, rest, ok := matchMarker(line, markers); ok {
			open = marker
			found[marker] = true
			parts[marker] = nil
			if rest != "" {
				parts[marker] = append(parts[marker], rest)
			}
			continue
		}
		if open != "" {
			parts[open] = append(parts[open], line)
		}
	}

	sections := make(map[string]string, len(markers))
	for _, m := range markers {
		sections[m] = strings.Join(parts[m], " ")
	}
	return sections, found
}

// matchMarker tolerates markdown decoration such as "**USER_FEEDBACK:**" or
// "## ADMIN_SCORE:".
func matchMarker(line string, markers []string) (string, string, bool) {
	bare := strings.TrimLeft(line, "*#->` \t")
	decorated := bare != line
	for _, m := range markers {
		if rest, ok := strings.CutPrefix(bare, m); ok {
			if decorated {
				rest = strings.TrimLeft(rest, "*`")
			}
			return m, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

// parseScore reads the leading integer of s ("7", "7/10", "8 - good") and
// clamps it to [0, model.MaxScore]. Anything unreadable is 0.
func parseScore(s string) int {
	s = strings.TrimSpace(s)
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > model.MaxScore {
			return model.MaxScore
		}
	}
	if digits == 0 {
		return 0
	}
	return n
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > model.MaxScore:
		return model.MaxScore
	default:
		return n
	}
}

type evaluationJSON struct {
	UserFeedback      *string  `json:"user_feedback"`
	AdminFeedback     *string  `json:"admin_feedback"`
	Score             *float64 `json:"admin_score"`
	TechnicalAccuracy *float64 `json:"admin_technical_accuracy"`
	Completeness      *float64 `json:"admin_completeness"`
	Clarity           *float64 `json:"admin_clarity"`
}

func evaluationFromJSON(raw string) (Evaluation, bool) {
	text := stripCodeFence(raw)
	if !strings.HasPrefix(text, "{") {
		return Evaluation{}, false
	}
	var v evaluationJSON
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Evaluation{}, false
	}
	if v.UserFeedback == nil && v.AdminFeedback == nil && v.Score == nil {
		return Evaluation{}, false
	}
	return Evaluation{
		Feedback: model.Feedback{
			UserFeedback:      flattenLines(deref(v.UserFeedback)),
			AdminFeedback:     flattenLines(deref(v.AdminFeedback)),
			Score:             jsonScore(v.Score),
			TechnicalAccuracy: jsonScore(v.TechnicalAccuracy),
			Completeness:      jsonScore(v.Completeness),
			Clarity:           jsonScore(v.Clarity),
		},
		Parsed: v.UserFeedback != nil && v.AdminFeedback != nil,
	}, true
}

type reportJSON struct {
	UserReport  *string `json:"user_report"`
	AdminReport *string `json:"admin_report"`
}

func reportFromJSON(raw string) (ReportText, bool) {
	text := stripCodeFence(raw)
	if !strings.HasPrefix(text, "{") {
		return ReportText{}, false
	}
	var v reportJSON
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return ReportText{}, false
	}
	if v.UserReport == nil && v.AdminReport == nil {
		return ReportText{}, false
	}
	return ReportText{
		UserReport:  flattenLines(deref(v.UserReport)),
		AdminReport: flattenLines(deref(v.AdminReport)),
		Parsed:      v.UserReport != nil && v.AdminReport != nil,
	}, true
}

// flattenLines joins the trimmed non-empty lines of s with single spaces,
// the same shape scanSections gives a multi-line section.
func flattenLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func jsonScore(f *float64) int {
	if f == nil {
		return 0
	}
	return clampScore(int(*f))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
