package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/model"
)

//go:embed templates/*.tmpl
var defaultFS embed.FS

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// Template file names, relative to the templates directory.
const (
	QuestionsFile = "questions.tmpl"
	EvaluateFile  = "evaluate.tmpl"
	ReportFile    = "report.tmpl"
)

// QuestionsData holds template data for question generation.
type QuestionsData struct {
	JobRole         string
	ExperienceYears int
	QuestionCount   int
	Structured      bool
}

// EvalData holds template data for answer evaluation.
type EvalData struct {
	JobRole         string
	ExperienceYears int
	Question        string
	Answer          string
	Structured      bool
}

// ReportData holds template data for the final report.
type ReportData struct {
	JobRole         string
	ExperienceYears int
	Transcript      string
	AverageScore    float64
	Structured      bool
}

// Set is a loaded group of the three interview templates.
type Set struct {
	questions  *template.Template
	evaluate   *template.Template
	report     *template.Template
	structured bool
}

// Default loads the templates compiled into the binary.
func Default(structured bool) (*Set, error) {
	sub, err := fs.Sub(defaultFS, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub, structured)
}

// Load parses the three templates from the root of fsys. When structured is
// set the templates ask the model for JSON objects instead of line markers.
func Load(fsys fs.FS, structured bool) (*Set, error) {
	s := &Set{structured: structured}
	var err error
	if s.questions, err = parseFile(fsys, QuestionsFile); err != nil {
		return nil, err
	}
	if s.evaluate, err = parseFile(fsys, EvaluateFile); err != nil {
		return nil, err
	}
	if s.report, err = parseFile(fsys, ReportFile); err != nil {
		return nil, err
	}
	return s, nil
}

func parseFile(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// Structured reports whether the set requests JSON output.
func (s *Set) Structured() bool {
	return s.structured
}

// Questions renders the question generation prompt.
func (s *Set) Questions(jobRole string, experienceYears int) (string, error) {
	return execute(s.questions, QuestionsData{
		JobRole:         jobRole,
		ExperienceYears: experienceYears,
		QuestionCount:   model.QuestionCount,
		Structured:      s.structured,
	})
}

// Evaluate renders the evaluation prompt for one answer.
func (s *Set) Evaluate(jobRole string, experienceYears int, question, answer string) (string, error) {
	return execute(s.evaluate, EvalData{
		JobRole:         jobRole,
		ExperienceYears: experienceYears,
		Question:        question,
		Answer:          sanitizeAnswer(answer),
		Structured:      s.structured,
	})
}

// Report renders the final report prompt for a fully answered session.
func (s *Set) Report(sess model.Session) (string, error) {
	return execute(s.report, ReportData{
		JobRole:         sess.JobRole,
		ExperienceYears: sess.ExperienceYears,
		Transcript:      Transcript(sess.Records),
		AverageScore:    sess.AverageScore(),
		Structured:      s.structured,
	})
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Transcript formats every record as question, answer, evaluator feedback and
// score, separated by rules.
func Transcript(records []model.Record) string {
	var sb strings.Builder
	for i, r := range records {
		fmt.Fprintf(&sb, "\nQuestion %d: %s\n", i+1, r.Question)
		fmt.Fprintf(&sb, "Answer: %s\n", sanitizeAnswer(r.Answer))
		if r.Feedback != nil {
			fmt.Fprintf(&sb, "Feedback: %s\n", r.Feedback.AdminFeedback)
			fmt.Fprintf(&sb, "Score: %d/10 (technical accuracy %d, completeness %d, clarity %d)\n",
				r.Feedback.Score, r.Feedback.TechnicalAccuracy, r.Feedback.Completeness, r.Feedback.Clarity)
		} else {
			sb.WriteString("Feedback: [Not evaluated]\n")
		}
		sb.WriteString(strings.Repeat("-", 40) + "\n")
	}
	return sb.String()
}

func sanitizeAnswer(answer string) string {
	answer = candidateAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		runes = runes[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
