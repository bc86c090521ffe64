package model

import "errors"

// Error kinds shared by every layer. Wrap them with fmt.Errorf("...: %w", ...)
// and test with errors.Is.
var (
	// ErrValidation marks a missing or malformed request field.
	ErrValidation = errors.New("validation failed")
	// ErrProvider marks a failed call to the language model or speech service.
	ErrProvider = errors.New("provider error")
	// ErrMalformedQuestions marks oracle output that did not yield exactly
	// QuestionCount questions.
	ErrMalformedQuestions = errors.New("malformed questions")
	// ErrGeneration wraps a provider or malformed-questions failure while
	// creating a session.
	ErrGeneration = errors.New("question generation failed")
	// ErrEmptyAnswer marks a blank answer submission.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrSessionNotFound marks an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists marks an attempt to create a session under an id that
	// is already taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrInvalidIndex marks a stored session whose question pointer is out of
	// bounds.
	ErrInvalidIndex = errors.New("invalid question index")
	// ErrInterviewComplete marks an answer submitted after the last question.
	ErrInterviewComplete = errors.New("interview already complete")
)

// Retryable reports whether repeating the failed call unchanged may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrProvider)
}
