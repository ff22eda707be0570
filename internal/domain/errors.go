package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the app layer wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or has been reaped.
	ErrSessionNotFound = fmt.Errorf("quiz session not found: %w", ErrNotFound)
	// ErrPlayerNotFound is returned when a player id is unknown.
	ErrPlayerNotFound = fmt.Errorf("player not found: %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz not found: %w", ErrNotFound)

	// ErrInvalidAction is returned for an action that is not legal in the current stage.
	ErrInvalidAction = fmt.Errorf("action not allowed in current stage: %w", ErrInvalidState)
	// ErrNoMoreQuestions is returned by NEXT_QUESTION on the last question.
	ErrNoMoreQuestions = fmt.Errorf("no more questions: %w", ErrInvalidState)
	// ErrSessionEnded is returned for any mutation against an ended session.
	ErrSessionEnded = fmt.Errorf("session has ended: %w", ErrInvalidState)
	// ErrNotInLobby is returned when a player tries to join after the lobby closed.
	ErrNotInLobby = fmt.Errorf("session is not in lobby: %w", ErrInvalidState)

	ErrQuestionNotOpen  = fmt.Errorf("question is not open for answers: %w", ErrInvalidState)
	ErrQuestionPosition = fmt.Errorf("question position is not the current question: %w", ErrInvalidState)
	ErrQuestionHidden   = fmt.Errorf("question is not visible in current stage: %w", ErrInvalidState)
	ErrResultsNotReady  = fmt.Errorf("results are not available in current stage: %w", ErrInvalidState)

	ErrUnknownAction     = fmt.Errorf("unknown session action: %w", ErrInvalidInput)
	ErrNoAnswers         = fmt.Errorf("at least one answer must be selected: %w", ErrInvalidInput)
	ErrDuplicateAnswer   = fmt.Errorf("duplicate answer ids submitted: %w", ErrInvalidInput)
	ErrUnknownAnswer     = fmt.Errorf("answer id does not belong to question: %w", ErrInvalidInput)
	ErrNameTaken         = fmt.Errorf("player name already in use: %w", ErrInvalidInput)
	ErrAutoStartNum      = fmt.Errorf("autoStartNum out of range: %w", ErrInvalidInput)
	ErrEmptyQuiz         = fmt.Errorf("quiz has no questions: %w", ErrInvalidInput)
	ErrChatMessageLength = fmt.Errorf("chat message must be 1 to 100 characters: %w", ErrInvalidInput)
	ErrQuestionDuration  = fmt.Errorf("question duration out of range: %w", ErrInvalidInput)
	ErrDuplicateOption   = fmt.Errorf("question has duplicate answer ids: %w", ErrInvalidInput)
	ErrNoCorrectOption   = fmt.Errorf("question has no correct answer: %w", ErrInvalidInput)

	// ErrQuizInUse blocks structural edits while the quiz has an active session.
	ErrQuizInUse = fmt.Errorf("quiz has an active session: %w", ErrConflict)
	// ErrTooManySessions caps concurrent active sessions per quiz.
	ErrTooManySessions = fmt.Errorf("too many active sessions for quiz: %w", ErrConflict)

	// ErrNotQuizOwner is returned when the host does not own the quiz or session.
	ErrNotQuizOwner = fmt.Errorf("host does not own this quiz: %w", ErrForbidden)
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindInvalidInput
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConflict:
		return "Conflict"
	case KindForbidden:
		return "Forbidden"
	default:
		return "Unknown"
	}
}

// KindOf classifies err. Errors outside the taxonomy report KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindUnknown
	}
}
