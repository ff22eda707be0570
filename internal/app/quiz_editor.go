package app

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"

	"quiz-session-service/internal/domain"
)

// QuizStore persists quiz documents.
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizCache is implemented by quiz repositories that keep copies of stored quizzes.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// QuizEditor is the authoring entry point. Question changes are refused while
// any session of the quiz is still running; renames are always allowed.
type QuizEditor struct {
	sessions *SessionService
	quizzes  QuizRepository
	store    QuizStore
	cache    QuizCache
}

func NewQuizEditor(sessions *SessionService, quizzes QuizRepository, store QuizStore, cache QuizCache) *QuizEditor {
	return &QuizEditor{sessions: sessions, quizzes: quizzes, store: store, cache: cache}
}

// SaveQuiz creates the quiz for hostID or replaces the one hostID owns.
// Questions must pass domain.Quiz.Validate under the service's duration cap.
func (e *QuizEditor) SaveQuiz(ctx context.Context, hostID string, quiz domain.Quiz) error {
	if strings.TrimSpace(quiz.ID) == "" || hostID == "" {
		return domain.ErrInvalidInput
	}
	if err := quiz.Validate(e.sessions.opts.MaxDurationSeconds); err != nil {
		return err
	}
	current, err := e.quizzes.GetQuiz(ctx, quiz.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	default:
		if current.OwnerID != "" && current.OwnerID != hostID {
			return domain.ErrNotQuizOwner
		}
		if !sameQuestions(current.Questions, quiz.Questions) {
			if err := e.sessions.GuardStructuralEdit(quiz.ID); err != nil {
				return err
			}
		}
	}

	quiz.OwnerID = hostID
	if err := e.store.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, quiz.ID); err != nil {
			log.Printf("invalidate quiz %s: %v", quiz.ID, err)
		}
	}
	log.Printf("quiz %s saved by %s", quiz.ID, hostID)
	return nil
}

func sameQuestions(a, b []domain.Question) bool {
	return slices.EqualFunc(a, b, func(x, y domain.Question) bool {
		return x.ID == y.ID &&
			x.Prompt == y.Prompt &&
			x.DurationSeconds == y.DurationSeconds &&
			x.Points == y.Points &&
			slices.Equal(x.Options, y.Options)
	})
}
