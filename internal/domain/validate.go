package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxDurationSeconds caps how long a question may stay open when no cap is configured.
const DefaultMaxDurationSeconds = 180

var questionValidator = newQuestionValidator()

func newQuestionValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		question := sl.Current().Interface().(Question)
		for _, opt := range question.Options {
			if opt.Correct {
				return
			}
		}
		sl.ReportError(question.Options, "Options", "Options", "correct", "")
	}, Question{})
	return v
}

// Validate checks the question shape every session relies on: a duration in
// 1..maxDurationSeconds, unique answer ids and at least one correct answer.
// A quiz without questions is a valid draft.
func (q Quiz) Validate(maxDurationSeconds int) error {
	if maxDurationSeconds <= 0 {
		maxDurationSeconds = DefaultMaxDurationSeconds
	}
	for i, question := range q.Questions {
		if question.DurationSeconds > maxDurationSeconds {
			return fmt.Errorf("question %d: %w", i+1, ErrQuestionDuration)
		}
		if err := questionValidator.Struct(question); err != nil {
			return fmt.Errorf("question %d: %w", i+1, questionError(err))
		}
	}
	return nil
}

func questionError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch fieldErrs[0].Tag() {
	case "min":
		return ErrQuestionDuration
	case "unique":
		return ErrDuplicateOption
	case "correct":
		return ErrNoCorrectOption
	default:
		return fmt.Errorf("%w: %s", ErrInvalidInput, fieldErrs[0].Error())
	}
}
