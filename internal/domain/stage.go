package domain

import "strings"

// Stage is the lifecycle phase of a session.
type Stage string

const (
	StageLobby             Stage = "LOBBY"
	StageQuestionCountdown Stage = "QUESTION_COUNTDOWN"
	StageQuestionOpen      Stage = "QUESTION_OPEN"
	StageQuestionClose     Stage = "QUESTION_CLOSE"
	StageAnswerShow        Stage = "ANSWER_SHOW"
	StageFinalResults      Stage = "FINAL_RESULTS"
	StageEnd               Stage = "END"
)

// Terminal reports whether no further transitions are accepted.
func (s Stage) Terminal() bool {
	return s == StageEnd
}

// Action is a host command that drives the session state machine.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionSkipCountdown    Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"
)

// ParseAction maps a wire name onto a known action.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(raw))); a {
	case ActionNextQuestion, ActionSkipCountdown, ActionGoToAnswer, ActionGoToFinalResults, ActionEnd:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}
