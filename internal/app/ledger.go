package app

import (
	"math/big"
	"slices"
	"sort"
	"time"

	"quiz-session-service/internal/domain"
)

// submission is the latest answer set a player gave for one question.
type submission struct {
	answerIDs   []int
	submittedAt time.Time
	seq         uint64
}

// answerLedger records submissions per player for one question.
type answerLedger struct {
	entries map[string]submission
	seq     uint64
}

func newAnswerLedger() answerLedger {
	return answerLedger{entries: make(map[string]submission)}
}

// record upserts the player's submission; a resubmission replaces the earlier one.
func (l *answerLedger) record(playerID string, answerIDs []int, at time.Time) {
	l.seq++
	ids := append([]int(nil), answerIDs...)
	sort.Ints(ids)
	l.entries[playerID] = submission{answerIDs: ids, submittedAt: at, seq: l.seq}
}

func (l *answerLedger) len() int {
	return len(l.entries)
}

type ledgerEntry struct {
	playerID string
	submission
}

// correctInOrder returns the correct submissions, fastest first.
func (l *answerLedger) correctInOrder(correct []int) []ledgerEntry {
	out := make([]ledgerEntry, 0, len(l.entries))
	for playerID, sub := range l.entries {
		if slices.Equal(sub.answerIDs, correct) {
			out = append(out, ledgerEntry{playerID: playerID, submission: sub})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].submittedAt.Equal(out[j].submittedAt) {
			return out[i].submittedAt.Before(out[j].submittedAt)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// questionRuntime is the per-session state of one snapshot question.
type questionRuntime struct {
	question  domain.Question
	correct   []int
	optionIDs map[int]struct{}
	openedAt  time.Time
	closedAt  time.Time
	closed    bool
	ledger    answerLedger
	awards    map[string]*big.Rat
}

func newQuestionRuntime(q domain.Question) *questionRuntime {
	correct := q.CorrectOptionIDs()
	sort.Ints(correct)
	ids := make(map[int]struct{}, len(q.Options))
	for _, opt := range q.Options {
		ids[opt.ID] = struct{}{}
	}
	return &questionRuntime{
		question:  q,
		correct:   correct,
		optionIDs: ids,
		ledger:    newAnswerLedger(),
	}
}

// validateSelection rejects empty, duplicated or foreign answer ids.
func (q *questionRuntime) validateSelection(answerIDs []int) error {
	if len(answerIDs) == 0 {
		return domain.ErrNoAnswers
	}
	seen := make(map[int]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, ok := q.optionIDs[id]; !ok {
			return domain.ErrUnknownAnswer
		}
		if _, dup := seen[id]; dup {
			return domain.ErrDuplicateAnswer
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (q *questionRuntime) isCorrect(playerID string) bool {
	sub, ok := q.ledger.entries[playerID]
	return ok && slices.Equal(sub.answerIDs, q.correct)
}
