package app

import (
	"math"
	"math/big"
	"sort"
	"time"

	"quiz-session-service/internal/domain"
)

// questionResult derives the statistics of one question from its ledger.
// Correct players are listed by name; percentages use all joined players.
func questionResult(q *questionRuntime, players []*domain.Player) domain.QuestionResult {
	correct := make([]string, 0)
	for _, p := range players {
		if q.isCorrect(p.ID) {
			correct = append(correct, p.Name)
		}
	}
	sort.Strings(correct)

	avg := 0
	if n := q.ledger.len(); n > 0 {
		var total time.Duration
		for _, sub := range q.ledger.entries {
			total += sub.submittedAt.Sub(q.openedAt)
		}
		avg = int(math.Round(total.Seconds() / float64(n)))
	}

	percent := 0
	if len(players) > 0 {
		percent = int(math.Round(float64(len(correct)) * 100 / float64(len(players))))
	}

	return domain.QuestionResult{
		QuestionID:         q.question.ID,
		PlayersCorrectList: correct,
		AverageAnswerTime:  avg,
		PercentCorrect:     percent,
	}
}

// aggregateResults recomputes the final report from immutable per-question data.
func aggregateResults(questions []*questionRuntime, upTo int, players []*domain.Player) domain.FinalResults {
	totals := make(map[string]*big.Rat, len(players))
	for _, p := range players {
		totals[p.ID] = new(big.Rat)
	}
	results := make([]domain.QuestionResult, 0, upTo+1)
	for i := 0; i <= upTo && i < len(questions); i++ {
		q := questions[i]
		for playerID, award := range q.awards {
			if total, ok := totals[playerID]; ok {
				total.Add(total, award)
			}
		}
		results = append(results, questionResult(q, players))
	}

	ranked := make([]*domain.Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return totals[ranked[i].ID].Cmp(totals[ranked[j].ID]) > 0
	})

	users := make([]domain.RankedUser, 0, len(ranked))
	for _, p := range ranked {
		users = append(users, domain.RankedUser{Name: p.Name, Score: roundScore(totals[p.ID])})
	}
	return domain.FinalResults{UsersRankedByScore: users, QuestionResults: results}
}
