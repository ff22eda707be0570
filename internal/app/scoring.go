package app

import (
	"math/big"

	"quiz-session-service/internal/domain"
)

// scoreQuestion awards points/rank to correct submitters, fastest first.
// Awards stay exact; rounding happens only when a total is surfaced.
func scoreQuestion(q *questionRuntime) map[string]*big.Rat {
	awards := make(map[string]*big.Rat)
	points := int64(questionPoints(q.question))
	for i, entry := range q.ledger.correctInOrder(q.correct) {
		awards[entry.playerID] = big.NewRat(points, int64(i+1))
	}
	return awards
}

func questionPoints(q domain.Question) int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// roundScore rounds an exact score to the nearest integer, halves to even.
func roundScore(r *big.Rat) int {
	if r == nil {
		return 0
	}
	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	neg := num.Sign() < 0
	num.Abs(num)

	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	twice := new(big.Int).Lsh(rem, 1)
	switch twice.Cmp(den) {
	case 1:
		quo.Add(quo, big.NewInt(1))
	case 0:
		if quo.Bit(0) == 1 {
			quo.Add(quo, big.NewInt(1))
		}
	}
	if neg {
		quo.Neg(quo)
	}
	return int(quo.Int64())
}
