package app

import (
	"math/big"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestRoundScore(t *testing.T) {
	cases := []struct {
		num, den int64
		want     int
	}{
		{5, 1, 5},
		{5, 2, 2},
		{7, 2, 4},
		{5, 3, 2},
		{10, 3, 3},
		{11, 4, 3},
		{1, 3, 0},
		{1, 2, 0},
		{9, 2, 4},
		{3, 2, 2},
		{0, 1, 0},
	}
	for _, tc := range cases {
		if got := roundScore(big.NewRat(tc.num, tc.den)); got != tc.want {
			t.Fatalf("roundScore(%d/%d) = %d, want %d", tc.num, tc.den, got, tc.want)
		}
	}
	if roundScore(nil) != 0 {
		t.Fatalf("nil score should round to 0")
	}
}

// Halves round to the even neighbour: the second of two correct players on a
// 1-point question scores 0, on a 9-point question 4.
func TestSecondRankHalvesRoundToEven(t *testing.T) {
	for _, tc := range []struct{ points, want int }{{1, 0}, {9, 4}, {5, 2}, {7, 4}} {
		q := newQuestionRuntime(domain.Question{ID: "q1", Points: tc.points, Options: []domain.Option{{ID: 0, Correct: true}}})
		base := time.Now()
		q.ledger.record("first", []int{0}, base)
		q.ledger.record("second", []int{0}, base.Add(time.Second))
		if got := roundScore(scoreQuestion(q)["second"]); got != tc.want {
			t.Fatalf("points=%d rank 2: got %d, want %d", tc.points, got, tc.want)
		}
	}
}

func TestScoreQuestionRanksBySubmissionTime(t *testing.T) {
	q := newQuestionRuntime(domain.Question{
		ID:     "q1",
		Points: 6,
		Options: []domain.Option{
			{ID: 0, Correct: true},
			{ID: 1},
		},
	})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q.openedAt = base
	q.ledger.record("late", []int{0}, base.Add(3*time.Second))
	q.ledger.record("wrong", []int{1}, base.Add(time.Second))
	q.ledger.record("first", []int{0}, base.Add(2*time.Second))
	q.ledger.record("middle", []int{0}, base.Add(2*time.Second))

	awards := scoreQuestion(q)
	want := map[string]*big.Rat{
		"first":  big.NewRat(6, 1),
		"middle": big.NewRat(3, 1),
		"late":   big.NewRat(2, 1),
	}
	if len(awards) != len(want) {
		t.Fatalf("unexpected awards: %v", awards)
	}
	for player, w := range want {
		if awards[player] == nil || awards[player].Cmp(w) != 0 {
			t.Fatalf("%s: got %v, want %v", player, awards[player], w)
		}
	}
	if _, ok := awards["wrong"]; ok {
		t.Fatalf("wrong answer must not be awarded")
	}
}

func TestFastestCorrectGetsFullPointsOnly(t *testing.T) {
	q := newQuestionRuntime(domain.Question{ID: "q1", Points: 4, Options: []domain.Option{{ID: 0, Correct: true}}})
	q.ledger.record("solo", []int{0}, time.Now())
	awards := scoreQuestion(q)
	total := new(big.Rat)
	for _, a := range awards {
		total.Add(total, a)
	}
	if total.Cmp(big.NewRat(4, 1)) != 0 {
		t.Fatalf("single correct submitter should get exactly the question points, got %v", total)
	}
}

func TestResubmissionMovesPlayerBack(t *testing.T) {
	q := newQuestionRuntime(domain.Question{ID: "q1", Points: 2, Options: []domain.Option{{ID: 0, Correct: true}, {ID: 1}}})
	base := time.Now()
	q.ledger.record("a", []int{0}, base)
	q.ledger.record("b", []int{0}, base.Add(time.Second))
	q.ledger.record("a", []int{0}, base.Add(2*time.Second))

	awards := scoreQuestion(q)
	if awards["b"].Cmp(big.NewRat(2, 1)) != 0 || awards["a"].Cmp(big.NewRat(1, 1)) != 0 {
		t.Fatalf("expected b first after a resubmitted, got a=%v b=%v", awards["a"], awards["b"])
	}
}
