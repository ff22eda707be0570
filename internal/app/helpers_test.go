package app

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler records timers instead of running them; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{d: d, f: f}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return t
}

func (m *manualScheduler) last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	return m.timers[len(m.timers)-1]
}

func (m *manualScheduler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback even if the timer was stopped, which is what a
// timer racing with Stop looks like from the session's point of view.
func (t *manualTimer) fire() {
	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	t.f()
}

type harness struct {
	t     *testing.T
	s     *Session
	clock *fakeClock
	sched *manualScheduler
	ended int
}

func newHarness(t *testing.T, quiz domain.Quiz, autoStart int) *harness {
	t.Helper()
	h := &harness{t: t, clock: newFakeClock(), sched: &manualScheduler{}}
	h.s = NewSession(SessionOptions{
		ID:           "session-1",
		HostID:       "host-1",
		Quiz:         quiz,
		AutoStartNum: autoStart,
		Now:          h.clock.Now,
		Scheduler:    h.sched,
		Rand:         rand.New(rand.NewSource(7)),
		OnEnd:        func(*Session) { h.ended++ },
	})
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) apply(action domain.Action) error {
	return h.s.Apply(context.Background(), action)
}

func (h *harness) mustApply(actions ...domain.Action) {
	h.t.Helper()
	for _, a := range actions {
		if err := h.apply(a); err != nil {
			h.t.Fatalf("apply %s: %v", a, err)
		}
	}
}

func (h *harness) join(name string) string {
	h.t.Helper()
	id, err := exec(context.Background(), h.s, func() (string, error) { return h.s.join(name) })
	if err != nil {
		h.t.Fatalf("join %q: %v", name, err)
	}
	return id
}

func (h *harness) submit(playerID string, position int, answerIDs ...int) error {
	_, err := exec(context.Background(), h.s, func() (struct{}, error) {
		return struct{}{}, h.s.submit(playerID, position, answerIDs)
	})
	return err
}

func (h *harness) status() domain.SessionStatus {
	h.t.Helper()
	st, err := h.s.Status(context.Background())
	if err != nil {
		h.t.Fatalf("status: %v", err)
	}
	return st
}

func (h *harness) results() (domain.FinalResults, error) {
	return exec(context.Background(), h.s, h.s.finalResults)
}

// oneQuestionQuiz: points=5, two answers, answer 0 correct.
func oneQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Questions: []domain.Question{
			{
				ID:              "q1",
				Prompt:          "When are you sleeping?",
				DurationSeconds: 5,
				Points:          5,
				Options: []domain.Option{
					{ID: 0, Text: "Bobby the builder", Correct: true},
					{ID: 1, Text: "Bobby the breaker"},
				},
			},
		},
	}
}

func twoQuestionQuiz() domain.Quiz {
	quiz := oneQuestionQuiz()
	quiz.Questions = append(quiz.Questions, domain.Question{
		ID:              "q2",
		Prompt:          "Why are you sleeping?",
		DurationSeconds: 5,
		Points:          5,
		Options: []domain.Option{
			{ID: 0, Text: "Bobby the builder", Correct: true},
			{ID: 1, Text: "Bobby the breaker"},
			{ID: 2, Text: "Bobby the licker", Correct: true},
		},
	})
	return quiz
}
