package app

import "time"

// Timer is a pending callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot callbacks. The default uses time.AfterFunc; tests swap in a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// stageTimer holds the single outstanding timer of a session.
// Each arm or cancel bumps the generation, so a callback carrying an older
// generation is stale and must be ignored by the session loop.
type stageTimer struct {
	sched   Scheduler
	gen     uint64
	pending Timer
}

func newStageTimer(sched Scheduler) *stageTimer {
	if sched == nil {
		sched = realScheduler{}
	}
	return &stageTimer{sched: sched}
}

// arm cancels any pending timer and schedules fire(gen) after d.
func (t *stageTimer) arm(d time.Duration, fire func(gen uint64)) uint64 {
	t.cancel()
	gen := t.gen
	t.pending = t.sched.AfterFunc(d, func() { fire(gen) })
	return gen
}

func (t *stageTimer) cancel() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
}

// claim reports whether gen is the live generation and, if so, consumes it.
func (t *stageTimer) claim(gen uint64) bool {
	if t.pending == nil || gen != t.gen {
		return false
	}
	t.pending = nil
	t.gen++
	return true
}

func (t *stageTimer) armed() bool {
	return t.pending != nil
}
