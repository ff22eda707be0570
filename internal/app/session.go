package app

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

const (
	defaultCountdown        = 3 * time.Second
	defaultQuestionDuration = 30 * time.Second
	maxChatMessageLength    = 100
)

// SessionOptions configures a new session.
type SessionOptions struct {
	ID           string
	HostID       string
	Quiz         domain.Quiz
	AutoStartNum int
	Countdown    time.Duration
	Now          func() time.Time
	Scheduler    Scheduler
	Rand         *rand.Rand
	// MaxQuestionDuration bounds every question timer.
	MaxQuestionDuration time.Duration
	// OnEnd runs on the session loop right after the session enters END.
	OnEnd func(*Session)
}

// Session is one running quiz. All state below the channel fields is owned by
// the run loop; every read or mutation is a task executed on that loop, so host
// actions, player submissions and timer firings form a single total order.
type Session struct {
	id         string
	quizID     string
	hostID     string
	snapshotID string

	autoStartNum int
	countdown    time.Duration
	maxDuration  time.Duration
	now          func() time.Time
	rnd          *rand.Rand
	onEnd        func(*Session)

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once

	stage        domain.Stage
	current      int
	questions    []*questionRuntime
	players      []*domain.Player
	byID         map[string]*domain.Player
	byName       map[string]struct{}
	timer        *stageTimer
	lastEditedAt time.Time
	endedAt      time.Time
	reachedFinal bool
	closed       bool
	chat         []domain.ChatMessage
	subscribers  map[chan domain.SessionStatus]struct{}
}

// NewSession snapshots the quiz and starts the session loop.
func NewSession(opts SessionOptions) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Countdown <= 0 {
		opts.Countdown = defaultCountdown
	}
	if opts.MaxQuestionDuration <= 0 {
		opts.MaxQuestionDuration = domain.DefaultMaxDurationSeconds * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Now().UnixNano()))
	}

	snapshot := opts.Quiz.Snapshot()
	questions := make([]*questionRuntime, len(snapshot.Questions))
	for i, q := range snapshot.Questions {
		questions[i] = newQuestionRuntime(q)
	}

	s := &Session{
		id:           opts.ID,
		quizID:       snapshot.ID,
		hostID:       opts.HostID,
		snapshotID:   uuid.NewString(),
		autoStartNum: opts.AutoStartNum,
		countdown:    opts.Countdown,
		maxDuration:  opts.MaxQuestionDuration,
		now:          opts.Now,
		rnd:          opts.Rand,
		onEnd:        opts.OnEnd,
		inbox:        make(chan func()),
		done:         make(chan struct{}),
		stage:        domain.StageLobby,
		current:      -1,
		questions:    questions,
		byID:         make(map[string]*domain.Player),
		byName:       make(map[string]struct{}),
		timer:        newStageTimer(opts.Scheduler),
		lastEditedAt: opts.Now(),
		subscribers:  make(map[chan domain.SessionStatus]struct{}),
	}
	go s.run()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) QuizID() string { return s.quizID }

// HostID is the opaque identity allowed to drive this session.
func (s *Session) HostID() string { return s.hostID }

func (s *Session) run() {
	for {
		select {
		case task := <-s.inbox:
			task()
		case <-s.done:
			return
		}
	}
}

// exec runs fn on the session loop and waits for its result.
func exec[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	reply := make(chan struct{})
	task := func() {
		defer close(reply)
		if s.closed {
			err = domain.ErrSessionNotFound
			return
		}
		out, err = fn()
	}
	select {
	case s.inbox <- task:
	case <-s.done:
		return out, domain.ErrSessionNotFound
	case <-ctx.Done():
		return out, ctx.Err()
	}
	<-reply
	return out, err
}

// post queues fn without waiting for it to finish.
func (s *Session) post(fn func()) bool {
	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Close cancels the timer, closes subscriber channels and stops the loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.post(func() {
			s.timer.cancel()
			s.closed = true
			for ch := range s.subscribers {
				delete(s.subscribers, ch)
				close(ch)
			}
		})
		close(s.done)
	})
}

// Apply performs a host action against the state machine.
func (s *Session) Apply(ctx context.Context, action domain.Action) error {
	_, err := exec(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.apply(action)
	})
	return err
}

// Status returns a consistent snapshot of the session.
func (s *Session) Status(ctx context.Context) (domain.SessionStatus, error) {
	return exec(ctx, s, func() (domain.SessionStatus, error) {
		return s.snapshot(), nil
	})
}

// Ended reports whether the session is in END and since when.
func (s *Session) Ended(ctx context.Context) (bool, time.Time, error) {
	type endState struct {
		ended bool
		at    time.Time
	}
	st, err := exec(ctx, s, func() (endState, error) {
		return endState{ended: s.stage.Terminal(), at: s.endedAt}, nil
	})
	return st.ended, st.at, err
}

func (s *Session) apply(action domain.Action) error {
	if s.stage.Terminal() {
		return domain.ErrSessionEnded
	}
	from := s.stage

	switch action {
	case domain.ActionEnd:
		s.end()
	case domain.ActionNextQuestion:
		switch s.stage {
		case domain.StageLobby, domain.StageQuestionClose, domain.StageAnswerShow:
		default:
			return domain.ErrInvalidAction
		}
		if s.current+1 >= len(s.questions) {
			return domain.ErrNoMoreQuestions
		}
		s.startCountdown()
	case domain.ActionSkipCountdown:
		if s.stage != domain.StageQuestionCountdown {
			return domain.ErrInvalidAction
		}
		s.openQuestion()
	case domain.ActionGoToAnswer:
		switch s.stage {
		case domain.StageQuestionOpen:
			s.closeQuestion()
		case domain.StageQuestionClose:
			s.stage = domain.StageAnswerShow
		default:
			return domain.ErrInvalidAction
		}
	case domain.ActionGoToFinalResults:
		switch s.stage {
		case domain.StageQuestionClose, domain.StageAnswerShow:
		default:
			return domain.ErrInvalidAction
		}
		s.stage = domain.StageFinalResults
		s.reachedFinal = true
	default:
		return domain.ErrUnknownAction
	}

	s.touch()
	log.Printf("session %s: %s -> %s (%s)", s.id, from, s.stage, action)
	s.broadcast()
	return nil
}

func (s *Session) startCountdown() {
	s.current++
	s.stage = domain.StageQuestionCountdown
	s.timer.arm(s.countdown, s.fire)
}

func (s *Session) openQuestion() {
	q := s.questions[s.current]
	q.openedAt = s.now()
	s.stage = domain.StageQuestionOpen
	s.timer.arm(questionDuration(q.question, s.maxDuration), s.fire)
}

// closeQuestion freezes the ledger of the current question and scores it once.
func (s *Session) closeQuestion() {
	s.timer.cancel()
	q := s.questions[s.current]
	q.closedAt = s.now()
	q.closed = true
	q.awards = scoreQuestion(q)
	s.stage = domain.StageQuestionClose
}

func (s *Session) end() {
	if s.stage == domain.StageQuestionOpen {
		s.closeQuestion()
	}
	s.timer.cancel()
	s.stage = domain.StageEnd
	s.endedAt = s.now()
	if s.onEnd != nil {
		s.onEnd(s)
	}
}

// questionDuration never exceeds limit; the comparison is done in seconds so
// huge values cannot overflow time.Duration.
func questionDuration(q domain.Question, limit time.Duration) time.Duration {
	if q.DurationSeconds <= 0 {
		return min(defaultQuestionDuration, limit)
	}
	if int64(q.DurationSeconds) >= int64(limit/time.Second) {
		return limit
	}
	return time.Duration(q.DurationSeconds) * time.Second
}

// fire is the timer callback; it queues the firing behind any pending actions.
func (s *Session) fire(gen uint64) {
	s.post(func() { s.onTimer(gen) })
}

func (s *Session) onTimer(gen uint64) {
	if !s.timer.claim(gen) {
		log.Printf("session %s: stale timer generation %d ignored", s.id, gen)
		return
	}
	from := s.stage
	switch s.stage {
	case domain.StageQuestionCountdown:
		s.openQuestion()
	case domain.StageQuestionOpen:
		s.closeQuestion()
	default:
		log.Printf("session %s: timer fired in stage %s, ignored", s.id, s.stage)
		return
	}
	s.touch()
	log.Printf("session %s: %s -> %s (timer)", s.id, from, s.stage)
	s.broadcast()
}

func (s *Session) touch() {
	s.lastEditedAt = s.now()
}

func (s *Session) join(name string) (string, error) {
	if s.stage.Terminal() {
		return "", domain.ErrSessionEnded
	}
	if s.stage != domain.StageLobby {
		return "", domain.ErrNotInLobby
	}

	name = strings.TrimSpace(name)
	if name == "" {
		for {
			name = generateName(s.rnd)
			if _, taken := s.byName[name]; !taken {
				break
			}
		}
	} else if _, taken := s.byName[name]; taken {
		return "", domain.ErrNameTaken
	}

	player := &domain.Player{ID: uuid.NewString(), Name: name, JoinedAt: s.now()}
	s.players = append(s.players, player)
	s.byID[player.ID] = player
	s.byName[name] = struct{}{}
	s.touch()

	if s.autoStartNum > 0 && len(s.players) >= s.autoStartNum {
		s.startCountdown()
		log.Printf("session %s: autostart with %d players", s.id, len(s.players))
	}
	s.broadcast()
	return player.ID, nil
}

// submit validates the selection against the addressed question before
// checking the stage, so foreign answer ids are always reported as invalid input.
func (s *Session) submit(playerID string, position int, answerIDs []int) error {
	if _, ok := s.byID[playerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	idx := position - 1
	if idx < 0 || idx >= len(s.questions) {
		return domain.ErrQuestionPosition
	}
	q := s.questions[idx]
	if err := q.validateSelection(answerIDs); err != nil {
		return err
	}
	if s.stage.Terminal() {
		return domain.ErrSessionEnded
	}
	if s.stage != domain.StageQuestionOpen {
		return domain.ErrQuestionNotOpen
	}
	if idx != s.current {
		return domain.ErrQuestionPosition
	}
	q.ledger.record(playerID, answerIDs, s.now())
	s.touch()
	return nil
}

func (s *Session) playerStatus(playerID string) (domain.PlayerStatus, error) {
	if _, ok := s.byID[playerID]; !ok {
		return domain.PlayerStatus{}, domain.ErrPlayerNotFound
	}
	return domain.PlayerStatus{
		Stage:        s.stage,
		NumQuestions: len(s.questions),
		AtQuestion:   s.current + 1,
	}, nil
}

func (s *Session) currentAt(playerID string, position int) (*questionRuntime, error) {
	if _, ok := s.byID[playerID]; !ok {
		return nil, domain.ErrPlayerNotFound
	}
	if position-1 != s.current || s.current < 0 {
		return nil, domain.ErrQuestionPosition
	}
	return s.questions[s.current], nil
}

func (s *Session) playerQuestion(playerID string, position int) (domain.PlayerQuestion, error) {
	q, err := s.currentAt(playerID, position)
	if err != nil {
		return domain.PlayerQuestion{}, err
	}
	switch s.stage {
	case domain.StageQuestionOpen, domain.StageQuestionClose, domain.StageAnswerShow:
	default:
		return domain.PlayerQuestion{}, domain.ErrQuestionHidden
	}
	answers := make([]domain.PlayerOption, 0, len(q.question.Options))
	for _, opt := range q.question.Options {
		answers = append(answers, domain.PlayerOption{ID: opt.ID, Text: opt.Text})
	}
	return domain.PlayerQuestion{
		QuestionID:      q.question.ID,
		Prompt:          q.question.Prompt,
		DurationSeconds: q.question.DurationSeconds,
		Points:          questionPoints(q.question),
		Answers:         answers,
	}, nil
}

func (s *Session) playerQuestionResult(playerID string, position int) (domain.QuestionResult, error) {
	q, err := s.currentAt(playerID, position)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	if s.stage != domain.StageAnswerShow {
		return domain.QuestionResult{}, domain.ErrResultsNotReady
	}
	return questionResult(q, s.players), nil
}

// finalResults is available once the session reached FINAL_RESULTS, including after END.
func (s *Session) finalResults() (domain.FinalResults, error) {
	if !s.reachedFinal {
		return domain.FinalResults{}, domain.ErrResultsNotReady
	}
	return aggregateResults(s.questions, s.current, s.players), nil
}

func (s *Session) sendChat(playerID, body string) error {
	player, ok := s.byID[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if s.stage.Terminal() {
		return domain.ErrSessionEnded
	}
	if n := utf8.RuneCountInString(body); n < 1 || n > maxChatMessageLength {
		return domain.ErrChatMessageLength
	}
	s.chat = append(s.chat, domain.ChatMessage{
		PlayerID:    player.ID,
		PlayerName:  player.Name,
		MessageBody: body,
		TimeSent:    s.now(),
	})
	s.touch()
	return nil
}

func (s *Session) chatMessages(playerID string) ([]domain.ChatMessage, error) {
	if _, ok := s.byID[playerID]; !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return append([]domain.ChatMessage(nil), s.chat...), nil
}

func (s *Session) snapshot() domain.SessionStatus {
	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.Name)
	}
	return domain.SessionStatus{
		SessionID:            s.id,
		QuizID:               s.quizID,
		SnapshotID:           s.snapshotID,
		Stage:                s.stage,
		AutoStartNum:         s.autoStartNum,
		CurrentQuestionIndex: s.current,
		NumQuestions:         len(s.questions),
		Players:              names,
		LastEditedAt:         s.lastEditedAt,
	}
}

// Subscribe returns a channel of status snapshots pushed after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe(ctx context.Context) (<-chan domain.SessionStatus, func(), error) {
	ch := make(chan domain.SessionStatus, 8)
	_, err := exec(ctx, s, func() (struct{}, error) {
		s.subscribers[ch] = struct{}{}
		ch <- s.snapshot()
		return struct{}{}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		s.post(func() {
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (s *Session) broadcast() {
	status := s.snapshot()
	for ch := range s.subscribers {
		select {
		case ch <- status:
		default:
			// drop the oldest queued update so slow consumers never block the loop
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}
