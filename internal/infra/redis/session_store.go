package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in the embedded in-memory store; their state is owned
//     by each session's own loop and never leaves the process.
//   - Redis carries markers other instances and operators can read: a liveness
//     key per session, the active set of each quiz and the player index.
type SessionStore struct {
	*memory.SessionStore

	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	markers   sync.WaitGroup
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		SessionStore: memory.NewSessionStore(),
		client:       client,
		ttl:          ttl,
		opTimeout:    defaultOpTimeout,
	}
}

func (s *SessionStore) Add(session *app.Session) {
	s.SessionStore.Add(session)
	ctx, cancel := s.opContext()
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(session.ID()), session.QuizID(), s.ttl)
	pipe.SAdd(ctx, s.activeKey(session.QuizID()), session.ID())
	s.exec(ctx, pipe, "register session "+session.ID())
}

// MarkEnded is called from the session loop, so the Redis write happens in the background.
func (s *SessionStore) MarkEnded(sessionID string) {
	s.SessionStore.MarkEnded(sessionID)
	session, ok := s.SessionStore.Get(sessionID)
	if !ok {
		return
	}
	quizID := session.QuizID()
	s.markers.Add(1)
	go func() {
		defer s.markers.Done()
		ctx, cancel := s.opContext()
		defer cancel()
		pipe := s.client.TxPipeline()
		pipe.SRem(ctx, s.activeKey(quizID), sessionID)
		pipe.SAdd(ctx, s.endedKey(quizID), sessionID)
		s.exec(ctx, pipe, "mark session "+sessionID+" ended")
	}()
}

// Flush waits for background marker writes.
func (s *SessionStore) Flush() {
	s.markers.Wait()
}

func (s *SessionStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *SessionStore) Remove(sessionID string) {
	session, ok := s.SessionStore.Get(sessionID)
	s.markers.Wait()
	s.SessionStore.Remove(sessionID)
	ctx, cancel := s.opContext()
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	if ok {
		pipe.SRem(ctx, s.activeKey(session.QuizID()), sessionID)
		pipe.SRem(ctx, s.endedKey(session.QuizID()), sessionID)
	}
	if players, err := s.client.SMembers(ctx, s.playersKey(sessionID)).Result(); err == nil && len(players) > 0 {
		pipe.HDel(ctx, playerIndexKey, players...)
	}
	pipe.Del(ctx, s.playersKey(sessionID))
	s.exec(ctx, pipe, "remove session "+sessionID)
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.SessionStore.BindPlayer(playerID, sessionID)
	ctx, cancel := s.opContext()
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, playerIndexKey, playerID, sessionID)
	pipe.SAdd(ctx, s.playersKey(sessionID), playerID)
	if s.ttl > 0 {
		// refresh liveness while players keep arriving
		pipe.Expire(ctx, s.key(sessionID), s.ttl)
	}
	s.exec(ctx, pipe, "bind player "+playerID)
}

// best-effort: a Redis outage must not break a running game
func (s *SessionStore) exec(ctx context.Context, pipe redis.Pipeliner, what string) {
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis %s: %v", what, err)
	}
}

const (
	playerIndexKey   = "quiz:players"
	defaultOpTimeout = 500 * time.Millisecond
)

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) playersKey(sessionID string) string {
	return "quiz:session:" + sessionID + ":players"
}

func (s *SessionStore) activeKey(quizID string) string {
	return "quiz:" + quizID + ":sessions:active"
}

func (s *SessionStore) endedKey(quizID string) string {
	return "quiz:" + quizID + ":sessions:ended"
}
