package redis

import (
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	session := app.NewSession(app.SessionOptions{ID: "s-1", Quiz: sampleQuiz()})
	defer session.Close()
	store.Add(session)

	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ok, _ := mr.SIsMember("quiz:quiz-1:sessions:active", "s-1"); !ok {
		t.Fatalf("expected session in active set")
	}

	store.BindPlayer("p-1", "s-1")
	if got := mr.HGet("quiz:players", "p-1"); got != "s-1" {
		t.Fatalf("expected player index entry, got %q", got)
	}
	if _, ok := store.SessionForPlayer("p-1"); !ok {
		t.Fatalf("expected in-process player binding")
	}

	store.MarkEnded("s-1")
	store.Flush()
	if ok, _ := mr.SIsMember("quiz:quiz-1:sessions:active", "s-1"); ok {
		t.Fatalf("expected session removed from active set")
	}
	if ok, _ := mr.SIsMember("quiz:quiz-1:sessions:ended", "s-1"); !ok {
		t.Fatalf("expected session in ended set")
	}
	if _, ended := store.SessionsForQuiz("quiz-1"); len(ended) != 1 {
		t.Fatalf("expected ended session listed, got %v", ended)
	}

	store.Remove("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if mr.HGet("quiz:players", "p-1") != "" {
		t.Fatalf("expected player index entry removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed from store")
	}
}

func TestSessionStoreKeepsServingWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	store := NewSessionStore(newClient(mr), time.Minute)
	mr.Close()

	session := app.NewSession(app.SessionOptions{ID: "s-1", Quiz: sampleQuiz()})
	defer session.Close()
	store.Add(session)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session registered despite redis outage")
	}
}

func TestMarkEndedDoesNotBlockOnUnresponsiveRedis(t *testing.T) {
	// accepts connections but never answers
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), ContextTimeoutEnabled: true})
	defer client.Close()
	store := NewSessionStore(client, time.Minute)
	store.opTimeout = 100 * time.Millisecond

	session := app.NewSession(app.SessionOptions{ID: "s-1", Quiz: sampleQuiz()})
	defer session.Close()
	store.SessionStore.Add(session)

	start := time.Now()
	store.MarkEnded("s-1")
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("MarkEnded blocked for %v", elapsed)
	}
	if _, ended := store.SessionsForQuiz("quiz-1"); len(ended) != 1 {
		t.Fatalf("expected session marked ended in process, got %v", ended)
	}

	done := make(chan struct{})
	go func() {
		store.Flush()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("background marker write was not bounded by the op timeout")
	}
}
