package memory

import (
	"testing"

	"quiz-session-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession(app.SessionOptions{ID: "s-1", Quiz: sampleQuiz()})
	defer session.Close()
	store.Add(session)

	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session present")
	}
	active, ended := store.SessionsForQuiz("quiz-1")
	if len(active) != 1 || len(ended) != 0 {
		t.Fatalf("expected one active session, got active=%v ended=%v", active, ended)
	}

	store.BindPlayer("p-1", "s-1")
	if got, ok := store.SessionForPlayer("p-1"); !ok || got.ID() != "s-1" {
		t.Fatalf("expected player bound to s-1")
	}

	store.MarkEnded("s-1")
	active, ended = store.SessionsForQuiz("quiz-1")
	if len(active) != 0 || len(ended) != 1 {
		t.Fatalf("expected ended session, got active=%v ended=%v", active, ended)
	}

	store.Remove("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
	if _, ok := store.SessionForPlayer("p-1"); ok {
		t.Fatalf("expected player binding removed with session")
	}
}

func TestSessionStoreIgnoresUnknownSessionBindings(t *testing.T) {
	store := NewSessionStore()
	store.BindPlayer("p-1", "missing")
	store.MarkEnded("missing")
	if _, ok := store.SessionForPlayer("p-1"); ok {
		t.Fatalf("expected no binding for unknown session")
	}
	if len(store.All()) != 0 {
		t.Fatalf("expected empty store")
	}
}
