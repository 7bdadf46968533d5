package redis

import (
	"context"
	"testing"
	"time"

	"culturax-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session := app.NewPlaySession("s-1", "u1", sampleQuiz(), time.Now())

	store.Put(session)
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected session kept locally")
	}
	owner, err := mr.Get("play:session:s-1")
	if err != nil || owner != "u1" {
		t.Fatalf("expected liveness key owned by u1, got %q (%v)", owner, err)
	}
	live, err := store.Live(context.Background())
	if err != nil || live != 1 {
		t.Fatalf("expected 1 live session, got %d (%v)", live, err)
	}

	store.Delete("s-1")
	if mr.Exists("play:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed locally")
	}
}

func TestTokenStoreRevocation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewTokenStore(newClient(mr))
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v (%v)", revoked, err)
	}

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected revocation to expire, got %v (%v)", revoked, err)
	}
}
