package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/toolshare/internal/db"
	"github.com/erazemk/toolshare/internal/model"
)

func TestSaveAndGetSession(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	s := &Session{
		ID:          "sess-1",
		TokenSealed: []byte{0x01, 0x02, 0x03},
		User:        model.User{ID: 7, Username: "alice", Email: "alice@example.com", BlockNo: "B"},
	}
	if err := SaveSession(ctx, database, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := GetSession(ctx, database, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.User.Username != "alice" || got.User.BlockNo != "B" {
		t.Errorf("unexpected user %+v", got.User)
	}
	if string(got.TokenSealed) != "\x01\x02\x03" {
		t.Errorf("unexpected sealed token %v", got.TokenSealed)
	}

	missing, err := GetSession(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing session")
	}
}

func TestUpdateSessionUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveSession(ctx, database, &Session{ID: "s", TokenSealed: []byte("x"), User: model.User{ID: 1, Username: "old"}})
	if err := UpdateSessionUser(ctx, database, "s", model.User{ID: 1, Username: "new"}); err != nil {
		t.Fatalf("UpdateSessionUser: %v", err)
	}

	got, _ := GetSession(ctx, database, "s")
	if got.User.Username != "new" {
		t.Errorf("expected 'new', got %q", got.User.Username)
	}
}

func TestDeleteSession(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveSession(ctx, database, &Session{ID: "s", TokenSealed: []byte("x")})
	if err := DeleteSession(ctx, database, "s"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := DeleteSession(ctx, database, "s"); err != nil {
		t.Fatalf("DeleteSession twice: %v", err)
	}

	got, _ := GetSession(ctx, database, "s")
	if got != nil {
		t.Error("expected session to be deleted")
	}
}

func TestPruneSessions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveSession(ctx, database, &Session{ID: "old", TokenSealed: []byte("x")})
	database.ExecContext(ctx, `UPDATE sessions SET last_seen_at = ? WHERE id = 'old'`, time.Now().Add(-48*time.Hour).UTC())
	SaveSession(ctx, database, &Session{ID: "fresh", TokenSealed: []byte("y")})

	n, err := PruneSessions(ctx, database, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned session, got %d", n)
	}
	if got, _ := GetSession(ctx, database, "fresh"); got == nil {
		t.Error("expected fresh session to survive")
	}
}

func TestTouchSession(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveSession(ctx, database, &Session{ID: "s", TokenSealed: []byte("x")})
	seen := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := TouchSession(ctx, database, "s", seen); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}

	got, _ := GetSession(ctx, database, "s")
	if !got.LastSeenAt.Equal(seen) {
		t.Errorf("expected last seen %v, got %v", seen, got.LastSeenAt)
	}
}
