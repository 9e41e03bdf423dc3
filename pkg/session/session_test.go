package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/github"
)

func testSession(t *testing.T, ttl time.Duration) *Session {
	t.Helper()
	sess, err := New(
		&github.OAuthToken{AccessToken: "access-1", RefreshToken: "refresh-1"},
		&github.UserDetail{ID: 42, Login: "octocat", Name: "The Octocat"},
		ttl,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sess
}

func TestSessionUserID(t *testing.T) {
	sess := testSession(t, time.Hour)
	if got := sess.UserID(); got != "github:42" {
		t.Errorf("UserID() = %q, want github:42", got)
	}

	var nilSess *Session
	if got := nilSess.UserID(); got != "" {
		t.Errorf("nil session UserID() = %q, want empty", got)
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	b, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if a == b {
		t.Error("expected unique session IDs")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	sess := testSession(t, time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
		t.Errorf("tokens not preserved: %+v", got)
	}
	if got.User == nil || got.User.Login != "octocat" {
		t.Errorf("user not preserved: %+v", got.User)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("expected nil after delete")
	}
}

func TestFileStoreExpiredSession(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	sess := testSession(t, -time.Minute)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := store.Get(ctx, sess.ID); err != nil || got != nil {
		t.Errorf("expected nil for expired session, got %+v, %v", got, err)
	}
}

func TestFileStoreCorruptFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(store.sessionPath("bad"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(context.Background(), "bad")
	if err != nil {
		t.Fatalf("Get on corrupt file: %v", err)
	}
	if got != nil {
		t.Errorf("corrupt session file should read as miss, got %+v", got)
	}
}

func TestFileStoreCleanup(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	fresh := testSession(t, time.Hour)
	stale := testSession(t, -time.Minute)
	_ = store.Set(ctx, fresh)
	_ = store.Set(ctx, stale)

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if got, _ := store.Get(ctx, fresh.ID); got == nil {
		t.Error("fresh session removed by cleanup")
	}
}

func TestCLIStoreRoundTrip(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cli := &CLIStore{store: fileStore, sessionID: defaultCLISessionID}
	ctx := context.Background()

	sess := testSession(t, time.Hour)
	if err := cli.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := cli.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil || got.AccessToken != "access-1" {
		t.Errorf("unexpected session: %+v", got)
	}

	if err := cli.DeleteSession(ctx); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got, _ := cli.GetSession(ctx); got != nil {
		t.Error("expected nil after DeleteSession")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := testSession(t, time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, sess.ID)
	if err != nil || got == nil || got.AccessToken != "access-1" {
		t.Fatalf("unexpected session: %+v, %v", got, err)
	}

	// Mutating the returned copy must not affect the stored session.
	got.AccessToken = "mutated"
	again, _ := store.Get(ctx, sess.ID)
	if again.AccessToken != "access-1" {
		t.Error("store returned a shared session pointer")
	}
}

func TestMemoryStateStoreSingleUse(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	state, err := store.Generate(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ok, err := store.Validate(ctx, state)
	if err != nil || !ok {
		t.Fatalf("first Validate = %v, %v; want true", ok, err)
	}

	// Second use must fail.
	ok, err = store.Validate(ctx, state)
	if err != nil || ok {
		t.Errorf("second Validate = %v, %v; want false", ok, err)
	}

	// Unknown tokens are invalid.
	ok, _ = store.Validate(ctx, "never-issued")
	if ok {
		t.Error("unknown state validated")
	}
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	state, err := store.Generate(ctx, -time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ok, _ := store.Validate(ctx, state); ok {
		t.Error("expired state validated")
	}
}
