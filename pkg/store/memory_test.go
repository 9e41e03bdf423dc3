package store

import (
	"context"
	"testing"
	"time"

	"github.com/sourcingdenis/devfinder/pkg/errors"
)

func TestMemory_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "user-1", "github")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Fatalf("got %v, want NOT_FOUND", err)
	}

	rec := &TokenRecord{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := m.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "tok" {
		t.Errorf("got token %q", got.AccessToken)
	}

	if err := m.Delete(ctx, "user-1", "github"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "user-1", "github"); err == nil {
		t.Error("expected NOT_FOUND after delete")
	}
}

func TestTokenRecord_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"future", now.Add(time.Hour), false},
		{"past", now.Add(-time.Hour), true},
		{"zero never expires", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := TokenRecord{ExpiresAt: tt.expires}
			if got := rec.Expired(now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryEmails_CreateSetsVersion(t *testing.T) {
	ctx := context.Background()
	emails := NewMemory().Emails()

	rec := &EmailRecord{Username: "jane", Email: "jane@example.com", Source: "profile", Confidence: 1}
	if err := emails.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.Version != 1 {
		t.Errorf("got version %d, want 1", rec.Version)
	}

	if err := emails.Create(ctx, rec); errors.GetCode(err) != errors.ErrCodeStorageConflict {
		t.Errorf("duplicate create: got %v, want STORAGE_CONFLICT", err)
	}
}

func TestMemoryEmails_UpdateCAS(t *testing.T) {
	ctx := context.Background()
	emails := NewMemory().Emails()

	rec := &EmailRecord{Username: "jane", Email: "jane@example.com", Source: "profile", Confidence: 0.9}
	if err := emails.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	update := &EmailRecord{Username: "jane", Email: "jane@work.example", Source: "commitHistory", Confidence: 0.95}
	if err := emails.Update(ctx, update, 1); err != nil {
		t.Fatalf("update with correct version failed: %v", err)
	}
	if update.Version != 2 {
		t.Errorf("got version %d, want 2", update.Version)
	}

	// A writer holding the stale version must conflict.
	stale := &EmailRecord{Username: "jane", Email: "other@example.com", Source: "manual", Confidence: 1}
	err := emails.Update(ctx, stale, 1)
	if errors.GetCode(err) != errors.ErrCodeStorageConflict {
		t.Errorf("got %v, want STORAGE_CONFLICT", err)
	}

	got, _ := emails.Get(ctx, "jane")
	if got.Email != "jane@work.example" || got.Version != 2 {
		t.Errorf("stored row clobbered: %+v", got)
	}
}

func TestMemoryLists_ProfileDedup(t *testing.T) {
	ctx := context.Background()
	lists := NewMemory().Lists()

	if err := lists.Create(ctx, &ListRecord{ID: "l1", Owner: "me", Name: "Rustaceans"}); err != nil {
		t.Fatal(err)
	}

	p := ProfileRecord{Login: "jane", UserID: 1}
	if err := lists.AddProfile(ctx, "me", "l1", p); err != nil {
		t.Fatal(err)
	}
	p.Location = "Berlin"
	if err := lists.AddProfile(ctx, "me", "l1", p); err != nil {
		t.Fatal(err)
	}

	got, err := lists.Get(ctx, "me", "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Profiles) != 1 {
		t.Fatalf("got %d profiles, want 1 (dedup by login)", len(got.Profiles))
	}
	if got.Profiles[0].Location != "Berlin" {
		t.Error("re-adding should refresh the snapshot")
	}

	if err := lists.RemoveProfile(ctx, "me", "l1", "jane"); err != nil {
		t.Fatal(err)
	}
	got, _ = lists.Get(ctx, "me", "l1")
	if len(got.Profiles) != 0 {
		t.Errorf("got %d profiles after remove", len(got.Profiles))
	}
}

func TestMemoryLists_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	lists := NewMemory().Lists()

	lists.Create(ctx, &ListRecord{ID: "l1", Owner: "alice", Name: "Mine"})

	if _, err := lists.Get(ctx, "bob", "l1"); errors.GetCode(err) != errors.ErrCodeListNotFound {
		t.Errorf("got %v, want LIST_NOT_FOUND for foreign owner", err)
	}
	if err := lists.Delete(ctx, "bob", "l1"); err == nil {
		t.Error("foreign owner should not delete")
	}
}

func TestMemorySearches_RoundTrip(t *testing.T) {
	ctx := context.Background()
	searches := NewMemory().Searches()

	rec := &SavedSearchRecord{ID: "s1", Owner: "me", Name: "rust berlin", FilterJSON: []byte(`{"text":"rust"}`)}
	if err := searches.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := searches.Get(ctx, "me", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "rust berlin" {
		t.Errorf("got %q", got.Name)
	}

	all, _ := searches.All(ctx, "me")
	if len(all) != 1 {
		t.Errorf("got %d searches", len(all))
	}

	if err := searches.Delete(ctx, "me", "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := searches.Get(ctx, "me", "s1"); err == nil {
		t.Error("expected not found after delete")
	}
}
