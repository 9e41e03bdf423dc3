package cache

import (
	"strings"
	"testing"
)

type testFilter struct {
	Text      string   `json:"text"`
	Language  string   `json:"language"`
	Locations []string `json:"locations"`
	Page      int      `json:"page"`
}

func TestDefaultKeyer_SearchKeyDeterminism(t *testing.T) {
	k := NewDefaultKeyer()

	f1 := testFilter{Text: "jane", Language: "Rust", Locations: []string{"Berlin"}, Page: 1}
	f2 := testFilter{Text: "jane", Language: "Rust", Locations: []string{"Berlin"}, Page: 1}

	if k.SearchKey(f1, "") != k.SearchKey(f2, "") {
		t.Error("structurally equal filters must produce identical keys")
	}

	f3 := f1
	f3.Page = 2
	if k.SearchKey(f1, "") == k.SearchKey(f3, "") {
		t.Error("different pages must produce different keys")
	}

	if k.SearchKey(f1, "") == k.SearchKey(f1, "salt") {
		t.Error("salt must bust the key")
	}
}

func TestScopedKeyer(t *testing.T) {
	base := NewDefaultKeyer()
	scoped := NewScopedKeyer(base, "user:42:")

	f := testFilter{Text: "jane", Page: 1}
	got := scoped.SearchKey(f, "")
	if !strings.HasPrefix(got, "user:42:") {
		t.Errorf("key %q should carry the scope prefix", got)
	}
	if strings.TrimPrefix(got, "user:42:") != base.SearchKey(f, "") {
		t.Error("scoped key should wrap the inner key unchanged")
	}
}

func TestScopedKeyer_NilInner(t *testing.T) {
	k := NewScopedKeyer(nil, "p:")
	if !strings.HasPrefix(k.SearchKey(testFilter{Text: "x"}, ""), "p:") {
		t.Error("nil inner should fall back to the default keyer")
	}
}

func TestScopedKeyer_DistinctScopesDiverge(t *testing.T) {
	f := testFilter{Text: "jane", Page: 1}
	a := NewScopedKeyer(nil, "user:1:").SearchKey(f, "")
	b := NewScopedKeyer(nil, "user:2:").SearchKey(f, "")
	if a == b {
		t.Error("the same filter under different scopes must not share a key")
	}
}
