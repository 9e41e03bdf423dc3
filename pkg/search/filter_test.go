package search

import "testing"

func TestFilterQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "text only",
			filter: Filter{Text: "jane"},
			want:   "jane",
		},
		{
			name:   "text language location",
			filter: Filter{Text: "jane", Language: "Rust", Locations: []string{"Berlin"}},
			want:   "jane language:Rust location:Berlin",
		},
		{
			name:   "multiple locations",
			filter: Filter{Text: "dev", Locations: []string{"Berlin", "Munich"}},
			want:   "dev location:Berlin location:Munich",
		},
		{
			name:   "hireable last",
			filter: Filter{Text: "go", Language: "Go", Hireable: true},
			want:   "go language:Go is:hireable",
		},
		{
			name:   "spaced location quoted",
			filter: Filter{Locations: []string{"San Francisco"}},
			want:   `location:"San Francisco"`,
		},
		{
			name:   "empty filter",
			filter: Filter{},
			want:   "",
		},
		{
			name:   "text trimmed",
			filter: Filter{Text: "  jane  "},
			want:   "jane",
		},
		{
			name:   "empty location skipped",
			filter: Filter{Text: "jane", Locations: []string{"", "Berlin"}},
			want:   "jane location:Berlin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Query(); got != tt.want {
				t.Errorf("Query() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterQueryDeterministic(t *testing.T) {
	f1 := Filter{Text: "jane", Language: "Rust", Locations: []string{"Berlin", "Munich"}, Hireable: true}
	f2 := Filter{Text: "jane", Language: "Rust", Locations: []string{"Berlin", "Munich"}, Hireable: true}
	if f1.Query() != f2.Query() {
		t.Errorf("structurally equal filters produced different queries: %q vs %q", f1.Query(), f2.Query())
	}
}

func TestFilterDefaults(t *testing.T) {
	var f Filter
	if f.page() != 1 {
		t.Errorf("page() = %d, want 1", f.page())
	}
	if f.perPage() != DefaultPerPage {
		t.Errorf("perPage() = %d, want %d", f.perPage(), DefaultPerPage)
	}
}
