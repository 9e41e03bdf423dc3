package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if !strings.HasSuffix(dir, "devfinder") {
		t.Errorf("cacheDir() = %q, should end with 'devfinder'", dir)
	}
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", t.TempDir())

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home := filepath.Dir(filepath.Dir(dir))
	expected := filepath.Join(home, ".cache", "devfinder")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheClearOnEmptyDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := newTestCLI(t)
	cmd := c.cacheClearCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear on missing dir: %v", err)
	}
}

func TestCacheClearRemovesShardedEntries(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", root)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	for _, p := range []string{"ab/abc123", "cd/cdf456"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	c := newTestCLI(t)
	cmd := c.cacheClearCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	entries, size, err := scanCacheDir(dir)
	if err != nil {
		t.Fatalf("scanCacheDir after clear: %v", err)
	}
	if len(entries) != 0 || size != 0 {
		t.Errorf("cache not empty after clear: %d entries, %d bytes", len(entries), size)
	}
}

func TestScanCacheDirMissing(t *testing.T) {
	entries, size, err := scanCacheDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("scanCacheDir on missing dir: %v", err)
	}
	if len(entries) != 0 || size != 0 {
		t.Errorf("got %d entries, %d bytes, want empty", len(entries), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
