package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	return New(io.Discard, log.ErrorLevel)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(os.Stderr, log.InfoLevel)
	root := c.RootCommand()

	want := []string{"auth", "search", "saved", "emails", "lists", "cache", "serve", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestRootCommandHelp(t *testing.T) {
	c := New(os.Stderr, log.InfoLevel)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("devfinder")) {
		t.Error("help output does not mention devfinder")
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(os.Stderr, log.InfoLevel)
	c.SetLogLevel(log.DebugLevel)
	if c.Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", c.Logger.GetLevel())
	}
}
