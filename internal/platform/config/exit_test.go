package config

import (
	"bytes"
	"testing"
)

func TestExitf(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	prevStderr, prevExit := stderr, exit
	stderr, exit = &buf, func(c int) { code = c }
	t.Cleanup(func() { stderr, exit = prevStderr, prevExit })

	Exitf("Error: %s\n", "dice server unreachable")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if got := buf.String(); got != "Error: dice server unreachable\n" {
		t.Fatalf("unexpected stderr %q", got)
	}
}
