package main

import (
	"os"
	"testing"
)

func runWithArgs(args ...string) int {
	old := os.Args
	defer func() { os.Args = old }()
	os.Args = append([]string{"tldscout"}, args...)
	return run()
}

// Keep these exit codes stable: they matter in scripts/agents.
func TestRun_NoArgs_Exit2(t *testing.T) {
	if got := runWithArgs(); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_UnknownCommand_Exit2(t *testing.T) {
	if got := runWithArgs("nope"); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_Version_Exit0(t *testing.T) {
	if got := runWithArgs("--version"); got != 0 {
		t.Fatalf("exit=%d, want 0", got)
	}
}

func TestRun_BadProbe_Exit2(t *testing.T) {
	if got := runWithArgs("check", "acme", "--probe", "carrier-pigeon"); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_ConflictingFormats_Exit2(t *testing.T) {
	if got := runWithArgs("check", "acme", "--json", "--ndjson"); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_Tlds_Exit0(t *testing.T) {
	if got := runWithArgs("tlds"); got != 0 {
		t.Fatalf("exit=%d, want 0", got)
	}
}
