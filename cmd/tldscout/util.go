package main

import (
	"os"
	"strings"

	"github.com/tldscout/tldscout/internal/domain"
	"golang.org/x/term"
)

func readBasesFromArgsAndStdin(args []string, stdin *os.File) ([]string, error) {
	var out []string

	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		out = append(out, a)
	}

	if term.IsTerminal(int(stdin.Fd())) {
		// Nothing piped in.
		return dedupe(out), nil
	}

	stdinBases, err := domain.ReadLines(stdin)
	if err != nil {
		return nil, err
	}
	out = append(out, stdinBases...)
	return dedupe(out), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
