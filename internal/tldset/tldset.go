// Package tldset turns user input into an ordered, deduplicated set of
// normalized TLDs, and ships a few named presets for the CLI.
package tldset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tldscout/tldscout/internal/domain"
)

// Presets keyed by name. Order inside a preset is the order results are
// reported in.
var presets = map[string][]string{
	"popular": {".com", ".net", ".org", ".io", ".co", ".app", ".dev", ".ai"},
	"tech":    {".io", ".dev", ".app", ".ai", ".sh", ".tech", ".cloud"},
	"country": {".us", ".uk", ".de", ".fr", ".nl", ".ca", ".au", ".jp"},
}

// Preset returns the named preset, or false if it doesn't exist.
func Preset(name string) ([]string, bool) {
	tlds, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return append([]string(nil), tlds...), true
}

// PresetNames lists the available presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits a comma list of TLDs ("com,.IO, dev") into normalized form
// with insertion order preserved and duplicates dropped. A preset name is
// accepted in place of a list.
func Parse(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no TLDs specified")
	}

	if tlds, ok := Preset(s); ok {
		return tlds, nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		tld, err := domain.NormalizeTLD(p)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[tld]; ok {
			continue
		}
		seen[tld] = struct{}{}
		out = append(out, tld)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no TLDs specified")
	}
	return out, nil
}
