package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/net/idna"
)

// NormalizeBase turns user input into a lowercase ASCII base label suitable
// for joining with a TLD (e.g. "Example" -> "example"). The input must be a
// bare label without a TLD; URLs and dotted names are rejected.
func NormalizeBase(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", fmt.Errorf("empty base domain")
	}
	if strings.ContainsAny(s, "./:?#") {
		return "", fmt.Errorf("base domain must be a bare label without TLD: %q", input)
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	if err := ValidateBase(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

// ValidateBase reports whether s is a well-formed, already-normalized ASCII
// label: 1-63 characters of [a-z0-9-], hyphens not at the boundaries.
func ValidateBase(s string) error {
	if len(s) < 1 || len(s) > 63 {
		return fmt.Errorf("base domain must be 1-63 characters: %q", s)
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("base domain must not start or end with a hyphen: %q", s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return fmt.Errorf("base domain contains invalid character %q: %q", c, s)
	}
	return nil
}

// NormalizeTLD canonicalizes a TLD string to lowercase ASCII with a leading
// dot (".COM" -> ".com", "io" -> ".io"). Multi-label suffixes like "co.uk"
// are accepted.
func NormalizeTLD(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return "", fmt.Errorf("empty tld")
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	for _, label := range strings.Split(ascii, ".") {
		if len(label) < 1 || len(label) > 63 {
			return "", fmt.Errorf("invalid tld: %q", input)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return "", fmt.Errorf("invalid tld: %q", input)
		}
	}
	return "." + ascii, nil
}

// Join builds the full domain from a base label and a normalized TLD.
func Join(base, tld string) string {
	return base + tld
}

// TLDOf returns the last label of a full domain, without the dot.
func TLDOf(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}

// ReadLines reads whitespace-trimmed, non-empty lines (base labels piped in).
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	// Labels are short; keep the default scanner buffer.
	var out []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
