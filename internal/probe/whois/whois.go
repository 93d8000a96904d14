// Package whois probes domain registration state over port-43 WHOIS, with the
// referral server per TLD discovered through whois.iana.org.
package whois

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tldscout/tldscout/internal/probe"
)

type Options struct {
	Timeout time.Duration

	// Safety valves for WHOIS servers.
	MaxConcurrentPerServer int
	MinDelayPerServer      time.Duration
}

type Probe struct {
	opts Options

	mu          sync.Mutex
	tldToServer map[string]string
	serverState map[string]*perServerState
}

type perServerState struct {
	sem  chan struct{}
	mu   sync.Mutex
	next time.Time
}

func New(opts Options) *Probe {
	if opts.Timeout == 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxConcurrentPerServer <= 0 {
		opts.MaxConcurrentPerServer = 1
	}
	if opts.MinDelayPerServer <= 0 {
		opts.MinDelayPerServer = 250 * time.Millisecond
	}
	return &Probe{
		opts:        opts,
		tldToServer: make(map[string]string, 256),
	}
}

func (p *Probe) Name() probe.Method { return probe.MethodWHOIS }

// Check issues a single WHOIS query; retrying across transient failures is
// the caller's job, so each call is exactly one attempt against the server.
func (p *Probe) Check(ctx context.Context, domain string) (probe.Outcome, error) {
	start := time.Now()

	tld := lastLabel(domain)
	if tld == "" {
		return probe.Outcome{}, probe.Terminal("whois: invalid domain %q", domain)
	}

	server, err := p.serverForTLD(ctx, tld)
	if err != nil {
		return probe.Outcome{}, err
	}

	body, err := p.query(ctx, server, domain)
	if err != nil {
		return probe.Outcome{}, fmt.Errorf("whois %s: %w", server, err)
	}

	switch status, _ := classify(domain, body); status {
	case "available":
		return probe.Available(probe.MethodWHOIS, time.Since(start)), nil
	case "taken":
		return probe.Taken(probe.MethodWHOIS, time.Since(start)), nil
	default:
		return probe.Outcome{}, probe.Terminal("whois %s: ambiguous response for %q", server, domain)
	}
}

func (p *Probe) serverForTLD(ctx context.Context, tld string) (string, error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" {
		return "", probe.Terminal("whois: empty tld")
	}

	p.mu.Lock()
	if s, ok := p.tldToServer[tld]; ok && s != "" {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	body, err := p.query(ctx, "whois.iana.org", tld)
	if err != nil {
		return "", err
	}

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// Example: "whois: whois.verisign-grs.com"
		if strings.HasPrefix(strings.ToLower(line), "whois:") {
			server := strings.TrimSpace(line[len("whois:"):])
			server = strings.Fields(server)[0]
			if server != "" {
				p.mu.Lock()
				p.tldToServer[tld] = server
				p.mu.Unlock()
				return server, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", probe.Terminal("whois: no server for tld %q", tld)
}

func (p *Probe) stateForServer(server string) *perServerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.serverState == nil {
		p.serverState = make(map[string]*perServerState, 32)
	}
	if st, ok := p.serverState[server]; ok {
		return st
	}
	st := &perServerState{sem: make(chan struct{}, p.opts.MaxConcurrentPerServer)}
	p.serverState[server] = st
	return st
}

func (p *Probe) query(ctx context.Context, server, q string) (string, error) {
	st := p.stateForServer(server)

	// Bound concurrency per server.
	select {
	case st.sem <- struct{}{}:
		defer func() { <-st.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// Rate limit per server, but don't count this wait time towards the network timeout.
	if p.opts.MinDelayPerServer > 0 {
		st.mu.Lock()
		scheduled := time.Now()
		if scheduled.Before(st.next) {
			scheduled = st.next
		}
		st.next = scheduled.Add(p.opts.MinDelayPerServer)
		st.mu.Unlock()
		if err := sleepUntil(ctx, scheduled); err != nil {
			return "", err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(attemptCtx, "tcp", net.JoinHostPort(server, "43"))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(p.opts.Timeout))

	if _, err := io.WriteString(conn, q+"\r\n"); err != nil {
		return "", err
	}

	b, err := io.ReadAll(io.LimitReader(conn, 1<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var notFoundPatterns = []struct {
	Needle  string
	Pattern string
}{
	{"no match for", "no_match_for"},
	{"no data found", "no_data_found"},
	{"no entries found", "no_entries_found"},
	{"domain not found", "domain_not_found"},
	{"no such domain", "no_such_domain"},
	{"status: free", "status_free"},
	{"not found", "not_found"},
}

func classify(domain, body string) (status string, pattern string) {
	l := strings.ToLower(body)
	for _, p := range notFoundPatterns {
		if strings.Contains(l, p.Needle) {
			return "available", p.Pattern
		}
	}

	// Try to detect a record that explicitly names the domain.
	escaped := regexp.QuoteMeta(domain)
	for _, re := range []*regexp.Regexp{
		regexp.MustCompile(`(?im)^domain name:\s*` + escaped + `\s*$`),
		regexp.MustCompile(`(?im)^domain:\s*` + escaped + `\s*$`),
		regexp.MustCompile(`(?im)^domain\s*:\s*` + escaped + `\s*$`),
	} {
		if re.FindStringIndex(body) != nil {
			return "taken", re.String()
		}
	}

	// Fallback heuristics.
	if strings.Contains(l, "domain name:") || strings.Contains(l, "registrar:") {
		return "taken", "heuristic_record_fields"
	}

	return "unknown", ""
}

func lastLabel(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}

func sleepUntil(ctx context.Context, at time.Time) error {
	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
