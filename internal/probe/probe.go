// Package probe defines the contract for a single availability check of one
// fully-qualified domain, and the outcome value every probe produces.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Status is the classification of one availability check.
type Status string

const (
	StatusAvailable Status = "available"
	StatusTaken     Status = "taken"
	StatusError     Status = "error"
)

// Method identifies how an outcome was obtained.
type Method string

const (
	MethodRDAP  Method = "rdap"
	MethodWHOIS Method = "whois"
	MethodDNS   Method = "dns"
	MethodNone  Method = "none"
)

// Outcome is the tagged result of one probe: exactly one of the three Status
// variants, with Reason carrying the error text for StatusError.
type Outcome struct {
	Status  Status
	Method  Method
	Reason  string
	Elapsed time.Duration
}

func Available(m Method, elapsed time.Duration) Outcome {
	return Outcome{Status: StatusAvailable, Method: m, Elapsed: elapsed}
}

func Taken(m Method, elapsed time.Duration) Outcome {
	return Outcome{Status: StatusTaken, Method: m, Elapsed: elapsed}
}

func Errored(m Method, reason string, elapsed time.Duration) Outcome {
	return Outcome{Status: StatusError, Method: m, Reason: reason, Elapsed: elapsed}
}

// Definitive reports whether the outcome settles the domain's registration
// state (as opposed to an error that a fallback probe may resolve).
func (o Outcome) Definitive() bool {
	return o.Status == StatusAvailable || o.Status == StatusTaken
}

// Client performs one availability check for one full domain. Implementations
// must honor ctx cancellation and return either a definitive Outcome or an
// error; transient errors may be retried by the caller, terminal ones not.
type Client interface {
	Name() Method
	Check(ctx context.Context, domain string) (Outcome, error)
}

// TerminalError marks a failure that retrying cannot fix (malformed domain
// rejected by the source, TLD not supported by the source).
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return e.Err.Error() }
func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err so Retryable reports false for it.
func Terminal(format string, args ...any) error {
	return &TerminalError{Err: fmt.Errorf(format, args...)}
}

// TransientError marks a failure known to be worth retrying (registry-side
// hiccups like SERVFAIL or rate-limit signals) even when the underlying error
// type carries no timeout information.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so Retryable reports true for it.
func Transient(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// Retryable classifies a probe failure. Timeouts and transient network
// failures are retryable; context cancellation and terminal failures are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TerminalError
	if errors.As(err, &te) {
		return false
	}
	var tr *TransientError
	if errors.As(err, &tr) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	// Common transient failures from registry-side servers.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection reset"):
		return true
	case strings.Contains(s, "connection refused"):
		return true
	case strings.Contains(s, "broken pipe"):
		return true
	case strings.Contains(s, "unexpected eof"):
		return true
	case strings.Contains(s, "rate limit"):
		return true
	case strings.Contains(s, "too many requests"):
		return true
	}

	return false
}

// Chain tries each probe in order and returns the first definitive outcome.
// A terminal error from one probe does not stop the fallback to the next; the
// chain only fails when every probe has failed, returning the last error.
type Chain struct {
	probes []Client
}

func NewChain(probes ...Client) *Chain {
	return &Chain{probes: probes}
}

func (c *Chain) Name() Method {
	if len(c.probes) == 1 {
		return c.probes[0].Name()
	}
	return MethodNone
}

func (c *Chain) Check(ctx context.Context, domain string) (Outcome, error) {
	start := time.Now()
	var lastErr error
	for _, p := range c.probes {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		out, err := p.Check(ctx, domain)
		if err == nil && out.Definitive() {
			out.Elapsed = time.Since(start)
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = Terminal("no probe produced a definitive outcome for %q", domain)
	}
	// Keep the aggregate retryable only if the last failure was.
	if Retryable(lastErr) {
		return Outcome{}, lastErr
	}
	return Outcome{}, &TerminalError{Err: fmt.Errorf("all probes failed: %w", unwrapTerminal(lastErr))}
}

func unwrapTerminal(err error) error {
	var te *TerminalError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}
