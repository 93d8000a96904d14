// Package retry wraps a single probe attempt with a per-attempt timeout and a
// bounded retry budget. All failure past this boundary is expressed as an
// error outcome value; nothing escapes as a Go error.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tldscout/tldscout/internal/probe"
)

// Strategy selects how the delay between attempts grows.
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyExponential Strategy = "exponential"
)

const (
	DefaultTimeout  = 8 * time.Second
	DefaultDelay    = 100 * time.Millisecond
	DefaultMaxDelay = 2 * time.Second
)

// Policy bounds one task's probe attempts. The retry budget is inclusive of
// the final attempt: MaxRetries=2 means at most 3 attempts in total.
type Policy struct {
	MaxRetries int
	Timeout    time.Duration // per attempt
	Delay      time.Duration // backoff between attempts
	MaxDelay   time.Duration // cap for exponential growth
	Strategy   Strategy
}

// Attempt performs one probe try under the attempt-scoped context.
type Attempt func(ctx context.Context) (probe.Outcome, error)

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Strategy == "" {
		p.Strategy = StrategyFixed
	}
	return p
}

// Execute runs attempt up to MaxRetries+1 times. Transient failures (timeouts,
// temporary network errors, rate-limit signals) are retried after a backoff
// delay; terminal failures short-circuit immediately. After exhaustion the
// last failure's reason is returned as an error outcome under method.
func (p Policy) Execute(ctx context.Context, method probe.Method, attempt Attempt) probe.Outcome {
	p = p.withDefaults()
	start := time.Now()

	delay := p.Delay
	var lastReason string

	for try := 0; try <= p.MaxRetries; try++ {
		if err := ctx.Err(); err != nil {
			return probe.Errored(method, deadlineReason(err), time.Since(start))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		out, err := attempt(attemptCtx)
		cancel()

		if err == nil && out.Definitive() {
			return out
		}

		if err == nil {
			// A probe returning a non-definitive outcome without an error is a
			// contract violation; surface it rather than spinning on retries.
			return probe.Errored(method, "probe returned no outcome", time.Since(start))
		}

		lastReason = reasonFor(err, p.Timeout)

		if !probe.Retryable(err) {
			return probe.Errored(method, lastReason, time.Since(start))
		}
		if try == p.MaxRetries {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return probe.Errored(method, deadlineReason(err), time.Since(start))
		}
		if p.Strategy == StrategyExponential {
			delay *= 2
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return probe.Errored(method, lastReason, time.Since(start))
}

// reasonFor renders an attempt failure for the error outcome. Attempt-level
// deadline errors are reported as timeouts so the caller can tell them apart
// from source-side rejections.
func reasonFor(err error, perAttempt time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout after " + perAttempt.String()
	}
	return err.Error()
}

func deadlineReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: batch deadline exceeded"
	}
	return err.Error()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
