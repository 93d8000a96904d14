// Package checker orchestrates one availability batch: it fans a base domain
// out across a TLD set with bounded concurrency, classifies every outcome,
// attaches pricing to available domains and aggregates a single report.
package checker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tldscout/tldscout/internal/domain"
	"github.com/tldscout/tldscout/internal/pricing"
	"github.com/tldscout/tldscout/internal/probe"
	"github.com/tldscout/tldscout/internal/retry"
)

// ErrNoTLDs rejects a batch before any probing starts.
var ErrNoTLDs = errors.New("checker: no TLDs requested")

// DomainResult is the final classification for one requested TLD.
type DomainResult struct {
	Domain      string         `json:"domain"`
	TLD         string         `json:"tld"`
	Status      probe.Status   `json:"status"`
	CheckMethod probe.Method   `json:"check_method"`
	ExecutionMs int64          `json:"execution_ms"`
	Pricing     *pricing.Quote `json:"pricing,omitempty"`
	Error       string         `json:"error,omitempty"`
	Note        string         `json:"note,omitempty"`
}

// Summary counts results by status.
type Summary struct {
	Available int `json:"available"`
	Taken     int `json:"taken"`
	Errored   int `json:"errored"`
}

// Report aggregates one batch. Results keep the requested TLD order.
type Report struct {
	ID          string         `json:"id"`
	BaseDomain  string         `json:"base_domain"`
	Results     []DomainResult `json:"results"`
	Summary     Summary        `json:"summary"`
	ExecutionMs int64          `json:"execution_ms"`
}

type Config struct {
	// Probe performs the availability check; wrap multiple probes with
	// probe.NewChain for fallback behavior.
	Probe probe.Client

	// Pricing is optional; when nil, results carry no pricing.
	Pricing *pricing.Resolver

	// Retry bounds each TLD's probe attempts.
	Retry retry.Policy

	// Concurrency caps the number of TLDs checked at once. Zero means one
	// worker per TLD, which is fine for the typical handful of TLDs but
	// should be capped for large sets.
	Concurrency int

	Logger *logrus.Entry
}

type Checker struct {
	cfg Config
}

func New(cfg Config) *Checker {
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(l)
	}
	return &Checker{cfg: cfg}
}

// Check runs one batch. It returns an error only for an invalid request
// (empty TLD set); every per-TLD failure is captured in its own result so one
// bad TLD never poisons the rest. All units are waited for, even after the
// ctx deadline fires; cancelled units are recorded as timeouts.
func (c *Checker) Check(ctx context.Context, base string, tlds []string) (*Report, error) {
	if len(tlds) == 0 {
		return nil, ErrNoTLDs
	}

	start := time.Now()
	report := &Report{
		ID:         uuid.New().String(),
		BaseDomain: base,
		Results:    make([]DomainResult, len(tlds)),
	}

	log := c.cfg.Logger.WithFields(logrus.Fields{
		"batch_id": report.ID,
		"base":     base,
		"tlds":     len(tlds),
	})

	// The base is the caller's to validate; a bad one that slips through
	// fails every TLD with a validation error instead of aborting the batch.
	if err := domain.ValidateBase(base); err != nil {
		log.WithError(err).Warn("base domain failed validation")
		for i, tld := range tlds {
			report.Results[i] = DomainResult{
				Domain:      domain.Join(base, tld),
				TLD:         tld,
				Status:      probe.StatusError,
				CheckMethod: probe.MethodNone,
				Error:       "validation: " + err.Error(),
			}
		}
		report.Summary.Errored = len(tlds)
		report.ExecutionMs = time.Since(start).Milliseconds()
		return report, nil
	}

	workers := c.cfg.Concurrency
	if workers <= 0 || workers > len(tlds) {
		workers = len(tlds)
	}
	log.WithField("workers", workers).Debug("starting availability batch")

	// One slot per TLD index, written exactly once by its own task; the pool
	// is the only coordination point.
	pool := workerpool.New(workers)
	for i, tld := range tlds {
		i, tld := i, tld
		pool.Submit(func() {
			report.Results[i] = c.checkOne(ctx, base, tld)
		})
	}
	pool.StopWait()

	for _, r := range report.Results {
		switch r.Status {
		case probe.StatusAvailable:
			report.Summary.Available++
		case probe.StatusTaken:
			report.Summary.Taken++
		default:
			report.Summary.Errored++
		}
	}
	report.ExecutionMs = time.Since(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"available":    report.Summary.Available,
		"taken":        report.Summary.Taken,
		"errored":      report.Summary.Errored,
		"execution_ms": report.ExecutionMs,
	}).Info("availability batch finished")

	return report, nil
}

func (c *Checker) checkOne(ctx context.Context, base, tld string) DomainResult {
	fqdn := domain.Join(base, tld)
	start := time.Now()

	out := c.cfg.Retry.Execute(ctx, c.cfg.Probe.Name(), func(ctx context.Context) (probe.Outcome, error) {
		return c.cfg.Probe.Check(ctx, fqdn)
	})

	res := DomainResult{
		Domain:      fqdn,
		TLD:         tld,
		Status:      out.Status,
		CheckMethod: out.Method,
		ExecutionMs: time.Since(start).Milliseconds(),
	}
	if out.Status == probe.StatusError {
		res.Error = out.Reason
		return res
	}

	if out.Status == probe.StatusAvailable && c.cfg.Pricing != nil && c.cfg.Pricing.Sources() > 0 {
		// Pricing is best-effort: a failure never downgrades availability,
		// it only leaves the pricing field empty.
		quote, err := c.cfg.Pricing.Resolve(ctx, fqdn)
		if err != nil {
			c.cfg.Logger.WithField("domain", fqdn).WithError(err).Debug("pricing lookup failed")
			res.Note = "pricing unavailable"
		} else {
			res.Pricing = &quote
		}
		res.ExecutionMs = time.Since(start).Milliseconds()
	}

	return res
}
