// Package pricing resolves indicative registration pricing for available
// domains from one or more registrar sources, keeping the best quote.
package pricing

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoQuote is returned when no source produced a usable quote.
var ErrNoQuote = errors.New("pricing: no quote available")

// Quote is one registrar's indicative pricing for a domain.
type Quote struct {
	FirstYear    float64 `json:"first_year_price"`
	Renewal      float64 `json:"renewal_price"`
	Currency     string  `json:"currency,omitempty"`
	Registrar    string  `json:"registrar"`
	RegistrarURL string  `json:"registrar_url,omitempty"`
	Premium      bool    `json:"is_premium"`
	Notes        string  `json:"notes,omitempty"`
}

// Source is a single registrar pricing backend.
type Source interface {
	Name() string
	Quote(ctx context.Context, domain string) (Quote, error)
}

// SelectionPolicy decides which of two valid quotes wins the fold.
type SelectionPolicy string

const (
	// SelectFirstYear prefers the lowest first-year price.
	SelectFirstYear SelectionPolicy = "first-year"
	// SelectTotal prefers the lowest first year plus renewal.
	SelectTotal SelectionPolicy = "total"
)

// Better reports whether a beats b under the policy.
func (p SelectionPolicy) Better(a, b Quote) bool {
	switch p {
	case SelectTotal:
		return a.FirstYear+a.Renewal < b.FirstYear+b.Renewal
	default:
		return a.FirstYear < b.FirstYear
	}
}

// Resolver queries every configured source and folds the quotes down to the
// single best one.
type Resolver struct {
	sources []Source
	policy  SelectionPolicy
}

func NewResolver(policy SelectionPolicy, sources ...Source) *Resolver {
	if policy == "" {
		policy = SelectFirstYear
	}
	return &Resolver{sources: sources, policy: policy}
}

// Sources reports how many backends the resolver consults.
func (r *Resolver) Sources() int { return len(r.sources) }

// Resolve is best-effort: individual source failures only reduce the
// candidate set. It fails with ErrNoQuote (wrapping the last source error, if
// any) when every source came up empty.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Quote, error) {
	var (
		best    Quote
		found   bool
		lastErr error
	)

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			break
		}
		q, err := src.Quote(ctx, domain)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			continue
		}
		if q.FirstYear < 0 || q.Renewal < 0 {
			lastErr = fmt.Errorf("%s: negative price for %q", src.Name(), domain)
			continue
		}
		if q.Registrar == "" {
			q.Registrar = src.Name()
		}
		if !found || r.policy.Better(q, best) {
			best = q
			found = true
		}
	}

	if !found {
		if lastErr != nil {
			return Quote{}, fmt.Errorf("%w: %w", ErrNoQuote, lastErr)
		}
		return Quote{}, ErrNoQuote
	}
	return best, nil
}
