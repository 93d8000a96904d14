package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string
	q    Quote
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Quote(ctx context.Context, domain string) (Quote, error) {
	return s.q, s.err
}

func TestResolve_PicksLowestFirstYear(t *testing.T) {
	t.Parallel()

	r := NewResolver(SelectFirstYear,
		stubSource{name: "acme", q: Quote{FirstYear: 35, Renewal: 45}},
		stubSource{name: "cheapo", q: Quote{FirstYear: 12, Renewal: 99}},
		stubSource{name: "midway", q: Quote{FirstYear: 20, Renewal: 20}},
	)

	q, err := r.Resolve(context.Background(), "example.io")
	require.NoError(t, err)
	assert.Equal(t, "cheapo", q.Registrar)
	assert.Equal(t, 12.0, q.FirstYear)
}

func TestResolve_TotalPolicy(t *testing.T) {
	t.Parallel()

	r := NewResolver(SelectTotal,
		stubSource{name: "cheapo", q: Quote{FirstYear: 12, Renewal: 99}},
		stubSource{name: "midway", q: Quote{FirstYear: 20, Renewal: 20}},
	)

	q, err := r.Resolve(context.Background(), "example.io")
	require.NoError(t, err)
	assert.Equal(t, "midway", q.Registrar, "total policy weighs renewal too")
}

func TestResolve_SourceFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	r := NewResolver(SelectFirstYear,
		stubSource{name: "down", err: errors.New("http 503")},
		stubSource{name: "acme", q: Quote{FirstYear: 35, Renewal: 45, Premium: true}},
	)

	q, err := r.Resolve(context.Background(), "short.io")
	require.NoError(t, err)
	assert.Equal(t, "acme", q.Registrar)
	assert.True(t, q.Premium, "premium flag must survive the fold")
}

func TestResolve_AllSourcesFail(t *testing.T) {
	t.Parallel()

	r := NewResolver(SelectFirstYear,
		stubSource{name: "down", err: errors.New("http 503")},
	)

	_, err := r.Resolve(context.Background(), "example.io")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoQuote)
	assert.Contains(t, err.Error(), "down")
}

func TestResolve_NoSources(t *testing.T) {
	t.Parallel()

	r := NewResolver(SelectFirstYear)
	_, err := r.Resolve(context.Background(), "example.io")
	assert.ErrorIs(t, err, ErrNoQuote)
}
