package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"terminal", Terminal("unsupported tld"), false},
		{"transient", Transient("servfail"), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), true},
		{"net timeout", &net.DNSError{Err: "lookup", IsTimeout: true}, true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"rate limit", errors.New("rate limit exceeded, slow down"), true},
		{"plain", errors.New("no such host"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

type fakeProbe struct {
	method Method
	out    Outcome
	err    error
	calls  int
}

func (f *fakeProbe) Name() Method { return f.method }

func (f *fakeProbe) Check(ctx context.Context, domain string) (Outcome, error) {
	f.calls++
	return f.out, f.err
}

func TestChain_FirstDefinitiveWins(t *testing.T) {
	t.Parallel()

	first := &fakeProbe{method: MethodRDAP, out: Taken(MethodRDAP, time.Millisecond)}
	second := &fakeProbe{method: MethodWHOIS, out: Available(MethodWHOIS, time.Millisecond)}

	out, err := NewChain(first, second).Check(context.Background(), "acme.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if out.Status != StatusTaken || out.Method != MethodRDAP {
		t.Fatalf("got %s via %s, want taken via rdap", out.Status, out.Method)
	}
	if second.calls != 0 {
		t.Fatalf("second probe called %d times, want 0", second.calls)
	}
}

func TestChain_FallsThroughTerminalFailure(t *testing.T) {
	t.Parallel()

	first := &fakeProbe{method: MethodRDAP, err: Terminal("no rdap service for tld")}
	second := &fakeProbe{method: MethodWHOIS, out: Available(MethodWHOIS, time.Millisecond)}

	out, err := NewChain(first, second).Check(context.Background(), "acme.xyz")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if out.Status != StatusAvailable || out.Method != MethodWHOIS {
		t.Fatalf("got %s via %s, want available via whois", out.Status, out.Method)
	}
}

func TestChain_AllFailed(t *testing.T) {
	t.Parallel()

	first := &fakeProbe{method: MethodRDAP, err: Terminal("no rdap service")}
	second := &fakeProbe{method: MethodWHOIS, err: Terminal("no whois server")}

	_, err := NewChain(first, second).Check(context.Background(), "acme.zzz")
	if err == nil {
		t.Fatal("want error when every probe fails")
	}
	if Retryable(err) {
		t.Fatalf("terminal chain failure reported retryable: %v", err)
	}
}

func TestChain_KeepsRetryableErrors(t *testing.T) {
	t.Parallel()

	only := &fakeProbe{method: MethodWHOIS, err: Transient("rate limited")}

	_, err := NewChain(only).Check(context.Background(), "acme.com")
	if err == nil {
		t.Fatal("want error")
	}
	if !Retryable(err) {
		t.Fatalf("transient chain failure reported terminal: %v", err)
	}
}

func TestChain_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := &fakeProbe{method: MethodRDAP, out: Taken(MethodRDAP, 0)}
	_, err := NewChain(probe).Check(ctx, "acme.com")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if probe.calls != 0 {
		t.Fatalf("probe called %d times after cancellation, want 0", probe.calls)
	}
}
