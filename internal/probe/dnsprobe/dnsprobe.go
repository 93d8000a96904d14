// Package dnsprobe infers domain registration state from the DNS: a name
// answering NXDOMAIN for NS has no delegation and is most likely unregistered.
// It is the cheapest probe but also the least authoritative one, so it works
// best in front of RDAP/WHOIS in a fallback chain.
package dnsprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/tldscout/tldscout/internal/probe"
)

const DefaultResolver = "8.8.8.8:53"

type Options struct {
	// Resolver is the "host:port" of the DNS resolver to query.
	Resolver string
	Timeout  time.Duration
}

type Probe struct {
	opts   Options
	client *dns.Client
}

func New(opts Options) *Probe {
	if opts.Resolver == "" {
		opts.Resolver = DefaultResolver
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Probe{
		opts: opts,
		client: &dns.Client{
			Timeout: opts.Timeout,
		},
	}
}

func (p *Probe) Name() probe.Method { return probe.MethodDNS }

func (p *Probe) Check(ctx context.Context, domain string) (probe.Outcome, error) {
	start := time.Now()

	fqdn := dns.Fqdn(domain)
	if _, ok := dns.IsDomainName(domain); !ok {
		return probe.Outcome{}, probe.Terminal("dns: invalid domain %q", domain)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeNS)
	msg.RecursionDesired = true

	resp, _, err := p.client.ExchangeContext(ctx, msg, p.opts.Resolver)
	if err != nil {
		return probe.Outcome{}, fmt.Errorf("dns: %w", err)
	}

	return classifyRcode(resp.Rcode, time.Since(start))
}

// classifyRcode maps a DNS response code to an outcome. NXDOMAIN means no
// delegation exists; NOERROR means the zone is known to the parent, so the
// domain is registered even when the NS answer section is empty.
func classifyRcode(rcode int, elapsed time.Duration) (probe.Outcome, error) {
	switch rcode {
	case dns.RcodeNameError:
		return probe.Available(probe.MethodDNS, elapsed), nil
	case dns.RcodeSuccess:
		return probe.Taken(probe.MethodDNS, elapsed), nil
	case dns.RcodeServerFailure:
		return probe.Outcome{}, probe.Transient("dns: resolver failure (rcode %s)", dns.RcodeToString[rcode])
	case dns.RcodeRefused:
		return probe.Outcome{}, probe.Terminal("dns: query refused (rcode %s)", dns.RcodeToString[rcode])
	default:
		return probe.Outcome{}, fmt.Errorf("dns: unexpected rcode %s", dns.RcodeToString[rcode])
	}
}
