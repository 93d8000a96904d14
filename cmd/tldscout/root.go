package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tldscout/tldscout/internal/checker"
	"github.com/tldscout/tldscout/internal/config"
	"github.com/tldscout/tldscout/internal/pricing"
	"github.com/tldscout/tldscout/internal/pricing/namecheap"
	"github.com/tldscout/tldscout/internal/pricing/porkbun"
	"github.com/tldscout/tldscout/internal/probe"
	"github.com/tldscout/tldscout/internal/probe/dnsprobe"
	"github.com/tldscout/tldscout/internal/probe/rdap"
	"github.com/tldscout/tldscout/internal/probe/whois"
	"github.com/tldscout/tldscout/internal/retry"
)

type cliConfig struct {
	Version string

	// Global flags.
	VersionFlag bool
	Format      string
	JSON        bool
	NDJSON      bool
	Plain       bool
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	Exponential bool
	Concurrency int
	Deadline    time.Duration
	Probe       string
	Pricing     string
	PricePolicy string
	Quiet       bool
	Verbose     bool

	// Derived runtime state.
	env       *config.Config
	checker   *checker.Checker
	outFormat outputFormat
}

func newRootCmd(ver string) *cobra.Command {
	cfg := &cliConfig{Version: ver}

	root := &cobra.Command{
		Use:           "tldscout",
		Short:         "Check a base domain's availability across TLDs, with pricing",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(usageErr)

	pf := root.PersistentFlags()
	pf.BoolVar(&cfg.VersionFlag, "version", false, "Print version and exit")
	pf.StringVar(&cfg.Format, "format", "auto", "Output format: auto|table|ndjson|json|plain")
	pf.BoolVar(&cfg.JSON, "json", false, "Alias for --format json")
	pf.BoolVar(&cfg.NDJSON, "ndjson", false, "Alias for --format ndjson (one result per line)")
	pf.BoolVar(&cfg.Plain, "plain", false, "Alias for --format plain (stable tab-separated)")
	pf.DurationVar(&cfg.Timeout, "timeout", 0, "Per-probe-attempt timeout (default from env, 8s)")
	pf.IntVar(&cfg.Retries, "retries", -1, "Retries after the first failed attempt (default from env, 2)")
	pf.DurationVar(&cfg.Backoff, "backoff", 0, "Delay between retries (default from env, 100ms)")
	pf.BoolVar(&cfg.Exponential, "exponential-backoff", false, "Double the backoff delay between retries")
	pf.IntVar(&cfg.Concurrency, "concurrency", 0, "Max TLDs checked at once (0 = one worker per TLD)")
	pf.DurationVar(&cfg.Deadline, "deadline", 0, "Overall deadline for the whole batch (0 = none)")
	pf.StringVar(&cfg.Probe, "probe", "auto", "Probe backend: auto|rdap|whois|dns")
	pf.StringVar(&cfg.Pricing, "pricing", "auto", "Pricing sources: auto|none|porkbun|namecheap")
	pf.StringVar(&cfg.PricePolicy, "price-policy", "", "Best-quote policy: first-year|total (default from env)")
	pf.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Suppress non-essential stderr output")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose stderr output (diagnostics)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfg.VersionFlag {
			fmt.Fprintf(os.Stdout, "tldscout %s (%s/%s)\n", cfg.Version, runtime.GOOS, runtime.GOARCH)
			return errExit0
		}

		aliases := 0
		for _, set := range []bool{cfg.JSON, cfg.NDJSON, cfg.Plain} {
			if set {
				aliases++
			}
		}
		if aliases > 1 {
			return usageErr(cmd, fmt.Errorf("flags are mutually exclusive: --json, --ndjson, --plain"))
		}
		formatStr := strings.ToLower(strings.TrimSpace(cfg.Format))
		if formatStr != "auto" && formatStr != "" && aliases == 1 {
			return usageErr(cmd, fmt.Errorf("do not combine --format with --json/--ndjson/--plain"))
		}
		switch {
		case cfg.JSON:
			formatStr = "json"
		case cfg.NDJSON:
			formatStr = "ndjson"
		case cfg.Plain:
			formatStr = "plain"
		}
		cfg.outFormat = resolveFormat(formatStr, os.Stdout)

		cfg.env = config.Load()
		log := setupLogging(cfg)

		if cfg.Timeout <= 0 {
			cfg.Timeout = cfg.env.Check.Timeout
		}
		if cfg.Retries < 0 {
			cfg.Retries = cfg.env.Check.Retries
		}
		if cfg.Backoff <= 0 {
			cfg.Backoff = cfg.env.Check.Backoff
		}
		if cfg.Concurrency <= 0 {
			cfg.Concurrency = cfg.env.Check.Concurrency
		}

		prb, err := buildProbe(cfg)
		if err != nil {
			return usageErr(cmd, err)
		}
		resolver, err := buildPricing(cfg)
		if err != nil {
			return usageErr(cmd, err)
		}

		strategy := retry.StrategyFixed
		if cfg.Exponential {
			strategy = retry.StrategyExponential
		}

		cfg.checker = checker.New(checker.Config{
			Probe:   prb,
			Pricing: resolver,
			Retry: retry.Policy{
				MaxRetries: cfg.Retries,
				Timeout:    cfg.Timeout,
				Delay:      cfg.Backoff,
				Strategy:   strategy,
			},
			Concurrency: cfg.Concurrency,
			Logger:      log,
		})

		return nil
	}

	root.AddCommand(newCheckCmd(cfg))
	root.AddCommand(newTLDsCmd())

	return root
}

func setupLogging(cfg *cliConfig) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if cfg.env.App.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.env.App.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	switch {
	case cfg.Quiet:
		level = logrus.ErrorLevel
	case cfg.Verbose:
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	return logrus.NewEntry(log)
}

func buildProbe(cfg *cliConfig) (probe.Client, error) {
	rdapProbe := rdap.New(rdap.Options{Timeout: cfg.Timeout})
	whoisProbe := whois.New(whois.Options{Timeout: cfg.Timeout})
	dnsProbe := dnsprobe.New(dnsprobe.Options{
		Resolver: cfg.env.Check.DNSResolver,
		Timeout:  cfg.Timeout,
	})

	switch strings.ToLower(strings.TrimSpace(cfg.Probe)) {
	case "", "auto":
		return probe.NewChain(rdapProbe, whoisProbe), nil
	case "rdap":
		return rdapProbe, nil
	case "whois":
		return whoisProbe, nil
	case "dns":
		return dnsProbe, nil
	default:
		return nil, fmt.Errorf("unknown probe %q (use auto|rdap|whois|dns)", cfg.Probe)
	}
}

func buildPricing(cfg *cliConfig) (*pricing.Resolver, error) {
	choice := strings.ToLower(strings.TrimSpace(cfg.Pricing))
	if choice == "none" {
		return nil, nil
	}

	policyStr := cfg.PricePolicy
	if policyStr == "" {
		policyStr = cfg.env.Pricing.Policy
	}
	var policy pricing.SelectionPolicy
	switch strings.ToLower(strings.TrimSpace(policyStr)) {
	case "", "first-year":
		policy = pricing.SelectFirstYear
	case "total":
		policy = pricing.SelectTotal
	default:
		return nil, fmt.Errorf("unknown price policy %q (use first-year|total)", policyStr)
	}

	pc := cfg.env.Pricing
	var sources []pricing.Source

	wantPorkbun := choice == "porkbun" || choice == "" || choice == "auto"
	wantNamecheap := choice == "namecheap" || choice == "" || choice == "auto"

	if wantPorkbun && pc.PorkbunAPIKey != "" && pc.PorkbunSecretAPIKey != "" {
		c, err := porkbun.NewClient(porkbun.Options{
			APIKey:       pc.PorkbunAPIKey,
			SecretAPIKey: pc.PorkbunSecretAPIKey,
			Timeout:      cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, c)
	}
	if wantNamecheap && pc.NamecheapAPIUser != "" && pc.NamecheapAPIKey != "" {
		c, err := namecheap.NewClient(namecheap.Options{
			APIUser:  pc.NamecheapAPIUser,
			APIKey:   pc.NamecheapAPIKey,
			Username: pc.NamecheapUsername,
			ClientIP: pc.NamecheapClientIP,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, c)
	}

	switch choice {
	case "porkbun":
		if len(sources) == 0 {
			return nil, fmt.Errorf("missing Porkbun API keys (set PORKBUN_API_KEY and PORKBUN_SECRET_API_KEY)")
		}
	case "namecheap":
		if len(sources) == 0 {
			return nil, fmt.Errorf("missing Namecheap API credentials (set NAMECHEAP_API_USER and NAMECHEAP_API_KEY)")
		}
	case "", "auto":
		// No credentials just means no pricing.
	default:
		return nil, fmt.Errorf("unknown pricing %q (use auto|none|porkbun|namecheap)", cfg.Pricing)
	}

	if len(sources) == 0 {
		return nil, nil
	}
	return pricing.NewResolver(policy, sources...), nil
}
