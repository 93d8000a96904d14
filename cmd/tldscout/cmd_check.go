package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tldscout/tldscout/internal/domain"
	"github.com/tldscout/tldscout/internal/tldset"
)

func newCheckCmd(cfg *cliConfig) *cobra.Command {
	var (
		tldsFlag string
		only     string
	)

	cmd := &cobra.Command{
		Use:   "check [base ...]",
		Short: "Check base labels against a TLD set",
		Long: `Check one or more base labels (e.g. "acme", not "acme.com") against a set
of TLDs. Bases are read from arguments and, when piped, from stdin. Results
come back in the requested TLD order regardless of which probe finished
first.`,
		Example: `  tldscout check acme
  tldscout check acme --tlds com,io,dev
  tldscout check acme --tlds tech --pricing none
  cat names.txt | tldscout check --ndjson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bases, err := readBasesFromArgsAndStdin(args, os.Stdin)
			if err != nil {
				return err
			}
			if len(bases) == 0 {
				return usageErr(cmd, fmt.Errorf("no base domains given (pass arguments or pipe them in)"))
			}

			tlds, err := tldset.Parse(tldsFlag)
			if err != nil {
				return usageErr(cmd, err)
			}

			filter, err := parseStatusFilter(only)
			if err != nil {
				return usageErr(cmd, err)
			}

			ctx := cmd.Context()
			if cfg.Deadline > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
				defer cancel()
			}

			w := newReportWriter(cfg.outFormat, os.Stdout, filter)
			errored := false
			for _, raw := range bases {
				base, err := domain.NormalizeBase(raw)
				if err != nil {
					return fmt.Errorf("invalid base %q: %w", raw, err)
				}
				report, err := cfg.checker.Check(ctx, base, tlds)
				if err != nil {
					return err
				}
				if err := w.Write(report); err != nil {
					return err
				}
				if report.Summary.Errored > 0 {
					errored = true
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if errored {
				return &cliError{Code: 3}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tldsFlag, "tlds", "popular",
		fmt.Sprintf("Comma list of TLDs, or a preset name (%s)", presetList()))
	cmd.Flags().StringVar(&only, "only", "",
		"Show only results with this status: available|taken|error")

	return cmd
}
