package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/tldscout/tldscout/internal/checker"
	"github.com/tldscout/tldscout/internal/domain"
	"github.com/tldscout/tldscout/internal/probe"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatNDJSON
	formatPlain
)

// resolveFormat maps the flag value to a format, defaulting to a table on a
// terminal and NDJSON when stdout is redirected.
func resolveFormat(s string, stdout *os.File) outputFormat {
	switch s {
	case "table":
		return formatTable
	case "json":
		return formatJSON
	case "ndjson":
		return formatNDJSON
	case "plain":
		return formatPlain
	}
	if term.IsTerminal(int(stdout.Fd())) {
		return formatTable
	}
	return formatNDJSON
}

// parseStatusFilter turns the --only value into a status, or "" for all.
func parseStatusFilter(s string) (probe.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "available":
		return probe.StatusAvailable, nil
	case "taken":
		return probe.StatusTaken, nil
	case "error":
		return probe.StatusError, nil
	default:
		return "", fmt.Errorf("unknown status %q (use available|taken|error)", s)
	}
}

// reportWriter renders batch reports in the chosen format. JSON buffers all
// reports and emits a single array on Flush; every other format streams.
type reportWriter struct {
	format outputFormat
	out    io.Writer
	filter probe.Status

	tw       *tabwriter.Writer
	buffered []*checker.Report
	wrote    bool
}

func newReportWriter(format outputFormat, out io.Writer, filter probe.Status) *reportWriter {
	w := &reportWriter{format: format, out: out, filter: filter}
	if format == formatTable {
		w.tw = domain.NewTabWriter(out)
	}
	return w
}

func (w *reportWriter) keep(r checker.DomainResult) bool {
	return w.filter == "" || r.Status == w.filter
}

func (w *reportWriter) Write(report *checker.Report) error {
	switch w.format {
	case formatJSON:
		w.buffered = append(w.buffered, report)
		return nil
	case formatNDJSON:
		enc := json.NewEncoder(w.out)
		for _, r := range report.Results {
			if !w.keep(r) {
				continue
			}
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case formatPlain:
		for _, r := range report.Results {
			if !w.keep(r) {
				continue
			}
			fmt.Fprintf(w.out, "%s\t%s\t%s\n", r.Domain, r.Status, plainDetail(r))
		}
		return nil
	default:
		return w.writeTable(report)
	}
}

func (w *reportWriter) writeTable(report *checker.Report) error {
	if w.wrote {
		fmt.Fprintln(w.tw)
	}
	w.wrote = true

	fmt.Fprintln(w.tw, "DOMAIN\tSTATUS\tMETHOD\tPRICE\tDETAILS")
	for _, r := range report.Results {
		if !w.keep(r) {
			continue
		}
		fmt.Fprintf(w.tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Domain, r.Status, r.CheckMethod, priceCell(r), detailCell(r))
	}
	fmt.Fprintf(w.tw, "\n%d available, %d taken, %d errored in %dms\n",
		report.Summary.Available, report.Summary.Taken, report.Summary.Errored,
		report.ExecutionMs)
	return nil
}

func (w *reportWriter) Flush() error {
	if w.tw != nil {
		return w.tw.Flush()
	}
	if w.format == formatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if len(w.buffered) == 1 {
			return enc.Encode(w.buffered[0])
		}
		return enc.Encode(w.buffered)
	}
	return nil
}

func priceCell(r checker.DomainResult) string {
	if r.Pricing == nil {
		return "-"
	}
	cur := r.Pricing.Currency
	if cur == "" {
		cur = "USD"
	}
	s := fmt.Sprintf("%.2f %s", r.Pricing.FirstYear, cur)
	if r.Pricing.Premium {
		s += " (premium)"
	}
	return s
}

func detailCell(r checker.DomainResult) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Pricing != nil && r.Pricing.Registrar != "":
		s := "via " + r.Pricing.Registrar
		if r.Pricing.Renewal > 0 {
			s += fmt.Sprintf(", renews %.2f", r.Pricing.Renewal)
		}
		return s
	case r.Note != "":
		return r.Note
	default:
		return "-"
	}
}

func plainDetail(r checker.DomainResult) string {
	if r.Error != "" {
		return r.Error
	}
	if r.Pricing != nil {
		return fmt.Sprintf("%.2f", r.Pricing.FirstYear)
	}
	return "-"
}
