package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tldscout/tldscout/internal/domain"
	"github.com/tldscout/tldscout/internal/tldset"
)

func newTLDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tlds",
		Short: "List the built-in TLD presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := domain.NewTabWriter(os.Stdout)
			fmt.Fprintln(tw, "PRESET\tTLDS")
			for _, name := range tldset.PresetNames() {
				tlds, _ := tldset.Preset(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(tlds, " "))
			}
			return tw.Flush()
		},
	}
}

func presetList() string {
	return strings.Join(tldset.PresetNames(), "|")
}
