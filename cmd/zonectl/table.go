package main

import (
	"fmt"
	"text/tabwriter"

	"zonectl/internal/logger"

	"github.com/spf13/cobra"
)

func newTableCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the parsed command table",
		Long:  `Loads the configured command table and prints every definition in load order, followed by the rows that were skipped or flagged.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			table, anomalies, err := loadTable(cfg, logger.Get(cfg.Log.Level))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tZONE\tOPCODE")
			for _, def := range table.All() {
				fmt.Fprintf(w, "%s\t%d\t0x%02X\n", def.Name, def.Zone, def.Opcode)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, a := range anomalies {
				state := "flagged"
				if a.Skipped {
					state = "skipped"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "line %d %s: %v: %q\n", a.Line, state, a.Err, a.Raw)
			}
			return nil
		},
	}
}
