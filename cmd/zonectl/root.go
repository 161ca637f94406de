package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errCommandsFailed makes the process exit 1 without printing usage.
var errCommandsFailed = errors.New("one or more commands failed")

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	simulated  bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "zonectl",
		Short:         "zonectl drives the STM32 zone relay over UART",
		Long:          `zonectl sends two-byte [zone, opcode] requests to the STM32 relay and reports each acknowledgment, either one-shot from the shell or through an HTTP gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yml (default configs/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&opts.simulated, "simulated", false, "Use the simulated relay instead of the serial port")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newExecCmd(opts),
		newSendCmd(opts),
		newTableCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCommandsFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
