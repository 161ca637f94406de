package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"zonectl/internal/protocol"
	"zonectl/internal/repository"
	"zonectl/internal/service"

	"github.com/spf13/cobra"
)

// cliRun carries the flags shared by exec and send.
type cliRun struct {
	journal bool
	strict  bool
}

func (r *cliRun) bindFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.journal, "journal", false, "Record executions in the configured database")
	cmd.Flags().BoolVar(&r.strict, "strict", true, "Exit 1 when any command fails")
}

func newExecCmd(opts *globalOptions) *cobra.Command {
	run := &cliRun{}
	cmd := &cobra.Command{
		Use:   "exec NAME...",
		Short: "Execute commands from the table",
		Long:  `Looks each NAME up in the command table, sends it to the relay and prints one Result JSON line per command, in order.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.do(cmd, opts, func(ctx context.Context, d *service.Dispatcher) ([]protocol.Result, error) {
				results := make([]protocol.Result, 0, len(args))
				for _, name := range args {
					res, err := d.Execute(ctx, name)
					if err != nil {
						return results, err
					}
					results = append(results, res)
				}
				return results, nil
			})
		},
	}
	run.bindFlags(cmd)
	return cmd
}

// do builds the app and a dispatcher, runs fn and prints the results.
func (r *cliRun) do(cmd *cobra.Command, opts *globalOptions, fn func(context.Context, *service.Dispatcher) ([]protocol.Result, error)) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var repos *repository.Repository
	if r.journal {
		db, err := repository.InitDB(a.cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("init sqlite: %w", err)
		}
		defer db.Close()
		repos = repository.NewRepository(db)
	}

	d := newCLIDispatcher(a, repos)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := fn(service.WithSource(ctx, service.SourceCLI), d)
	if perr := printResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	if r.strict && anyFailed(results) {
		return errCommandsFailed
	}
	return nil
}

func newCLIDispatcher(a *app, repos *repository.Repository) *service.Dispatcher {
	opts := []service.DispatcherOption{service.WithDispatchLogger(a.log.Named("dispatcher"))}
	if repos == nil {
		return service.NewDispatcher(a.engine, nil, nil, opts...)
	}
	return service.NewDispatcher(a.engine, repos.Executions, repos.Zones, opts...)
}

// printResults writes one JSON object per line to out and a human summary to summary.
func printResults(out, summary io.Writer, results []protocol.Result) error {
	enc := json.NewEncoder(out)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
		fmt.Fprintf(summary, "%s zone=%d opcode=0x%02x: %s [%s]\n",
			res.Command, res.Zone, res.Opcode, res.Status(), protocol.CodeName(res.StatusCode))
	}
	return nil
}

func anyFailed(results []protocol.Result) bool {
	for _, r := range results {
		if !r.OK() {
			return true
		}
	}
	return false
}
