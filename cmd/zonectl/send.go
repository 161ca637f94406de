package main

import (
	"context"
	"fmt"
	"strconv"

	"zonectl/internal/protocol"
	"zonectl/internal/service"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *globalOptions) *cobra.Command {
	run := &cliRun{}
	var name string

	cmd := &cobra.Command{
		Use:   "send ZONE OPCODE",
		Short: "Send a raw zone/opcode pair",
		Long:  `Sends an explicit [zone, opcode] frame without a table lookup. Both values are bytes in decimal or 0x-prefixed hex.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, err := parseByte("zone", args[0])
			if err != nil {
				return err
			}
			opcode, err := parseByte("opcode", args[1])
			if err != nil {
				return err
			}
			return run.do(cmd, opts, func(ctx context.Context, d *service.Dispatcher) ([]protocol.Result, error) {
				res, err := d.Send(ctx, zone, opcode, name)
				if err != nil {
					return nil, err
				}
				return []protocol.Result{res}, nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "RAW", "Label for the result and the journal")
	run.bindFlags(cmd)
	return cmd
}

func parseByte(field, s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a byte (0..255)", field, s)
	}
	return uint8(v), nil
}
