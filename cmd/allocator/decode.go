package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/room-allocation-api/pkg/timeblock"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode SCHEDULE",
		Short: "Print the time blocks of a raw schedule string",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			blocks, err := timeblock.Decode(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "canonical: %s\n", timeblock.Encode(blocks))
			for _, b := range blocks {
				fmt.Fprintf(out, "%s\tday=%d period=%s slot=%s\n", b, b.Day, b.Period, b.Slot)
			}
			return nil
		},
	}
}
