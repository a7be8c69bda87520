package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/room-allocation-api/internal/allocation"
)

func newDecisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Inspect mirrored decision logs",
	}
	cmd.AddCommand(newDecisionsReportCmd())
	return cmd
}

func newDecisionsReportCmd() *cobra.Command {
	var path, discipline string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate a JSONL decision log, including rotated files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := allocation.ReadJSONL(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no decision records found at %s", path)
			}
			report := allocation.BuildReport(records, discipline)
			payload, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "./logs/decisions.jsonl", "decision log written by the jsonl sink")
	cmd.Flags().StringVar(&discipline, "discipline", "", "restrict the report to one discipline code")
	return cmd
}
