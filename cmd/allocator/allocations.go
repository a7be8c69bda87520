package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/bootstrap"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	"github.com/noah-isme/room-allocation-api/pkg/logger"
)

func newAllocationsCmd() *cobra.Command {
	var semester string
	cmd := &cobra.Command{
		Use:   "allocations",
		Short: "List the committed room allocations of a semester",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if semester == "" {
				return fmt.Errorf("--semester is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			app, err := bootstrap.New(ctx, cfg, logr)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logr.Warn("close failed", zap.Error(err))
				}
			}()

			rows, err := app.Committed.ListBySemester(ctx, semester)
			if err != nil {
				return fmt.Errorf("list allocations: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DEMAND\tDISCIPLINE\tROOM\tBLOCKS\tRUN")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.DemandID, row.DisciplineCode, row.RoomID, row.TimeBlocks, row.RunID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&semester, "semester", "s", "", "semester id")
	return cmd
}
