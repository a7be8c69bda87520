package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/bootstrap"
	"github.com/noah-isme/room-allocation-api/internal/dto"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/logger"
)

type runOptions struct {
	semesters []string
	all       bool
	persist   bool
	export    string
	outDir    string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Allocate rooms for one or more semesters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAllocation(cmd, opts)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.semesters, "semester", "s", nil, "semester to allocate (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "allocate every semester with demands")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store the run and commit room allocations")
	cmd.Flags().StringVar(&opts.export, "export", "", "write each decision log as csv or json")
	cmd.Flags().StringVar(&opts.outDir, "out", ".", "directory for exported decision logs")
	return cmd
}

func (o *runOptions) validate() error {
	if len(o.semesters) == 0 && !o.all {
		return errors.New("at least one --semester or --all is required")
	}
	switch o.export {
	case "", dto.ExportFormatCSV, dto.ExportFormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", o.export)
	}
}

func runAllocation(cmd *cobra.Command, opts *runOptions) error {
	if err := opts.validate(); err != nil {
		return err
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

	semesters := opts.semesters
	if opts.all {
		semesters, err = app.Demands.ListSemesters(ctx)
		if err != nil {
			return fmt.Errorf("list semesters: %w", err)
		}
	}

	persist := opts.persist
	result, err := app.Allocations.Run(ctx, dto.RunAllocationRequest{SemesterIDs: semesters, Persist: &persist})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	aborted := 0
	for _, run := range result.Runs {
		fmt.Fprintf(out, "%s\t%s\t%s\tallocated %d/%d (%.1f%%)\n",
			run.SemesterID, run.RunID, run.Status, run.AllocatedCount, run.DemandCount, run.SuccessRate*100)
		if run.Status == models.AllocationRunStatusAborted {
			aborted++
			fmt.Fprintf(out, "\taborted: %s\n", run.AbortReason)
		}
		if opts.export != "" {
			path, err := exportRun(ctx, app, run.RunID, opts.export, opts.outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\tdecisions: %s\n", path)
		}
	}
	if aborted > 0 {
		return appErrors.Clone(appErrors.ErrRunAborted, fmt.Sprintf("%d of %d runs aborted", aborted, len(result.Runs)))
	}
	return nil
}

func exportRun(ctx context.Context, app *bootstrap.App, runID string, format, dir string) (string, error) {
	file, err := app.Allocations.Export(ctx, runID, dto.ExportQuery{Format: format})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, file.Filename)
	if err := os.WriteFile(path, file.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
