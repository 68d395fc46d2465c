package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nico2sh/romst/internal/romset"
	"github.com/nico2sh/romst/internal/scan"
)

func newCheckCommand(cctx *commandContext) *cobra.Command {
	var (
		romsDir string
		mode    string
		workers int
		verbose bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "check [directory]",
		Short: "Verify a ROM collection against the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			dir := romsDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runCheck(ctx, cctx, cmd.OutOrStdout(), dir, mode, workers, verbose, jsonOut)
		},
	}
	cmd.Flags().StringVar(&romsDir, "roms", "", "Directory holding the collection (defaults to configured roms directory)")
	cmd.Flags().StringVar(&mode, "mode", "", "Set layout: split, merged or non-merged (defaults to configured mode)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent verification workers (defaults to configured value)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-part detail for every set")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	return cmd
}

func runCheck(ctx context.Context, cctx *commandContext, out io.Writer, dir, mode string, workers int, verbose, jsonOut bool) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := cctx.ensureLogger()

	if dir == "" {
		dir = cfg.Paths.RomsDir
	}
	if dir == "" {
		return fmt.Errorf("no collection directory given and none configured")
	}
	if mode == "" {
		mode = cfg.Scan.Mode
	}
	policy, err := romset.ParsePolicy(mode)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.Scan.Workers
	}

	store, err := cctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if info, err := store.Info(ctx); err != nil {
		return err
	} else if info == nil {
		return fmt.Errorf("no catalog imported yet, run 'romst import' first")
	}

	index, err := romset.BuildIndex(ctx, store)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	progress := func(phase string, done, total int) {
		if !stderrIsTerminal() {
			return
		}
		if bar == nil || done == 1 {
			bar = progressbar.Default(int64(total), phase)
		}
		_ = bar.Set(done)
	}

	scanner := scan.NewScanner(store, index, scan.ScannerOptions{
		Workers:  workers,
		Logger:   logger,
		Progress: progress,
	})
	report, err := scanner.Run(ctx, dir, policy)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cancelled := errors.Is(err, context.Canceled)
	if report == nil {
		return err
	}

	if jsonOut {
		if werr := writeJSON(out, report); werr != nil {
			return werr
		}
	} else {
		if werr := scan.Render(out, report, verbose); werr != nil {
			return werr
		}
	}
	if cancelled {
		fmt.Fprintln(os.Stderr, "check interrupted, report is partial")
		return err
	}
	return nil
}
