package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nico2sh/romst/internal/catalog/catalogdb"
	"github.com/nico2sh/romst/internal/datfile"
)

func newImportCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dat-file>",
		Short: "Import a DAT catalog into the database",
		Long:  "Parses a Logiqx/MAME DAT file and replaces the catalog database with its contents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runImport(ctx, cctx, cmd.OutOrStdout(), args[0])
		},
	}
	return cmd
}

func runImport(ctx context.Context, cctx *commandContext, out io.Writer, datPath string) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger := cctx.ensureLogger()

	// One importer at a time per database.
	lock := flock.New(cfg.Paths.DatabasePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another import is running against %s", cfg.Paths.DatabasePath)
	}
	defer func() { _ = lock.Unlock() }()

	file, err := os.Open(datPath)
	if err != nil {
		return fmt.Errorf("open dat file: %w", err)
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat dat file: %w", err)
	}

	store, err := catalogdb.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := store.BeginImport(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = writer.Rollback() }()

	bar := newByteBar(stat.Size(), "importing")
	importer := datfile.NewImporter(writer, datfile.Options{
		Logger: logger,
		Progress: func(offset int64, machines int) {
			_ = bar.Set64(offset)
		},
	})

	summary, err := importer.Import(ctx, file)
	if err != nil {
		return fmt.Errorf("import %s: %w", datPath, err)
	}
	if err := writer.Commit(); err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Fprintf(out, "Imported %s (%s)\n", datPath, humanize.Bytes(uint64(stat.Size())))
	fmt.Fprintf(out, "  Machines: %s\n", humanize.Comma(int64(summary.Machines)))
	fmt.Fprintf(out, "  Parts:    %s\n", humanize.Comma(int64(summary.Parts)))
	if summary.Skipped > 0 {
		fmt.Fprintf(out, "  Skipped:  %s malformed entries\n", humanize.Comma(int64(summary.Skipped)))
	}
	return nil
}

func newByteBar(size int64, description string) *progressbar.ProgressBar {
	if !stderrIsTerminal() {
		return progressbar.DefaultBytesSilent(size, description)
	}
	return progressbar.DefaultBytes(size, description)
}
