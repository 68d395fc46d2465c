package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nico2sh/romst/internal/catalog/catalogdb"
	"github.com/nico2sh/romst/internal/query"
	"github.com/nico2sh/romst/internal/romset"
)

func newInfoCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Inspect the imported catalog",
	}
	cmd.AddCommand(newInfoSetCommand(cctx))
	cmd.AddCommand(newInfoUsageCommand(cctx))
	cmd.AddCommand(newInfoSharedCommand(cctx))
	cmd.AddCommand(newInfoDerivableCommand(cctx))
	cmd.AddCommand(newInfoStatsCommand(cctx))
	return cmd
}

func newInfoSetCommand(cctx *commandContext) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "set <machine>",
		Short: "Show a machine's effective content set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfoSet(cmd.Context(), cctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Set layout: split, merged or non-merged (defaults to configured mode)")
	return cmd
}

func runInfoSet(ctx context.Context, cctx *commandContext, out, errOut io.Writer, machine, mode string) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	if mode == "" {
		mode = cfg.Scan.Mode
	}
	policy, err := romset.ParsePolicy(mode)
	if err != nil {
		return err
	}

	store, err := cctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	resolver := romset.NewResolver(store)
	es, err := resolver.EffectiveSet(ctx, machine, policy)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s)\n", es.Machine, es.Policy)
	rows := make([][]string, 0, len(es.Parts))
	for _, p := range es.Parts {
		note := ""
		switch {
		case p.Unresolved:
			note = "unresolved"
		case p.Part.NoDump:
			note = "no dump"
		case p.Donor.Machine != "":
			note = "from " + p.Donor.String()
		}
		size := ""
		if !p.Part.NoDump {
			size = strconv.FormatInt(p.Part.Size, 10)
		}
		rows = append(rows, []string{
			string(p.Part.Kind), p.Part.Name, p.Where, size, p.Part.Sum.String(), note,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Kind", "Name", "In", "Size", "Checksum", "Note"}, rows, 3))
	for _, s := range es.Samples {
		fmt.Fprintf(out, "sample %s (in %s)\n", s.Name, s.Where)
	}
	for _, issue := range es.Issues {
		fmt.Fprintf(errOut, "warning: %v\n", issue)
	}
	return nil
}

func newInfoUsageCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage <machine> <part>",
		Short: "List other machines declaring the same content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, err := openQueryEngine(cmd.Context(), cctx)
			if err != nil {
				return err
			}
			defer store.Close()
			locs, err := engine.PartUsage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(locs) == 0 {
				fmt.Fprintf(out, "%s/%s is unique to its machine\n", args[0], args[1])
				return nil
			}
			for _, loc := range locs {
				fmt.Fprintln(out, loc)
			}
			return nil
		},
	}
	return cmd
}

func newInfoSharedCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shared",
		Short: "List content declared by more than one machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, err := openQueryEngine(cmd.Context(), cctx)
			if err != nil {
				return err
			}
			defer store.Close()
			shared := engine.SharedContent()
			rows := make([][]string, 0, len(shared))
			for _, sc := range shared {
				locs := ""
				for i, loc := range sc.Locations {
					if i > 0 {
						locs += ", "
					}
					locs += loc.String()
				}
				rows = append(rows, []string{sc.Key, strconv.Itoa(len(sc.Locations)), locs})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Checksum", "Copies", "Declared By"}, rows, 1))
			return nil
		},
	}
	return cmd
}

func newInfoDerivableCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derivable",
		Short: "List sets producible from an ancestor's archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, err := openQueryEngine(cmd.Context(), cctx)
			if err != nil {
				return err
			}
			defer store.Close()
			derivations, err := engine.DerivableSets(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(derivations))
			for _, d := range derivations {
				rows = append(rows, []string{d.Machine, d.Ancestor})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Machine", "Derivable From"}, rows))
			return nil
		},
	}
	return cmd
}

func newInfoStatsCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog-wide counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, store, err := openQueryEngine(ctx, cctx)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Info(ctx)
			if err != nil {
				return err
			}
			stats, err := engine.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", info.Name, info.Version)
			if info.Description != "" {
				fmt.Fprintln(out, info.Description)
			}
			rows := [][]string{
				{"Machines", humanize.Comma(int64(stats.Machines))},
				{"Device machines", humanize.Comma(int64(stats.DeviceMachines))},
				{"Parts", humanize.Comma(int64(stats.Parts))},
				{"Distinct checksums", humanize.Comma(int64(stats.DistinctChecksums))},
				{"No-dump parts", humanize.Comma(int64(stats.NoDumpParts))},
				{"Samples", humanize.Comma(int64(stats.Samples))},
				{"Device references", humanize.Comma(int64(stats.DeviceRefs))},
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, 1))
			return nil
		},
	}
	return cmd
}

func openQueryEngine(ctx context.Context, cctx *commandContext) (*query.Engine, *catalogdb.Store, error) {
	store, err := cctx.openStore()
	if err != nil {
		return nil, nil, err
	}
	if info, err := store.Info(ctx); err != nil {
		store.Close()
		return nil, nil, err
	} else if info == nil {
		store.Close()
		return nil, nil, fmt.Errorf("no catalog imported yet, run 'romst import' first")
	}
	index, err := romset.BuildIndex(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return query.New(store, index), store, nil
}
