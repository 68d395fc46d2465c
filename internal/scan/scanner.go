package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nico2sh/romst/internal/archive"
	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/hashes"
	"github.com/nico2sh/romst/internal/logging"
	"github.com/nico2sh/romst/internal/romset"
	"github.com/nico2sh/romst/internal/services"
)

// Progress receives phase updates during a run. Phases are "hash" and
// "verify"; done counts completed units out of total.
type Progress func(phase string, done, total int)

// ScannerOptions tunes a verification run.
type ScannerOptions struct {
	// Workers bounds concurrent hashing and verification. Zero means 1.
	Workers int
	Logger   *slog.Logger
	Progress Progress
	// Hash overrides the checksum function, for tests.
	Hash hashes.Func
}

// Scanner drives a full verification run: enumerate archives in a collection
// directory, hash every entry exactly once, then verify each recognized set
// concurrently. Sets are independent, so cancellation mid-run still yields a
// valid report covering the sets that finished.
type Scanner struct {
	store    catalog.Store
	verifier *Verifier
	workers  int
	logger   *slog.Logger
	progress Progress
	hash     hashes.Func
}

// NewScanner builds a scanner over the store and prebuilt index.
func NewScanner(store catalog.Store, index *romset.Index, opts ScannerOptions) *Scanner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	hash := opts.Hash
	if hash == nil {
		hash = hashes.Compute
	}
	return &Scanner{
		store:    store,
		verifier: NewVerifier(romset.NewResolver(store), index),
		workers:  workers,
		logger:   logging.NewComponentLogger(opts.Logger, "scanner"),
		progress: opts.Progress,
		hash:     hash,
	}
}

// Run verifies the collection directory against the catalog under the given
// policy. On cancellation the partial report gathered so far is returned
// together with the context error; the report is valid for the sets it
// contains.
func (s *Scanner) Run(ctx context.Context, dir string, policy romset.Policy) (*Report, error) {
	report := &Report{
		SessionID: uuid.NewString(),
		Policy:    policy,
		Started:   time.Now(),
	}
	ctx = services.WithRequestID(ctx, report.SessionID)
	logger := logging.WithContext(ctx, s.logger)

	sources, extras, err := archive.ScanDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "scanner", "scan", "enumerate collection", err)
	}
	report.UnknownFiles = append(report.UnknownFiles, extras...)

	logger.Info("collection enumerated",
		logging.String("dir", dir),
		logging.Int("archives", len(sources)),
		logging.Int("extras", len(extras)),
		logging.String("policy", policy.String()))

	view, known, err := s.hashSources(ctx, sources, policy, report, logger)
	if err != nil {
		if isCancel(err) {
			report.Finished = time.Now()
			report.Sort()
			return report, err
		}
		return nil, err
	}

	err = s.verifySets(ctx, known, policy, view, report, logger)
	report.Finished = time.Now()
	report.Sort()
	if err != nil {
		return report, err
	}

	totals := report.Totals()
	logger.Info("scan finished",
		logging.Int("sets", len(report.Sets)),
		logging.Int("complete", totals[SetComplete]),
		logging.Int("fixable", totals[SetFixable]),
		logging.Int("incomplete", totals[SetIncomplete]),
		logging.Int("errored", totals[SetErrored]),
		logging.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

// hashSources hashes every archive once into a shared view. Archives whose
// set name matches no catalog machine still feed the view as donor material,
// but their paths are reported as unknown. An archive that exists but cannot
// be read stays on its machine's report as an errored set; only unreadable
// archives of unrecognized sets land in the unknown list.
func (s *Scanner) hashSources(ctx context.Context, sources []archive.Source, policy romset.Policy, report *Report, logger *slog.Logger) (*CollectionView, []string, error) {
	view := NewCollectionView()
	known := make([]string, 0, len(sources))
	unknown := make([]string, 0)
	failures := make(map[string]string)

	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files, err := s.hashSource(gctx, source)

			mu.Lock()
			defer mu.Unlock()
			done++
			if s.progress != nil {
				s.progress("hash", done, len(sources))
			}
			if err != nil {
				if isCancel(err) {
					return err
				}
				logger.Warn("archive unreadable",
					logging.String("archive", source.Path),
					logging.Error(err))
				failures[source.Path] = err.Error()
				return nil
			}
			view.Add(source.SetName, source.Path, files)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return view, known, err
	}

	for _, source := range sources {
		cause, failed := failures[source.Path]
		if !failed && !view.HasSet(source.SetName) {
			continue
		}
		machine, err := s.store.GetMachine(ctx, source.SetName)
		if err != nil {
			return view, known, err
		}
		switch {
		case machine == nil:
			unknown = append(unknown, source.Path)
		case failed:
			report.Sets = append(report.Sets, SetReport{
				Machine: source.SetName,
				Policy:  policy,
				Archive: source.Path,
				Status:  SetErrored,
				Errors:  []string{"unreadable archive: " + cause},
			})
		default:
			known = append(known, source.SetName)
		}
	}
	report.UnknownFiles = append(report.UnknownFiles, unknown...)

	logger.Debug("collection hashed",
		logging.Int("known_sets", len(known)),
		logging.Int("unknown_archives", len(unknown)))
	return view, known, nil
}

func (s *Scanner) hashSource(ctx context.Context, source archive.Source) ([]HashedFile, error) {
	reader, err := source.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return HashArchive(ctx, reader, s.hash)
}

func (s *Scanner) verifySets(ctx context.Context, machines []string, policy romset.Policy, view *CollectionView, report *Report, logger *slog.Logger) error {
	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, machine := range machines {
		machine := machine
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mctx := services.WithMachine(gctx, machine)
			mctx = services.WithPhase(mctx, "verify")

			set, err := s.verifier.Verify(mctx, machine, view.FilesOf(machine), policy, view)
			if err != nil {
				if isCancel(err) {
					return err
				}
				logging.WithContext(mctx, logger).Error("verification failed", logging.Error(err))
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Sets = append(report.Sets, *set)
			done++
			if s.progress != nil {
				s.progress("verify", done, len(machines))
			}
			if set.Status != SetComplete {
				logging.WithContext(mctx, logger).Debug("set degraded",
					logging.String("status", string(set.Status)))
			}
			return nil
		})
	}
	return g.Wait()
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
