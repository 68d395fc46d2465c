package catalogdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nico2sh/romst/internal/catalog"
)

// Store is a SQLite-backed catalog. It implements catalog.Store for readers
// and exposes an import path that replaces the whole catalog in one
// transaction.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetMachine returns the machine by name, or nil when unknown.
func (s *Store) GetMachine(ctx context.Context, name string) (*catalog.Machine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, clone_of, rom_of, sample_of, source_file,
		       is_device, runnable, description, year, manufacturer
		FROM machines WHERE name = ?`, name)

	var m catalog.Machine
	var isDevice, runnable int
	err := row.Scan(&m.Name, &m.CloneOf, &m.RomOf, &m.SampleOf, &m.SourceFile,
		&isDevice, &runnable, &m.Description, &m.Year, &m.Manufacturer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get machine %s: %w", name, err)
	}
	m.IsDevice = isDevice != 0
	m.Runnable = runnable != 0
	return &m, nil
}

// ListMachines returns every machine name in byte order.
func (s *Store) ListMachines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM machines ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PartsOf returns the machine's declared parts in catalog declaration order.
func (s *Store) PartsOf(ctx context.Context, machine string) ([]catalog.ContentPart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.kind, p.name, p.merge, c.crc, c.sha1, c.size, c.no_dump
		FROM machine_parts p
		JOIN contents c ON c.id = p.content_id
		WHERE p.machine = ?
		ORDER BY p.seq`, machine)
	if err != nil {
		return nil, fmt.Errorf("parts of %s: %w", machine, err)
	}
	defer rows.Close()

	var parts []catalog.ContentPart
	for rows.Next() {
		var (
			part      catalog.ContentPart
			kind      string
			crc, sha1 string
			noDump    int
		)
		if err := rows.Scan(&kind, &part.Name, &part.Merge, &crc, &sha1, &part.Size, &noDump); err != nil {
			return nil, err
		}
		part.Machine = machine
		part.Kind = catalog.PartKind(kind)
		part.NoDump = noDump != 0
		if !part.NoDump {
			part.Sum = catalog.NewChecksum(crc, sha1)
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

// SamplesOf returns the machine's declared sample names.
func (s *Store) SamplesOf(ctx context.Context, machine string) ([]string, error) {
	return s.listNames(ctx, "SELECT name FROM samples WHERE machine = ? ORDER BY name", machine)
}

// DeviceRefsOf returns the names of device machines the machine references.
func (s *Store) DeviceRefsOf(ctx context.Context, machine string) ([]string, error) {
	return s.listNames(ctx, "SELECT device FROM device_refs WHERE machine = ? ORDER BY device", machine)
}

func (s *Store) listNames(ctx context.Context, query, machine string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, machine)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Info returns the imported DAT header, or nil before any import.
func (s *Store) Info(ctx context.Context) (*catalog.DatInfo, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, description, version, category, comment FROM dat_info WHERE id = 1")

	var info catalog.DatInfo
	err := row.Scan(&info.Name, &info.Description, &info.Version, &info.Category, &info.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dat info: %w", err)
	}
	return &info, nil
}

var _ catalog.Store = (*Store)(nil)
