package catalogdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nico2sh/romst/internal/catalog"
)

// Writer loads a catalog into the store inside one transaction. An import
// replaces whatever catalog the database held before; readers keep seeing the
// old catalog until Commit.
type Writer struct {
	ctx context.Context
	tx  *sql.Tx

	insertMachine *sql.Stmt
	insertPart    *sql.Stmt
	insertContent *sql.Stmt
	insertSample  *sql.Stmt
	insertRef     *sql.Stmt

	// contentIDs dedups content rows by checksum pair.
	contentIDs map[string]int64
	machines   int
	parts      int
}

// BeginImport starts a replacing import. The caller must Commit or Rollback.
func (s *Store) BeginImport(ctx context.Context) (*Writer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}

	for _, table := range []string{"machine_parts", "samples", "device_refs", "machines", "contents", "dat_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	w := &Writer{ctx: ctx, tx: tx, contentIDs: make(map[string]int64)}
	if err := w.prepare(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return w, nil
}

func (w *Writer) prepare() error {
	var err error
	if w.insertMachine, err = w.tx.PrepareContext(w.ctx, `
		INSERT INTO machines (name, clone_of, rom_of, sample_of, source_file,
		                      is_device, runnable, description, year, manufacturer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		return fmt.Errorf("prepare machine insert: %w", err)
	}
	if w.insertContent, err = w.tx.PrepareContext(w.ctx,
		"INSERT INTO contents (crc, sha1, size, no_dump) VALUES (?, ?, ?, ?)"); err != nil {
		return fmt.Errorf("prepare content insert: %w", err)
	}
	if w.insertPart, err = w.tx.PrepareContext(w.ctx, `
		INSERT INTO machine_parts (machine, seq, kind, name, content_id, merge)
		VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		return fmt.Errorf("prepare part insert: %w", err)
	}
	if w.insertSample, err = w.tx.PrepareContext(w.ctx,
		"INSERT OR IGNORE INTO samples (machine, name) VALUES (?, ?)"); err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	if w.insertRef, err = w.tx.PrepareContext(w.ctx,
		"INSERT OR IGNORE INTO device_refs (machine, device) VALUES (?, ?)"); err != nil {
		return fmt.Errorf("prepare device ref insert: %w", err)
	}
	return nil
}

// Header records the DAT document header.
func (w *Writer) Header(info catalog.DatInfo) error {
	_, err := w.tx.ExecContext(w.ctx, `
		INSERT INTO dat_info (id, name, description, version, category, comment, imported_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, description = excluded.description,
			version = excluded.version, category = excluded.category,
			comment = excluded.comment, imported_at = excluded.imported_at`,
		info.Name, info.Description, info.Version, info.Category, info.Comment,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record dat info: %w", err)
	}
	return nil
}

// Machine stores one machine with its parts, samples, and device refs.
func (w *Writer) Machine(m catalog.Machine, parts []catalog.ContentPart, samples, deviceRefs []string) error {
	if _, err := w.insertMachine.ExecContext(w.ctx,
		m.Name, m.CloneOf, m.RomOf, m.SampleOf, m.SourceFile,
		boolInt(m.IsDevice), boolInt(m.Runnable), m.Description, m.Year, m.Manufacturer); err != nil {
		return fmt.Errorf("insert machine %s: %w", m.Name, err)
	}
	w.machines++

	for seq, part := range parts {
		contentID, err := w.contentID(part)
		if err != nil {
			return err
		}
		if _, err := w.insertPart.ExecContext(w.ctx,
			m.Name, seq, string(part.Kind), part.Name, contentID, part.Merge); err != nil {
			return fmt.Errorf("insert part %s/%s: %w", m.Name, part.Name, err)
		}
		w.parts++
	}

	for _, name := range samples {
		if _, err := w.insertSample.ExecContext(w.ctx, m.Name, name); err != nil {
			return fmt.Errorf("insert sample %s/%s: %w", m.Name, name, err)
		}
	}
	for _, device := range deviceRefs {
		if _, err := w.insertRef.ExecContext(w.ctx, m.Name, device); err != nil {
			return fmt.Errorf("insert device ref %s/%s: %w", m.Name, device, err)
		}
	}
	return nil
}

// contentID returns the shared content row for the part's checksum, creating
// it on first sight. No-dump parts always get a fresh row; they have no
// identity to share.
func (w *Writer) contentID(part catalog.ContentPart) (int64, error) {
	if !part.NoDump && !part.Sum.IsZero() {
		key := part.Sum.Key()
		if id, ok := w.contentIDs[key]; ok {
			return id, nil
		}
		res, err := w.insertContent.ExecContext(w.ctx, part.Sum.CRC, part.Sum.SHA1, part.Size, 0)
		if err != nil {
			return 0, fmt.Errorf("insert content %s: %w", part.Sum, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("content row id: %w", err)
		}
		w.contentIDs[key] = id
		return id, nil
	}

	res, err := w.insertContent.ExecContext(w.ctx, "", "", part.Size, 1)
	if err != nil {
		return 0, fmt.Errorf("insert no-dump content: %w", err)
	}
	return res.LastInsertId()
}

// Machines returns the number of machines written so far.
func (w *Writer) Machines() int { return w.machines }

// Parts returns the number of parts written so far.
func (w *Writer) Parts() int { return w.parts }

// Commit makes the imported catalog visible to readers.
func (w *Writer) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Rollback abandons the import, keeping the previous catalog intact.
func (w *Writer) Rollback() error {
	return w.tx.Rollback()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
