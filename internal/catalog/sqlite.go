package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/datacatalog-cli/internal/sampler"
	"github.com/KaramelBytes/datacatalog-cli/internal/utils"
)

// sqliteStore keeps one row per file. Timestamps are stored as RFC3339Nano
// text and sample maps / profiles as JSON text.
type sqliteStore struct {
	db *sql.DB
}

const createEntries = `CREATE TABLE IF NOT EXISTS catalog_entries (
	id         TEXT PRIMARY KEY,
	folder     TEXT NOT NULL,
	file       TEXT NOT NULL,
	format     TEXT NOT NULL,
	samples    TEXT,
	profile    TEXT,
	created_at TEXT NOT NULL,
	UNIQUE (folder, file)
)`

func openSQLite(ctx context.Context, path string) (Store, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createEntries); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog table: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Put(ctx context.Context, e *Entry) error {
	var samples, profile sql.NullString
	if e.Samples != nil {
		b, err := json.Marshal(e.Samples)
		if err != nil {
			return fmt.Errorf("encode samples: %w", err)
		}
		samples = sql.NullString{String: string(b), Valid: true}
	}
	if len(e.Profile) > 0 {
		profile = sql.NullString{String: string(e.Profile), Valid: true}
	}
	// OR REPLACE relies on the UNIQUE (folder, file) constraint.
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO catalog_entries (id, folder, file, format, samples, profile, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Folder, e.File, e.Format, samples, profile, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put catalog entry: %w", err)
	}
	return nil
}

const selectEntries = `SELECT id, folder, file, format, samples, profile, created_at FROM catalog_entries`

func (s *sqliteStore) Get(ctx context.Context, folder, file string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE folder = ? AND file = ?`, folder, file)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(folder, file))
	}
	return e, err
}

func (s *sqliteStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntries+` ORDER BY folder, file`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var e Entry
	var samples, profile sql.NullString
	var created string
	if err := sc.Scan(&e.ID, &e.Folder, &e.File, &e.Format, &samples, &profile, &created); err != nil {
		return nil, err
	}
	if samples.Valid {
		e.Samples = &sampler.SampleMap{}
		if err := json.Unmarshal([]byte(samples.String), e.Samples); err != nil {
			return nil, fmt.Errorf("decode samples of %s: %w", e.File, err)
		}
	}
	if profile.Valid {
		e.Profile = json.RawMessage(profile.String)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", e.File, err)
	}
	e.CreatedAt = t
	return &e, nil
}
