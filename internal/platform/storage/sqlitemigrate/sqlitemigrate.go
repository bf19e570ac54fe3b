// Package sqlitemigrate applies versioned SQL migrations to SQLite databases.
//
// Migration files are named NNN_description.sql. Only the section after a
// "-- +migrate Up" marker (up to an optional "-- +migrate Down" marker) is
// executed. Every applied version is recorded with a checksum of its SQL so
// that an edited migration is reported instead of silently skipped.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	table      = "schema_migrations"
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrChecksumMismatch reports an applied migration whose SQL changed.
var ErrChecksumMismatch = errors.New("applied migration was modified")

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// Checksum fingerprints the Up SQL.
func (m Migration) Checksum() string {
	return strconv.FormatUint(xxhash.Sum64String(strings.TrimSpace(m.Up)), 16)
}

// Applied is a migration recorded in the database.
type Applied struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Load reads the migrations in dir of fsys ordered by version. Non-SQL
// files are ignored; duplicate versions are an error.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseVersion(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, entry.Name(), version)
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: entry.Name(), Up: UpSection(string(content))})
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// Apply runs every migration not yet recorded, each in its own transaction,
// and returns how many ran. Recorded migrations are checked against their
// checksum.
func Apply(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	if db == nil {
		return 0, errors.New("sql db is required")
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    checksum TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return 0, fmt.Errorf("ensure migration table: %w", err)
	}

	applied, err := List(ctx, db)
	if err != nil {
		return 0, err
	}
	done := make(map[int]Applied, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	ran := 0
	for _, m := range migrations {
		if prev, ok := done[m.Version]; ok {
			if prev.Checksum != m.Checksum() {
				return ran, fmt.Errorf("%w: %s", ErrChecksumMismatch, m.Name)
			}
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// ApplyFS loads the migrations in dir of fsys and applies them.
func ApplyFS(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return err
	}
	_, err = Apply(ctx, db, migrations)
	return err
}

// List returns the recorded migrations ordered by version.
func List(ctx context.Context, db *sql.DB) ([]Applied, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, name, checksum, applied_at FROM "+table+" ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		var appliedAt int64
		if err := rows.Scan(&a.Version, &a.Name, &a.Checksum, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		a.AppliedAt = time.UnixMilli(appliedAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpSection returns the SQL between the Up and Down markers. Content
// without an Up marker is returned whole.
func UpSection(content string) string {
	_, up, ok := strings.Cut(content, upMarker)
	if !ok {
		return content
	}
	up, _, _ = strings.Cut(up, downMarker)
	return up
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if strings.TrimSpace(m.Up) != "" {
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("exec migration %s: %w", m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)",
		m.Version, m.Name, m.Checksum(), time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Name, err)
	}
	return nil
}

func parseVersion(name string) (int, error) {
	prefix, _, _ := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("migration %s: name must start with a positive version", name)
	}
	return version, nil
}
