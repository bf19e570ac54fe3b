package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/dicetray/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dicetray/internal/storage"
	"github.com/louisbranch/dicetray/internal/storage/cursor"
	"github.com/louisbranch/dicetray/internal/storage/filter"
	"github.com/louisbranch/dicetray/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for roll history.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens and migrates a roll history SQLite store, creating the parent
// directory when needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := store.runMigrations(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutRoll inserts a roll and its groups in one transaction.
func (s *Store) PutRoll(ctx context.Context, record storage.RollRecord) (storage.RollRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.RollRecord{}, fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return storage.RollRecord{}, fmt.Errorf("roll id is required")
	}
	if len(record.Groups) == 0 {
		return storage.RollRecord{}, fmt.Errorf("roll %s has no groups", record.ID)
	}
	if record.RolledAt.IsZero() {
		record.RolledAt = s.now()
	}
	record.RolledAt = record.RolledAt.UTC().Truncate(time.Millisecond)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.RollRecord{}, fmt.Errorf("begin put roll: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO rolls (id, notation, seed, seed_source, d100_mode, total, group_count, rolled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Notation,
		record.Seed,
		record.SeedSource,
		record.D100Mode,
		record.Total,
		len(record.Groups),
		record.RolledAt.UnixMilli(),
	)
	if err != nil {
		return storage.RollRecord{}, fmt.Errorf("insert roll: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return storage.RollRecord{}, fmt.Errorf("read roll seq: %w", err)
	}

	for i, group := range record.Groups {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO roll_groups (roll_seq, position, notation, total, breakdown) VALUES (?, ?, ?, ?, ?)`,
			seq, i, group.Notation, group.Total, group.Breakdown,
		); err != nil {
			return storage.RollRecord{}, fmt.Errorf("insert roll group %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.RollRecord{}, fmt.Errorf("commit put roll: %w", err)
	}
	record.Seq = uint64(seq)
	return record, nil
}

// GetRoll loads a roll by id.
func (s *Store) GetRoll(ctx context.Context, id string) (storage.RollRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.RollRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	row := s.sqlDB.QueryRowContext(ctx, selectRolls+` WHERE id = ?`, id)
	record, err := scanRoll(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RollRecord{}, apperrors.WrapWithMetadata(
				apperrors.CodeNotFound,
				fmt.Sprintf("roll %s not found", id),
				map[string]string{"ID": id},
				storage.ErrNotFound,
			)
		}
		return storage.RollRecord{}, fmt.Errorf("get roll: %w", err)
	}
	records := []storage.RollRecord{record}
	if err := s.loadGroups(ctx, records); err != nil {
		return storage.RollRecord{}, err
	}
	return records[0], nil
}

// ListRolls returns one page of roll history ordered by sequence.
func (s *Store) ListRolls(ctx context.Context, query storage.ListQuery) (storage.RollPage, error) {
	if s == nil || s.sqlDB == nil {
		return storage.RollPage{}, fmt.Errorf("storage is not configured")
	}
	pageSize := query.PageSize
	switch {
	case pageSize < 0:
		return storage.RollPage{}, apperrors.WithMetadata(
			apperrors.CodeHistoryPageSizeInvalid,
			fmt.Sprintf("page size %d is negative", pageSize),
			map[string]string{"PageSize": fmt.Sprint(pageSize)},
		)
	case pageSize == 0:
		pageSize = storage.DefaultPageSize
	case pageSize > storage.MaxPageSize:
		pageSize = storage.MaxPageSize
	}

	cond, err := filter.ParseRollFilter(query.Filter)
	if err != nil {
		return storage.RollPage{}, err
	}

	orderBy := "seq"
	if query.Descending {
		orderBy = "seq DESC"
	}

	var clauses []string
	var params []any
	if cond.Clause != "" {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	if query.PageToken != "" {
		c, err := cursor.Parse(query.PageToken)
		if err == nil {
			err = c.Matches(query.Filter, query.Descending)
		}
		if err != nil {
			return storage.RollPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidPageToken, err)
		}
		clauses = append(clauses, c.Predicate())
		params = append(params, int64(c.Seq))
	}

	sqlQuery := selectRolls
	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlQuery += " ORDER BY " + orderBy + " LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return storage.RollPage{}, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RollRecord, 0, pageSize)
	for rows.Next() {
		record, err := scanRoll(rows)
		if err != nil {
			return storage.RollPage{}, fmt.Errorf("scan roll: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return storage.RollPage{}, fmt.Errorf("iterate rolls: %w", err)
	}

	page := storage.RollPage{}
	if len(records) > pageSize {
		records = records[:pageSize]
		page.NextPageToken = cursor.New(records[len(records)-1].Seq, query.Descending, query.Filter).Token()
	}
	if err := s.loadGroups(ctx, records); err != nil {
		return storage.RollPage{}, err
	}
	page.Records = records
	return page, nil
}

const selectRolls = `SELECT seq, id, notation, seed, seed_source, d100_mode, total, rolled_at FROM rolls`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoll(row scanner) (storage.RollRecord, error) {
	var record storage.RollRecord
	var seq int64
	var rolledAt int64
	if err := row.Scan(
		&seq,
		&record.ID,
		&record.Notation,
		&record.Seed,
		&record.SeedSource,
		&record.D100Mode,
		&record.Total,
		&rolledAt,
	); err != nil {
		return storage.RollRecord{}, err
	}
	record.Seq = uint64(seq)
	record.RolledAt = unixMillisToTime(rolledAt)
	return record, nil
}

// loadGroups fills Groups for each record, preserving group order.
func (s *Store) loadGroups(ctx context.Context, records []storage.RollRecord) error {
	if len(records) == 0 {
		return nil
	}
	bySeq := make(map[int64]int, len(records))
	placeholders := make([]string, len(records))
	params := make([]any, len(records))
	for i, record := range records {
		bySeq[int64(record.Seq)] = i
		placeholders[i] = "?"
		params[i] = int64(record.Seq)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT roll_seq, notation, total, breakdown FROM roll_groups
		 WHERE roll_seq IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY roll_seq, position`,
		params...,
	)
	if err != nil {
		return fmt.Errorf("list roll groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var group storage.GroupRecord
		if err := rows.Scan(&seq, &group.Notation, &group.Total, &group.Breakdown); err != nil {
			return fmt.Errorf("scan roll group: %w", err)
		}
		i := bySeq[seq]
		records[i].Groups = append(records[i].Groups, group)
	}
	return rows.Err()
}

// runMigrations applies the embedded schema migrations.
func (s *Store) runMigrations(ctx context.Context) error {
	return sqlitemigrate.ApplyFS(ctx, s.sqlDB, migrations.FS, ".")
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

var _ storage.RollStore = (*Store)(nil)
