package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
	"github.com/louisbranch/dicetray/internal/storage"
	_ "modernc.org/sqlite"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dicetray.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	assertTableExists(t, sqlDB, "rolls")
	assertTableExists(t, sqlDB, "roll_groups")
}

func TestPutAndGetRoll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rolledAt := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

	put, err := store.PutRoll(ctx, storage.RollRecord{
		ID:         "roll-1",
		Notation:   "3d6+2 1d20",
		Seed:       42,
		SeedSource: "CLIENT",
		D100Mode:   1,
		Total:      27,
		Groups: []storage.GroupRecord{
			{Notation: "3d6+2", Total: 13, Breakdown: "3d6[2,5,4] + 2 = 13"},
			{Notation: "1d20", Total: 14, Breakdown: "1d20[14] = 14"},
		},
		RolledAt: rolledAt,
	})
	if err != nil {
		t.Fatalf("put roll: %v", err)
	}
	if put.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", put.Seq)
	}

	got, err := store.GetRoll(ctx, "roll-1")
	if err != nil {
		t.Fatalf("get roll: %v", err)
	}
	if got.Notation != "3d6+2 1d20" || got.Seed != 42 || got.SeedSource != "CLIENT" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.D100Mode != 1 || got.Total != 27 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if !got.RolledAt.Equal(rolledAt.Truncate(time.Millisecond)) {
		t.Fatalf("expected rolled at %v, got %v", rolledAt, got.RolledAt)
	}
	if len(got.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got.Groups))
	}
	if got.Groups[0].Notation != "3d6+2" || got.Groups[1].Breakdown != "1d20[14] = 14" {
		t.Fatalf("unexpected groups: %+v", got.Groups)
	}
}

func TestPutRollRequiresIDAndGroups(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.PutRoll(ctx, storage.RollRecord{Groups: []storage.GroupRecord{{Notation: "1d6"}}}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := store.PutRoll(ctx, storage.RollRecord{ID: "r"}); err == nil {
		t.Fatal("expected error for missing groups")
	}
}

func TestPutRollRejectsDuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	putRoll(t, store, "dup", 3)
	if _, err := store.PutRoll(ctx, rollRecord("dup", 4)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestGetRollNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetRoll(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := apperrors.GetMetadata(err)["ID"]; got != "missing" {
		t.Fatalf("expected id metadata, got %q", got)
	}
}

func TestListRollsPaginatesAscending(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		putRoll(t, store, fmt.Sprintf("roll-%d", i), i)
	}

	page, err := store.ListRolls(ctx, storage.ListQuery{PageSize: 2})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	assertIDs(t, page.Records, "roll-1", "roll-2")
	if page.NextPageToken == "" {
		t.Fatal("expected next page token")
	}

	page, err = store.ListRolls(ctx, storage.ListQuery{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	assertIDs(t, page.Records, "roll-3", "roll-4")

	page, err = store.ListRolls(ctx, storage.ListQuery{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list last page: %v", err)
	}
	assertIDs(t, page.Records, "roll-5")
	if page.NextPageToken != "" {
		t.Fatalf("expected no next page token, got %q", page.NextPageToken)
	}
	if len(page.Records[0].Groups) != 1 {
		t.Fatalf("expected groups loaded, got %+v", page.Records[0])
	}
}

func TestListRollsDescending(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		putRoll(t, store, fmt.Sprintf("roll-%d", i), i)
	}

	page, err := store.ListRolls(ctx, storage.ListQuery{PageSize: 2, Descending: true})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	assertIDs(t, page.Records, "roll-3", "roll-2")

	page, err = store.ListRolls(ctx, storage.ListQuery{PageSize: 2, Descending: true, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	assertIDs(t, page.Records, "roll-1")
}

func TestListRollsFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		putRoll(t, store, fmt.Sprintf("roll-%d", i), i*5)
	}

	page, err := store.ListRolls(ctx, storage.ListQuery{Filter: "total > 15"})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	assertIDs(t, page.Records, "roll-4", "roll-5", "roll-6")
}

func TestListRollsRejectsInvalidInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		putRoll(t, store, fmt.Sprintf("roll-%d", i), i)
	}

	if _, err := store.ListRolls(ctx, storage.ListQuery{PageSize: -1}); !apperrors.IsCode(err, apperrors.CodeHistoryPageSizeInvalid) {
		t.Fatalf("expected page size error, got %v", err)
	}
	if _, err := store.ListRolls(ctx, storage.ListQuery{Filter: "bogus = 1"}); !apperrors.IsCode(err, apperrors.CodeHistoryFilterInvalid) {
		t.Fatalf("expected filter error, got %v", err)
	}
	if _, err := store.ListRolls(ctx, storage.ListQuery{PageToken: "not-a-token"}); !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected page token error, got %v", err)
	}

	page, err := store.ListRolls(ctx, storage.ListQuery{PageSize: 1})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	_, err = store.ListRolls(ctx, storage.ListQuery{PageSize: 1, PageToken: page.NextPageToken, Filter: "total > 1"})
	if !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected page token error for changed filter, got %v", err)
	}
	_, err = store.ListRolls(ctx, storage.ListQuery{PageSize: 1, PageToken: page.NextPageToken, Descending: true})
	if !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("expected page token error for changed order, got %v", err)
	}
}

func TestListRollsClampsPageSize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= storage.MaxPageSize+1; i++ {
		putRoll(t, store, fmt.Sprintf("roll-%03d", i), i)
	}

	page, err := store.ListRolls(ctx, storage.ListQuery{PageSize: storage.MaxPageSize * 2})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	if len(page.Records) != storage.MaxPageSize {
		t.Fatalf("expected %d records, got %d", storage.MaxPageSize, len(page.Records))
	}

	page, err = store.ListRolls(ctx, storage.ListQuery{})
	if err != nil {
		t.Fatalf("list rolls: %v", err)
	}
	if len(page.Records) != storage.DefaultPageSize {
		t.Fatalf("expected %d records, got %d", storage.DefaultPageSize, len(page.Records))
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "dicetray.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func rollRecord(id string, total int) storage.RollRecord {
	notation := fmt.Sprintf("1d6+%d", total)
	return storage.RollRecord{
		ID:         id,
		Notation:   notation,
		Seed:       int64(total),
		SeedSource: "SERVER",
		Total:      total,
		Groups: []storage.GroupRecord{
			{Notation: notation, Total: total, Breakdown: fmt.Sprintf("%s = %d", notation, total)},
		},
		RolledAt: time.Date(2026, 3, 1, 12, 0, total, 0, time.UTC),
	}
}

func putRoll(t *testing.T, store *Store, id string, total int) {
	t.Helper()
	if _, err := store.PutRoll(context.Background(), rollRecord(id, total)); err != nil {
		t.Fatalf("put roll %s: %v", id, err)
	}
}

func assertIDs(t *testing.T, records []storage.RollRecord, want ...string) {
	t.Helper()
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("record %d: expected %s, got %s", i, id, records[i].ID)
		}
	}
}

func assertTableExists(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	var got string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&got)
	if err != nil {
		t.Fatalf("table %s missing: %v", name, err)
	}
}
