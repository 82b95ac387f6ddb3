package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lwm2m/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB, "pressure-001")
}

// fixedClock returns successive instants one second apart.
func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	records := []struct{ op, path, outcome, detail string }{
		{"write", "3323/1/5750", "ok", "Tank"},
		{"execute", "3323/1/5605", "ok", ""},
		{"write", "3323/1/5601", "failed", "capability mismatch"},
		{"create", "3323/2", "ok", ""},
		{"write", "1/0/1", "rejected", ""},
	}
	for _, r := range records {
		if err := repo.Record(ctx, r.op, r.path, r.outcome, r.detail); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 5 || len(all.Entries) != 5 || all.Limit != defaultLimit {
		t.Fatalf("List() = total %d, %d entries, limit %d", all.Total, len(all.Entries), all.Limit)
	}
	newest := all.Entries[0]
	if newest.Path != "1/0/1" || newest.Outcome != "rejected" || newest.Endpoint != "pressure-001" {
		t.Errorf("newest = %+v", newest)
	}
	if !strings.HasPrefix(newest.ID, "jnl-") || len(newest.ID) != 12 {
		t.Errorf("id = %q", newest.ID)
	}
	if want := time.Date(2026, 10, 17, 9, 0, 5, 0, time.UTC); !newest.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", newest.CreatedAt, want)
	}
	if all.Entries[4].Detail != "Tank" {
		t.Errorf("oldest detail = %q", all.Entries[4].Detail)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by operation", Filter{Operation: "write"}, 3},
		{"by outcome", Filter{Outcome: "ok"}, 3},
		{"exact path", Filter{Path: "3323/1/5750"}, 1},
		{"path prefix", Filter{Path: "3323/1/"}, 3},
		{"object prefix", Filter{Path: "3323/"}, 4},
		{"combined", Filter{Operation: "write", Outcome: "ok"}, 1},
		{"no match", Filter{Operation: "delete"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.want || len(res.Entries) != tt.want {
				t.Errorf("List(%+v) = %d/%d, want %d", tt.filter, res.Total, len(res.Entries), tt.want)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	repo := newTestRepo(t)
	repo.now = fixedClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	for range 7 {
		if err := repo.Record(ctx, "execute", "3323/1/5605", "ok", ""); err != nil {
			t.Fatal(err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 3, Offset: 6})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 7 || len(page.Entries) != 1 {
		t.Errorf("page = total %d, %d entries", page.Total, len(page.Entries))
	}

	clamped, _ := repo.List(ctx, Filter{Limit: 1000, Offset: -4})
	if clamped.Limit != maxLimit || clamped.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d", clamped.Limit, clamped.Offset)
	}
}

func TestList_EmptyIsNotNil(t *testing.T) {
	res, err := newTestRepo(t).List(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Entries == nil || res.Total != 0 {
		t.Errorf("empty list = %+v", res)
	}
}

func TestCreate_KeepsExplicitFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 600, time.FixedZone("CET", 3600))

	e := &Entry{ID: "jnl-custom", Endpoint: "other", Operation: "delete", Path: "3323/2", Outcome: "ok", CreatedAt: at}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}
	res, _ := repo.List(ctx, Filter{})
	got := res.Entries[0]
	if got.ID != "jnl-custom" || got.Endpoint != "other" || !got.CreatedAt.Equal(at) {
		t.Errorf("entry = %+v", got)
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	repo.now = fixedClock(start)
	ctx := context.Background()
	for range 4 {
		_ = repo.Record(ctx, "write", "1/0/1", "ok", "60")
	}

	n, err := repo.Prune(ctx, start.Add(2500*time.Millisecond))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	res, _ := repo.List(ctx, Filter{})
	if res.Total != 2 {
		t.Errorf("remaining = %d, want 2", res.Total)
	}
}
