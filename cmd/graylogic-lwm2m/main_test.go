package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lwm2m/internal/journal"
	"github.com/nerrad567/gray-logic-lwm2m/migrations"
)

// writeConfig writes a standalone configuration: embedded broker on a free
// port, simulated sensor, database in a temp dir.
func writeConfig(t *testing.T) (path, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "lwm2m.db")
	content := `
client:
  endpoint: "pressure-test"
  lifetime: 30
database:
  enabled: true
  path: "` + dbPath + `"
mqtt:
  broker:
    client_id: "pressure-test"
  embedded:
    enabled: true
    host: "127.0.0.1"
    port: 0
logging:
  level: error
  format: text
`
	path = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path, dbPath
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "graylogic-lwm2m dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, "/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_InvalidDatabasePath(t *testing.T) {
	path, _ := writeConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAYLOGIC_DATABASE_PATH", filepath.Join(blocker, "sub", "lwm2m.db"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := run(ctx, path)
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("run() error = %v, want database failure", err)
	}
}

func TestRun_StandaloneShutsDownCleanly(t *testing.T) {
	path, dbPath := writeConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := run(ctx, path); err != nil {
		t.Fatalf("run() error = %v, want nil on shutdown", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestObjectsCommand(t *testing.T) {
	path, _ := writeConfig(t)
	out, err := execute(t, context.Background(), "objects", "--config", path)
	if err != nil {
		t.Fatalf("objects error = %v", err)
	}
	for _, want := range []string{"/0", "/1", "/3", "/3323", "/3/0/0", "/3323/1/5700", "Sensor Units"} {
		if !strings.Contains(out, want) {
			t.Errorf("objects output lacks %q:\n%s", want, out)
		}
	}
}

func TestJournalCommand(t *testing.T) {
	path, dbPath := writeConfig(t)

	db, err := database.Open(config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		t.Fatal(err)
	}
	repo := journal.NewSQLiteRepository(db.DB, "pressure-test")
	_ = repo.Record(ctx, "write", "3323/1/5701", "ok", "kPa")
	_ = repo.Record(ctx, "execute", "3323/1/5605", "ok", "")
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, ctx, "journal", "--config", path, "--op", "write")
	if err != nil {
		t.Fatalf("journal error = %v", err)
	}
	if !strings.Contains(out, "3323/1/5701") || strings.Contains(out, "3323/1/5605") {
		t.Errorf("journal output = %q", out)
	}
	if !strings.Contains(out, "1 of 1 entries") {
		t.Errorf("journal output = %q", out)
	}
}

func TestJournalCommand_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  enabled: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, context.Background(), "journal", "--config", path); err == nil {
		t.Error("journal succeeded with the database disabled")
	}
}
