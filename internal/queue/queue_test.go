package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lumenplay/gametrics/internal/report"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	q, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("queue database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	for i := 0; i < 3; i++ {
		q, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		q.Close()
	}

	q, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer q.Close()

	var name string
	err = q.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='reports'",
	).Scan(&name)
	if err != nil {
		t.Errorf("reports table not found after idempotent opens: %v", err)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
	}
	for name, expected := range checks {
		if err := q.verifyPragma(name, expected); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	var version int
	if err := q.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, expected %d", version, currentSchemaVersion)
	}

	// user_version is the only version record; no bookkeeping table exists.
	var n int
	err = q.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 0 {
		t.Error("unexpected schema_version table, versioning uses PRAGMA user_version")
	}
}

func sampleReport(sessionID string) *report.Report {
	return &report.Report{
		Session: &report.Session{GameName: "Puzzle", SessionID: sessionID, Timestamp: 1704067200000},
		Levels:  []report.Level{},
		RawData: map[string]any{},
	}
}

func TestAppend_PersistsCanonicalPayload(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	ctx := context.Background()
	rep := sampleReport("s1")
	if err := q.Append(ctx, "r-1", 1704067200000, rep); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	item, err := q.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	want, err := report.MarshalCanonical(rep)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	if string(item.Payload) != string(want) {
		t.Errorf("payload = %s, expected %s", item.Payload, want)
	}
	if item.FlushedAt != 1704067200000 {
		t.Errorf("flushed_at = %d, expected 1704067200000", item.FlushedAt)
	}
}

func TestAppend_IdempotentOnReportID(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	ctx := context.Background()
	if err := q.Append(ctx, "r-1", 1, sampleReport("s1")); err != nil {
		t.Fatalf("first Append() failed: %v", err)
	}
	if err := q.Append(ctx, "r-1", 2, sampleReport("s2")); err != nil {
		t.Fatalf("duplicate Append() failed: %v", err)
	}

	n, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, expected 1 (duplicate id silently ignored)", n)
	}

	// First write wins.
	item, err := q.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item.FlushedAt != 1 {
		t.Errorf("flushed_at = %d, expected 1", item.FlushedAt)
	}
}

func TestAppend_DistinctIDsAlwaysAppend(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	// Identical payloads under distinct ids both persist: the queue never
	// deduplicates by content.
	ctx := context.Background()
	for i, id := range []string{"r-1", "r-2", "r-3"} {
		if err := q.Append(ctx, id, int64(i+1), sampleReport("s1")); err != nil {
			t.Fatalf("Append(%s) failed: %v", id, err)
		}
	}

	n, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, expected 3", n)
	}
}

func TestList_OrderedByFlushTime(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	ctx := context.Background()
	// Insert out of order.
	if err := q.Append(ctx, "r-b", 200, sampleReport("s1")); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := q.Append(ctx, "r-a", 100, sampleReport("s1")); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	items, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List() returned %d items, expected 2", len(items))
	}
	if items[0].ReportID != "r-a" || items[1].ReportID != "r-b" {
		t.Errorf("order = [%s, %s], expected [r-a, r-b]", items[0].ReportID, items[1].ReportID)
	}
}

func TestList_EmptyQueueReturnsEmptySlice(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	items, err := q.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if items == nil {
		t.Error("List() returned nil, expected empty slice")
	}
	if len(items) != 0 {
		t.Errorf("List() returned %d items, expected 0", len(items))
	}
}

func TestGet_NotFound(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer q.Close()

	_, err = q.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, expected ErrNotFound", err)
	}
}

func TestQueue_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	q1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := q1.Append(ctx, "r-1", 100, sampleReport("s1")); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	q1.Close()

	q2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer q2.Close()

	n, err := q2.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after reopen = %d, expected 1", n)
	}
}
