package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no report exists under the id.
var ErrNotFound = errors.New("report not found")

// Item is one queued report as persisted.
type Item struct {
	// ReportID is the UUIDv7 assigned at flush time.
	ReportID string

	// FlushedAt is the flush wall-clock time in unix milliseconds.
	FlushedAt int64

	// Payload is the canonical report JSON exactly as stored.
	Payload []byte
}

// List returns all queued reports in flush order.
// Ordering is deterministic: ORDER BY flushed_at ASC, report_id ASC.
// Returns an empty slice (not nil) when the queue is empty.
func (q *Queue) List(ctx context.Context) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT report_id, flushed_at, payload
		FROM reports
		ORDER BY flushed_at ASC, report_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		var payload string
		if err := rows.Scan(&it.ReportID, &it.FlushedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		it.Payload = []byte(payload)
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return items, nil
}

// Get returns one queued report by id. Returns ErrNotFound when absent.
func (q *Queue) Get(ctx context.Context, reportID string) (Item, error) {
	var it Item
	var payload string
	err := q.db.QueryRowContext(ctx, `
		SELECT report_id, flushed_at, payload
		FROM reports
		WHERE report_id = ?
	`, reportID).Scan(&it.ReportID, &it.FlushedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("report %q: %w", reportID, ErrNotFound)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get report %q: %w", reportID, err)
	}
	it.Payload = []byte(payload)
	return it, nil
}
