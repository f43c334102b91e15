package queue

import (
	"context"
	"fmt"

	"github.com/lumenplay/gametrics/internal/report"
)

// Append persists one flushed report under its report id.
//
// The payload is stored in canonical JSON so a queue file is byte-stable
// across processes. Uses ON CONFLICT(report_id) DO NOTHING for idempotency -
// appending the same report id twice is silently ignored.
//
// This is the terminal fallback of the delivery chain: an error from Append
// means the report could not be persisted anywhere and is surfaced to the
// caller as a failed flush.
func (q *Queue) Append(ctx context.Context, reportID string, flushedAt int64, rep *report.Report) error {
	payload, err := report.MarshalCanonical(rep)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO reports (report_id, flushed_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(report_id) DO NOTHING
	`,
		reportID,
		flushedAt,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}

	return nil
}
