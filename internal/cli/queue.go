package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumenplay/gametrics/internal/queue"
	"github.com/lumenplay/gametrics/internal/schema"
)

// QueueOptions holds flags shared by the queue subcommands.
type QueueOptions struct {
	*RootOptions
	Database string
}

// QueueItemSummary is the listing row for one queued report.
type QueueItemSummary struct {
	ReportID  string `json:"report_id"`
	FlushedAt int64  `json:"flushed_at"`
	Bytes     int    `json:"bytes"`
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the durable fallback queue",
		Long: `Inspect reports persisted to the durable fallback queue.

The queue holds reports that no live delivery channel accepted. The collector
never prunes it; draining is the embedding application's responsibility.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the queue SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newQueueLsCommand(opts))
	cmd.AddCommand(newQueueShowCommand(opts))
	cmd.AddCommand(newQueueVerifyCommand(opts))

	return cmd
}

func newQueueLsCommand(opts *QueueOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls",
		Short:         "List queued reports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := openQueue(opts.Database)
			if err != nil {
				return err
			}
			defer q.Close()

			items, err := q.List(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list queue", err)
			}

			if opts.Format == "json" {
				summaries := make([]QueueItemSummary, len(items))
				for i, it := range items {
					summaries[i] = QueueItemSummary{
						ReportID:  it.ReportID,
						FlushedAt: it.FlushedAt,
						Bytes:     len(it.Payload),
					}
				}
				f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(summaries)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}
			for _, it := range items {
				flushed := time.UnixMilli(it.FlushedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d bytes\n", it.ReportID, flushed, len(it.Payload))
			}
			return nil
		},
	}
}

func newQueueShowCommand(opts *QueueOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <report-id>",
		Short:         "Dump one queued report payload",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := openQueue(opts.Database)
			if err != nil {
				return err
			}
			defer q.Close()

			item, err := q.Get(cmd.Context(), args[0])
			if errors.Is(err, queue.ErrNotFound) {
				return WrapExitError(ExitCommandError, "report not found", err)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read report", err)
			}

			// Payloads are stored canonically compact; indent for humans.
			if opts.Format == "text" {
				var tree any
				if err := json.Unmarshal(item.Payload, &tree); err == nil {
					pretty, err := json.MarshalIndent(tree, "", "  ")
					if err == nil {
						fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
						return nil
					}
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(item.Payload))
			return nil
		},
	}
}

func newQueueVerifyCommand(opts *QueueOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Validate every queued payload against the report schema",
		Long: `Validate every queued payload against the report schema.

Exit codes:
  0 - All payloads valid
  1 - One or more payloads violate the schema
  2 - Command error (database not found, etc.)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := openQueue(opts.Database)
			if err != nil {
				return err
			}
			defer q.Close()

			return verifyQueue(cmd.Context(), cmd, opts, q)
		},
	}
}

// VerifyResult is the JSON output shape of queue verify.
type VerifyResult struct {
	Total   int      `json:"total"`
	Valid   int      `json:"valid"`
	Invalid []string `json:"invalid,omitempty"`
}

func verifyQueue(ctx context.Context, cmd *cobra.Command, opts *QueueOptions, q *queue.Queue) error {
	items, err := q.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list queue", err)
	}

	result := VerifyResult{Total: len(items)}
	for _, it := range items {
		if err := schema.Validate(it.Payload); err != nil {
			result.Invalid = append(result.Invalid, it.ReportID)
			if opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "INVALID %s: %v\n", it.ReportID, err)
			}
			continue
		}
		result.Valid++
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d payloads valid\n", result.Valid, result.Total)
	}

	if len(result.Invalid) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid payloads", len(result.Invalid)))
	}
	return nil
}

func openQueue(path string) (*queue.Queue, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("queue database not found: %s", path))
	}
	q, err := queue.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open queue database", err)
	}
	return q, nil
}
