package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yazzzuk/azure-service-bus-reader/internal/db"
)

// Subcommands over the capture store: list past runs, print a stored
// message, and full-text search captured bodies.

func newRunsCmd() *cobra.Command {
	var dbPath string
	var limit int64

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List captured peek runs, or the messages of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(dbPath, func(store db.Store) error {
				if len(args) == 0 {
					return listRuns(cmd.Context(), cmd.OutOrStdout(), store, limit)
				}
				runID, err := parseID(args[0])
				if err != nil {
					return err
				}
				return listRunMessages(cmd.Context(), cmd.OutOrStdout(), store, runID, limit)
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path")
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "maximum entries to list")
	return cmd
}

func newShowCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Print one captured message in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(dbPath, func(store db.Store) error {
				return showMessage(cmd.Context(), cmd.OutOrStdout(), store, id)
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var dbPath string
	var limit int64

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search captured message bodies and subjects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(dbPath, func(store db.Store) error {
				return searchMessages(cmd.Context(), cmd.OutOrStdout(), store, args[0], limit)
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path")
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "maximum matches to print")
	return cmd
}

// withStore opens the capture store, runs fn, and closes the store on
// every path.
func withStore(dbPath string, fn func(db.Store) error) (err error) {
	if dbPath == "" {
		_, cfg, cfgErr := loadConfig("")
		if cfgErr != nil {
			return cfgErr
		}
		dbPath = cfg.DBPath
	}
	store, err := db.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening capture store: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return fn(store)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, usageErrorf("invalid id %q", raw)
	}
	return id, nil
}

func listRuns(ctx context.Context, out io.Writer, store db.Store, limit int64) error {
	runs, err := store.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "[info] No captured runs.")
		return nil
	}
	for _, r := range runs {
		ended := "(running)"
		if r.EndedAt.Valid {
			ended = r.EndedAt.Time.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "#%d  %s  %s  started %s  ended %s\n",
			r.ID, r.Endpoint, r.QueueName,
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"), ended)
	}
	return nil
}

func listRunMessages(ctx context.Context, out io.Writer, store db.Store, runID, limit int64) error {
	msgs, err := store.ListMessagesByRun(ctx, runID, limit, 0)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintf(out, "[info] No messages captured for run %d.\n", runID)
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintln(out, summaryLine(m))
	}
	return nil
}

func showMessage(ctx context.Context, out io.Writer, store db.Store, id int64) error {
	m, err := store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "=== %s MESSAGE #%d (run %d) ===\n", m.SubQueue, m.Position, m.RunID)
	if m.Properties.Valid {
		fmt.Fprintln(out, m.Properties.String)
	}
	fmt.Fprintln(out, "-- body --")
	fmt.Fprintln(out, m.BodyText)
	return nil
}

func searchMessages(ctx context.Context, out io.Writer, store db.Store, query string, limit int64) error {
	msgs, err := store.SearchMessages(ctx, query, limit, 0)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintf(out, "[info] No matches for %q.\n", query)
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintln(out, summaryLine(m))
	}
	return nil
}

// summaryLine is one stored message as a single list row.
func summaryLine(m db.Message) string {
	subject := "(no subject)"
	if m.Subject.Valid && m.Subject.String != "" {
		subject = m.Subject.String
	}
	enqueued := ""
	if m.EnqueuedAt.Valid {
		enqueued = "  " + m.EnqueuedAt.Time.UTC().Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("#%d  run %d  %s #%d  %s%s", m.ID, m.RunID, m.SubQueue, m.Position, subject, enqueued)
}
