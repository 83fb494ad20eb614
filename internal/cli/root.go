// Package cli wires flags, config, and the peek pipeline into the
// sbpeek command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yazzzuk/azure-service-bus-reader/internal/config"
	"github.com/yazzzuk/azure-service-bus-reader/internal/connstring"
	"github.com/yazzzuk/azure-service-bus-reader/internal/db"
	"github.com/yazzzuk/azure-service-bus-reader/internal/peek"
	"github.com/yazzzuk/azure-service-bus-reader/internal/proto"
	"github.com/yazzzuk/azure-service-bus-reader/internal/render"
	"github.com/yazzzuk/azure-service-bus-reader/internal/tui"
	"github.com/yazzzuk/azure-service-bus-reader/internal/xdg"
)

// UsageError marks operator mistakes (bad flags, missing arguments) that
// the binary reports with the usage exit code.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

type rootOptions struct {
	queue      string
	max        int
	maxSet     bool
	activeOnly bool
	dlqOnly    bool
	profile    string
	capture    bool
	dbPath     string
	protoPath  string
	tui        bool
}

// Execute runs the sbpeek command tree.
func Execute(ctx context.Context, version string) error {
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "sbpeek [connection-string]",
		Short: "Peek Azure Service Bus queue messages without consuming them",
		Long: `sbpeek connects to an Azure Service Bus namespace and peeks the
pending messages of a queue's active and dead-letter sub-queues,
printing each one as readable JSON. Peeking never completes,
dead-letters, or publishes messages.

The connection string is taken from the positional argument, from the
selected --profile, or from SERVICEBUS_CONNECTION_STRING.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.maxSet = cmd.Flags().Changed("max")
			return runPeek(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.queue, "queue", "q", "", "queue name (overrides EntityPath)")
	fl.IntVarP(&opts.max, "max", "n", peek.DefaultMax, "maximum messages to peek per sub-queue")
	fl.BoolVar(&opts.activeOnly, "active-only", false, "peek only the active queue")
	fl.BoolVar(&opts.dlqOnly, "dlq-only", false, "peek only the dead-letter queue")
	fl.StringVarP(&opts.profile, "profile", "p", "", "named connection profile from config.toml")
	fl.BoolVar(&opts.capture, "capture", false, "record the peeked messages to the local database")
	fl.StringVar(&opts.dbPath, "db", "", "database path (implies --capture)")
	fl.StringVar(&opts.protoPath, "proto", "", "directory of .proto files for binary body decoding")
	fl.BoolVar(&opts.tui, "tui", false, "browse the results interactively after peeking")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newSearchCmd())

	return cmd
}

func runPeek(ctx context.Context, out, errOut io.Writer, args []string, opts rootOptions) (err error) {
	if opts.activeOnly && opts.dlqOnly {
		return usageErrorf("--active-only and --dlq-only are mutually exclusive")
	}

	fileCfg, cfg, err := loadConfig(opts.profile)
	if err != nil {
		return err
	}
	if opts.profile != "" {
		if _, ok := fileCfg.Profiles[opts.profile]; !ok {
			return usageErrorf("unknown profile %q (known: %s)",
				opts.profile, strings.Join(fileCfg.ProfileNames(), ", "))
		}
	}

	connStr := cfg.ConnectionString
	if len(args) > 0 {
		connStr = args[0]
	}
	if connStr == "" {
		return usageErrorf("no connection string: pass it as an argument, select a --profile, or set SERVICEBUS_CONNECTION_STRING")
	}

	queue := opts.queue
	if queue == "" {
		queue = cfg.Queue
	}
	max := opts.max
	if !opts.maxSet && cfg.Max > 0 {
		max = cfg.Max
	}

	// Validate the connection string and queue before touching the
	// network or the capture store.
	_, entity, err := connstring.Parse(connStr)
	if err != nil {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	queueName, err := peek.ResolveQueue(queue, entity)
	if err != nil {
		return err
	}

	renderer, err := buildRenderer(errOut, opts.protoPath, cfg.ProtoPath)
	if err != nil {
		return err
	}

	var sinks []peek.Sink
	if opts.capture || opts.dbPath != "" {
		dbPath := opts.dbPath
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		store, err := db.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening capture store: %w", err)
		}
		defer func() {
			err = errors.Join(err, store.Close())
		}()

		sink, finish, err := captureSink(ctx, store, errOut, connStr, queueName)
		if err != nil {
			return fmt.Errorf("starting capture run: %w", err)
		}
		defer finish()
		sinks = append(sinks, sink)
	}

	summary, err := peek.Run(ctx, peek.Options{
		ConnectionString: connStr,
		Queue:            queue,
		Max:              max,
		ActiveOnly:       opts.activeOnly,
		DLQOnly:          opts.dlqOnly,
		Renderer:         renderer,
		Out:              out,
		Sinks:            sinks,
	})
	if err != nil {
		return err
	}

	if opts.tui && len(summary.Messages) > 0 {
		title := fmt.Sprintf("sbpeek %s @ %s", summary.Queue, connstring.Endpoint(connStr))
		return tui.Run(summary.Messages, title)
	}
	return nil
}

// loadConfig loads the TOML config from the XDG config dir and resolves
// the requested profile.
func loadConfig(profile string) (*config.FileConfig, config.Config, error) {
	configDir, err := xdg.Dir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("resolving config directory: %w", err)
	}
	fileCfg, err := config.LoadFileConfig(configDir)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return fileCfg, fileCfg.Resolve(profile, configDir), nil
}

// buildRenderer attaches the protobuf decoder when a proto dir is
// configured. The flag wins over the config file.
func buildRenderer(errOut io.Writer, flagPath, cfgPath string) (render.Renderer, error) {
	path := flagPath
	if path == "" {
		path = cfgPath
	}
	if path == "" {
		return render.Renderer{}, nil
	}

	dec, err := proto.NewDecoder(path)
	if err != nil {
		return render.Renderer{}, fmt.Errorf("loading proto files: %w", err)
	}
	for _, pe := range dec.ParseErrors() {
		fmt.Fprintf(errOut, "[info] skipped proto file: %s\n", pe)
	}
	return render.Renderer{Binary: dec}, nil
}

// captureSink begins a capture run and returns a sink that stores every
// rendered message, plus a finish func that stamps the run's end time.
// Insert failures are reported but never interrupt the peek.
func captureSink(ctx context.Context, store db.Store, errOut io.Writer, connStr, queueName string) (peek.Sink, func(), error) {
	runID, err := store.BeginRun(ctx, connstring.Endpoint(connStr), queueName)
	if err != nil {
		return nil, nil, err
	}

	sink := func(rm render.Message) {
		rec := &db.MessageRecord{
			RunID:      runID,
			SubQueue:   rm.SubQueue,
			Position:   rm.Index,
			Properties: rm.Props,
			BodyText:   rm.Body,
		}
		if raw := rm.Raw; raw != nil {
			rec.SequenceNumber = raw.SequenceNumber
			if raw.MessageID != nil {
				rec.MessageID = *raw.MessageID
			}
			if raw.Subject != nil {
				rec.Subject = *raw.Subject
			}
			if raw.ContentType != nil {
				rec.ContentType = *raw.ContentType
			}
			if raw.EnqueuedTime != nil {
				rec.EnqueuedAt = *raw.EnqueuedTime
			}
			if raw.DeadLetterReason != nil {
				rec.DeadLetterReason = *raw.DeadLetterReason
			}
		}
		if _, err := store.InsertMessage(ctx, rec); err != nil {
			fmt.Fprintf(errOut, "[error] capture failed: %v\n", err)
		}
	}

	finish := func() {
		if err := store.EndRun(context.Background(), runID); err != nil {
			fmt.Fprintf(errOut, "[error] closing capture run: %v\n", err)
		}
	}
	return sink, finish, nil
}
