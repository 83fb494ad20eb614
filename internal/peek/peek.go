// Package peek drives a peek session: resolve the queue, open a client,
// peek the selected sub-queues in order, print every message, and report
// the total.
package peek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yazzzuk/azure-service-bus-reader/internal/connstring"
	"github.com/yazzzuk/azure-service-bus-reader/internal/render"
	"github.com/yazzzuk/azure-service-bus-reader/internal/servicebus"
)

// ErrNoQueue means neither --queue nor an EntityPath named the queue.
var ErrNoQueue = errors.New("no queue name provided; pass --queue or include EntityPath in the connection string")

// Dialer opens a namespace-scoped client session.
type Dialer func(namespaceConnString string) (servicebus.Client, error)

// Sink receives every rendered message, in print order. Sinks are best
// effort; a failing sink never interrupts the peek.
type Sink func(msg render.Message)

// Options configures a peek run.
type Options struct {
	ConnectionString string // raw; may embed an EntityPath
	Queue            string // explicit override, wins over EntityPath
	Max              int    // per sub-queue; <=0 falls back to DefaultMax
	ActiveOnly       bool
	DLQOnly          bool

	Renderer render.Renderer
	Dial     Dialer    // defaults to servicebus.Dial
	Out      io.Writer // defaults to os.Stdout
	Sinks    []Sink
}

// DefaultMax is the per-sub-queue peek limit when none is given.
const DefaultMax = 50

// Summary is the outcome of a completed run.
type Summary struct {
	Queue     string
	Namespace string // redacted, safe to display or store
	Total     int
	Messages  []render.Message
}

// ResolveQueue picks the effective queue name: the explicit flag wins over
// an entity path embedded in the connection string.
func ResolveQueue(flagValue, entityPath string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if entityPath != "" {
		return entityPath, nil
	}
	return "", ErrNoQueue
}

// Run executes one peek session. The active-queue peek completes fully
// before the dead-letter peek begins; the client is closed on every path.
func Run(ctx context.Context, opts Options) (_ *Summary, err error) {
	ns, entity, err := connstring.Parse(opts.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	queue, err := ResolveQueue(opts.Queue, entity)
	if err != nil {
		return nil, err
	}

	max := opts.Max
	if max <= 0 {
		max = DefaultMax
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	dial := opts.Dial
	if dial == nil {
		dial = servicebus.Dial
	}

	client, err := dial(ns)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, client.Close(context.Background()))
	}()

	summary := &Summary{
		Queue:     queue,
		Namespace: connstring.Redact(ns),
	}
	collect := func(msg render.Message) {
		summary.Messages = append(summary.Messages, msg)
	}
	sinks := append([]Sink{collect}, opts.Sinks...)

	if !opts.DLQOnly {
		fmt.Fprintf(out, "\n>>> Peeking ACTIVE queue: %s (up to %d)\n", queue, max)
		n, err := peekSubQueue(ctx, client, queue, max, servicebus.SubQueueActive, opts.Renderer, out, sinks)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			fmt.Fprintln(out, "[info] No active messages available to peek.")
		}
		summary.Total += n
	}

	if !opts.ActiveOnly {
		fmt.Fprintf(out, "\n>>> Peeking DEAD-LETTER queue: %s (up to %d)\n", queue, max)
		n, err := peekSubQueue(ctx, client, queue, max, servicebus.SubQueueDeadLetter, opts.Renderer, out, sinks)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			fmt.Fprintln(out, "[info] No dead-letter messages available to peek.")
		}
		summary.Total += n
	}

	fmt.Fprintf(out, "\nDone. Total messages peeked: %d\n", summary.Total)
	return summary, nil
}

// peekSubQueue opens a receiver scoped to one sub-queue, peeks up to max
// messages and prints each with a 1-based index. The receiver is closed
// whether the peek succeeds or fails.
func peekSubQueue(ctx context.Context, client servicebus.Client, queue string, max int, sub servicebus.SubQueue, r render.Renderer, out io.Writer, sinks []Sink) (count int, err error) {
	recv, err := client.NewReceiver(queue, sub)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, recv.Close(context.Background()))
	}()

	msgs, err := recv.Peek(ctx, max)
	if err != nil {
		return 0, err
	}

	for i, m := range msgs {
		rm := r.Render(m, sub, i+1)
		fmt.Fprintf(out, "\n=== %s MESSAGE #%d ===\n", rm.SubQueue, rm.Index)
		fmt.Fprintln(out, rm.Props)
		fmt.Fprintln(out, "-- body --")
		fmt.Fprintln(out, rm.Body)
		for _, sink := range sinks {
			sink(rm)
		}
		count++
	}
	return count, nil
}
