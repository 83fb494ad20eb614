package tui

import (
	"time"

	"github.com/yazzzuk/azure-service-bus-reader/internal/render"
)

// Message is one peeked message as shown in the browser.
type Message struct {
	ID        int    // 1-based across the whole batch
	SubQueue  string // ACTIVE or DLQ
	Index     int    // 1-based within its sub-queue
	Subject   string
	MessageID string
	Enqueued  time.Time
	Props     string // rendered JSON property object
	Body      string // rendered body
	RawBody   []byte
}

// fromRendered converts the peek output into browser rows.
func fromRendered(msgs []render.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i, rm := range msgs {
		m := Message{
			ID:       i + 1,
			SubQueue: rm.SubQueue,
			Index:    rm.Index,
			Props:    rm.Props,
			Body:     rm.Body,
		}
		if rm.Raw != nil {
			if rm.Raw.Subject != nil {
				m.Subject = *rm.Raw.Subject
			}
			if rm.Raw.MessageID != nil {
				m.MessageID = *rm.Raw.MessageID
			}
			if rm.Raw.EnqueuedTime != nil {
				m.Enqueued = *rm.Raw.EnqueuedTime
			}
			if body, err := rm.Raw.Body(); err == nil {
				m.RawBody = body
			}
		}
		out = append(out, m)
	}
	return out
}
