// Package servicebus wraps the Azure Service Bus SDK behind small
// peek-only interfaces so the rest of the tool never touches SDK types.
package servicebus

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// SubQueue selects which sub-queue of a queue a receiver is scoped to.
type SubQueue int

const (
	SubQueueActive SubQueue = iota
	SubQueueDeadLetter
)

// Tag returns the label used in printed output for this sub-queue.
func (s SubQueue) Tag() string {
	if s == SubQueueDeadLetter {
		return "DLQ"
	}
	return "ACTIVE"
}

// Client is a namespace-scoped session. It must be closed.
type Client interface {
	NewReceiver(queue string, sub SubQueue) (Receiver, error)
	Close(ctx context.Context) error
}

// Receiver peeks messages from one (sub-)queue. It must be closed.
type Receiver interface {
	Peek(ctx context.Context, maxMessages int) ([]*Message, error)
	Close(ctx context.Context) error
}

// Message is a peeked message. All broker fields are optional; absent
// fields are nil. The body is read through Body so that a transport-level
// read failure surfaces as an error value instead of aborting the peek.
type Message struct {
	SequenceNumber             *int64
	EnqueuedTime               *time.Time
	ExpiresAt                  *time.Time
	LockedUntil                *time.Time
	DeliveryCount              *uint32
	ContentType                *string
	Subject                    *string
	MessageID                  *string
	CorrelationID              *string
	To                         *string
	ReplyTo                    *string
	SessionID                  *string
	PartitionKey               *string
	DeadLetterReason           *string
	DeadLetterErrorDescription *string
	ApplicationProperties      map[string]any

	body    []byte
	bodyErr error
}

// Body returns the message payload, or the error encountered reading it.
func (m *Message) Body() ([]byte, error) {
	return m.body, m.bodyErr
}

// NewTestMessage builds a Message with an explicit body and body error.
// It exists for tests and for decoding paths that construct messages
// outside the SDK adapter.
func NewTestMessage(body []byte, bodyErr error) *Message {
	return &Message{body: body, bodyErr: bodyErr}
}

// Dial opens a namespace-scoped client from a namespace-level connection
// string (one with no EntityPath).
func Dial(namespaceConnString string) (Client, error) {
	inner, err := azservicebus.NewClientFromConnectionString(namespaceConnString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Service Bus: %w", err)
	}
	return &sdkClient{inner: inner}, nil
}

type sdkClient struct {
	inner *azservicebus.Client
}

func (c *sdkClient) NewReceiver(queue string, sub SubQueue) (Receiver, error) {
	opts := &azservicebus.ReceiverOptions{
		// Peek never settles messages, but PeekLock keeps the receiver
		// from pulling anything off the queue if it is ever misused.
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	}
	if sub == SubQueueDeadLetter {
		opts.SubQueue = azservicebus.SubQueueDeadLetter
	}
	r, err := c.inner.NewReceiverForQueue(queue, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open receiver for %q: %w", queue, err)
	}
	return &sdkReceiver{inner: r}, nil
}

func (c *sdkClient) Close(ctx context.Context) error {
	return c.inner.Close(ctx)
}

type sdkReceiver struct {
	inner *azservicebus.Receiver
}

func (r *sdkReceiver) Peek(ctx context.Context, maxMessages int) ([]*Message, error) {
	received, err := r.inner.PeekMessages(ctx, maxMessages, nil)
	if err != nil {
		return nil, fmt.Errorf("peek failed: %w", err)
	}
	msgs := make([]*Message, 0, len(received))
	for _, rm := range received {
		msgs = append(msgs, convert(rm))
	}
	return msgs, nil
}

func (r *sdkReceiver) Close(ctx context.Context) error {
	return r.inner.Close(ctx)
}

func convert(rm *azservicebus.ReceivedMessage) *Message {
	m := &Message{
		SequenceNumber:             rm.SequenceNumber,
		EnqueuedTime:               rm.EnqueuedTime,
		ExpiresAt:                  rm.ExpiresAt,
		LockedUntil:                rm.LockedUntil,
		ContentType:                rm.ContentType,
		Subject:                    rm.Subject,
		CorrelationID:              rm.CorrelationID,
		To:                         rm.To,
		ReplyTo:                    rm.ReplyTo,
		SessionID:                  rm.SessionID,
		PartitionKey:               rm.PartitionKey,
		DeadLetterReason:           rm.DeadLetterReason,
		DeadLetterErrorDescription: rm.DeadLetterErrorDescription,
		ApplicationProperties:      rm.ApplicationProperties,
		body:                       rm.Body,
	}
	dc := rm.DeliveryCount
	m.DeliveryCount = &dc
	if rm.MessageID != "" {
		id := rm.MessageID
		m.MessageID = &id
	}
	return m
}
