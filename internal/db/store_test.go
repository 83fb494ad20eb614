package db

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewStore(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})
	return store
}

func TestToNullString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sql.NullString
	}{
		{
			name:  "empty string is invalid",
			input: "",
			want:  sql.NullString{},
		},
		{
			name:  "non-empty string is valid",
			input: "orders",
			want:  sql.NullString{String: "orders", Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toNullString(tt.input)
			if got != tt.want {
				t.Errorf("toNullString(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToNullTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		input     time.Time
		wantValid bool
	}{
		{
			name:      "zero time is invalid",
			input:     time.Time{},
			wantValid: false,
		},
		{
			name:      "non-zero time is valid",
			input:     now,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toNullTime(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("toNullTime(%v).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
		})
	}
}

func TestStore_BeginAndEndRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.BeginRun(ctx, "sb://ns.servicebus.windows.net/", "orders")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive run ID, got %d", id)
	}

	if err := store.EndRun(ctx, id); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	runs, err := store.ListRecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].QueueName != "orders" {
		t.Errorf("QueueName = %q, want orders", runs[0].QueueName)
	}
	if !runs[0].EndedAt.Valid {
		t.Error("expected ended_at to be set after EndRun")
	}
}

func TestStore_InsertAndGetMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, "sb://ns/", "orders")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	seq := int64(4711)
	enq := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &MessageRecord{
		RunID:            runID,
		SubQueue:         "DLQ",
		Position:         1,
		SequenceNumber:   &seq,
		MessageID:        "msg-1",
		Subject:          "order.created",
		ContentType:      "application/json",
		EnqueuedAt:       enq,
		DeadLetterReason: "MaxDeliveryCountExceeded",
		Properties:       `{"message_id": "msg-1"}`,
		BodyText:         `{"id": 1}`,
	}

	msgID, err := store.InsertMessage(ctx, rec)
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	msg, err := store.GetMessage(ctx, msgID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if msg.SubQueue != "DLQ" {
		t.Errorf("SubQueue = %q, want DLQ", msg.SubQueue)
	}
	if !msg.SequenceNumber.Valid || msg.SequenceNumber.Int64 != 4711 {
		t.Errorf("SequenceNumber = %+v, want 4711", msg.SequenceNumber)
	}
	if !msg.DeadLetterReason.Valid || msg.DeadLetterReason.String != "MaxDeliveryCountExceeded" {
		t.Errorf("DeadLetterReason = %+v", msg.DeadLetterReason)
	}
	if msg.BodyText != `{"id": 1}` {
		t.Errorf("BodyText = %q", msg.BodyText)
	}
}

func TestStore_ListMessagesByRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, "sb://ns/", "orders")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	otherRun, err := store.BeginRun(ctx, "sb://ns/", "items")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	for i := 1; i <= 3; i++ {
		_, err := store.InsertMessage(ctx, &MessageRecord{
			RunID:    runID,
			SubQueue: "ACTIVE",
			Position: i,
			BodyText: "body",
		})
		if err != nil {
			t.Fatalf("InsertMessage %d: %v", i, err)
		}
	}
	if _, err := store.InsertMessage(ctx, &MessageRecord{
		RunID:    otherRun,
		SubQueue: "ACTIVE",
		Position: 1,
		BodyText: "other",
	}); err != nil {
		t.Fatalf("InsertMessage other run: %v", err)
	}

	msgs, err := store.ListMessagesByRun(ctx, runID, 10, 0)
	if err != nil {
		t.Fatalf("ListMessagesByRun: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// Insertion order, which is print order
	for i, m := range msgs {
		if m.Position != int64(i+1) {
			t.Errorf("msgs[%d].Position = %d, want %d", i, m.Position, i+1)
		}
	}
}

func TestStore_SearchMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, "sb://ns/", "orders")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	records := []MessageRecord{
		{RunID: runID, SubQueue: "ACTIVE", Position: 1, Subject: "order.created", BodyText: "new order placed"},
		{RunID: runID, SubQueue: "ACTIVE", Position: 2, Subject: "user.updated", BodyText: "user profile changed"},
		{RunID: runID, SubQueue: "DLQ", Position: 1, Subject: "order.shipped", BodyText: "order was shipped"},
	}
	for i := range records {
		if _, err := store.InsertMessage(ctx, &records[i]); err != nil {
			t.Fatalf("InsertMessage %d: %v", i, err)
		}
	}

	results, err := store.SearchMessages(ctx, "order", 10, 0)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results for 'order', got %d", len(results))
	}

	results, err = store.SearchMessages(ctx, "shipped", 10, 0)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result for 'shipped', got %d", len(results))
	}
}
