package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/yazzzuk/azure-service-bus-reader/internal/connstring"
	"github.com/yazzzuk/azure-service-bus-reader/internal/peek"
)

const connStr = "Endpoint=sb://x.servicebus.windows.net/;SharedAccessKeyName=k;SharedAccessKey=s;EntityPath=orders"

// execute runs the root command with isolated config/env and returns
// the error.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SERVICEBUS_CONNECTION_STRING", "")
	t.Setenv("AZURE_SERVICEBUS_CONNECTION_STRING", "")

	cmd := newRootCmd("test")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestRun_MutuallyExclusiveFlags(t *testing.T) {
	err := execute(t, "--active-only", "--dlq-only", connStr)
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestRun_NoConnectionString(t *testing.T) {
	err := execute(t)
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestRun_UnknownProfile(t *testing.T) {
	err := execute(t, "--profile", "nope", connStr)
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestRun_InvalidConnectionString(t *testing.T) {
	err := execute(t, "Endpoint=sb://x.servicebus.windows.net/;SharedAccessKeyName=k")
	var mk *connstring.MissingKeyError
	if !errors.As(err, &mk) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if mk.Key != "SharedAccessKey" {
		t.Errorf("missing key = %q, want SharedAccessKey", mk.Key)
	}
}

func TestRun_MissingQueue(t *testing.T) {
	noEntity := "Endpoint=sb://x.servicebus.windows.net/;SharedAccessKeyName=k;SharedAccessKey=s"
	err := execute(t, noEntity)
	if !errors.Is(err, peek.ErrNoQueue) {
		t.Fatalf("expected ErrNoQueue, got %v", err)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	err := execute(t, "--frobnicate", connStr)
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UsageError for unknown flag, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	if err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}

	_, err = parseID("abc")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Errorf("expected UsageError for non-numeric id, got %v", err)
	}
}
