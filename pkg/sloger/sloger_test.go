package sloger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSetRequestIdScopesLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultLogger
	SetDefaultLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer SetDefaultLogger(prev)

	ctx := SetRequestId(context.Background(), "req-42")
	FromContext(ctx).Info("handling upload")

	if out := buf.String(); !strings.Contains(out, `"requestId":"req-42"`) {
		t.Errorf("request id missing from log line: %s", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("expected the default logger for a bare context")
	}
}
