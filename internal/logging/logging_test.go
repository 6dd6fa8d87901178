package logging

import (
	"context"
	"regexp"
	"strings"
	"testing"
)

func TestOperationIDRoundTrip(t *testing.T) {
	id := GenerateOperationID()
	if len(id) != 8 {
		t.Fatalf("expected 8-char id, got %q", id)
	}
	ctx := WithOperationID(context.Background(), id)
	if got := OperationID(ctx); got != id {
		t.Errorf("OperationID = %q, want %q", got, id)
	}
	if got := OperationID(context.Background()); got != "" {
		t.Errorf("OperationID on empty context = %q", got)
	}
}

func TestTruncateLog(t *testing.T) {
	if got := TruncateLog("short", 10); got != "short" {
		t.Errorf("TruncateLog = %q", got)
	}
	long := strings.Repeat("x", 100)
	got := TruncateLog(long, 10)
	if !strings.HasPrefix(got, "xxxxxxxxxx...") || !strings.Contains(got, "100 bytes") {
		t.Errorf("TruncateLog = %q", got)
	}
}

func TestNewTraceparent(t *testing.T) {
	re := regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-00$`)
	a, b := NewTraceparent(), NewTraceparent()
	if !re.MatchString(a) {
		t.Fatalf("malformed traceparent %q", a)
	}
	if a == b {
		t.Errorf("traceparent values not unique")
	}
}
