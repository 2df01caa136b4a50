package logonce

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWarnDeduplicatesByKey(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewTextHandler(&buf, nil)))

	if !l.Warn("type:Foo", "unknown component type", "type", "Foo") {
		t.Fatalf("first warning should be emitted")
	}
	if l.Warn("type:Foo", "unknown component type", "type", "Foo") {
		t.Fatalf("second warning with the same key should be dropped")
	}
	if !l.Warn("type:Bar", "unknown component type", "type", "Bar") {
		t.Fatalf("different key should be emitted")
	}

	if got := strings.Count(buf.String(), "unknown component type"); got != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", got, buf.String())
	}

	l.Reset()
	if l.Seen("type:Foo") {
		t.Fatalf("Reset should forget keys")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	if l.Warn("k", "msg") {
		t.Fatalf("nil logger must not report emission")
	}
	if New(nil).Underlying() == nil {
		t.Fatalf("expected discard logger")
	}
}
