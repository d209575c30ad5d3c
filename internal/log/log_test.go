package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		count int
		want  Level
	}{
		{0, Warn},
		{1, Info},
		{2, Debug},
		{3, Trace},
		{10, Trace},
	}
	for _, c := range cases {
		if got := ParseLevel(c.count); got != c.want {
			t.Errorf("ParseLevel(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}

func TestLoggerGatesByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Infof("should not appear")
	l.Debugf("should not appear")
	l.Tracef("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output at Warn level, got: %q", buf.String())
	}

	l.Warnf("visible warning")
	if !strings.Contains(buf.String(), "visible warning") {
		t.Errorf("expected warning to be logged, got: %q", buf.String())
	}
}

func TestLoggerTraceLevelEmitsEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Trace)

	l.Warnf("warn-msg")
	l.Infof("info-msg")
	l.Debugf("debug-msg")
	l.Tracef("trace-msg")

	out := buf.String()
	for _, want := range []string{"warn-msg", "info-msg", "debug-msg", "trace-msg"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %q", want, out)
		}
	}
}
