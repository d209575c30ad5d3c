package proxy

import (
	"strings"
	"testing"
)

func TestSanitizeReplacesNonPrintableBytes(t *testing.T) {
	in := []byte("GET /foo\x00\x01 HTTP/1.1")
	out := Sanitize(in)
	if strings.ContainsAny(out, "\x00\x01") {
		t.Errorf("Sanitize left non-printable bytes: %q", out)
	}
	if !strings.HasPrefix(out, "GET /foo") {
		t.Errorf("Sanitize mangled printable prefix: %q", out)
	}
}

func TestSanitizeTruncatesLongInput(t *testing.T) {
	in := []byte(strings.Repeat("a", sanitizeLimit+50))
	out := Sanitize(in)
	if !strings.HasSuffix(out, "…") {
		t.Errorf("expected truncation marker, got suffix %q", out[len(out)-10:])
	}
	if len(out) > sanitizeLimit+len("…")+1 {
		t.Errorf("Sanitize output too long: %d bytes", len(out))
	}
}

func TestSanitizeShortInputUntouched(t *testing.T) {
	in := []byte("M-SEARCH * HTTP/1.1")
	out := Sanitize(in)
	if out != string(in) {
		t.Errorf("Sanitize changed short clean input: %q", out)
	}
}
