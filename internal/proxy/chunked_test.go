package proxy

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"
)

func TestParseChunkSize(t *testing.T) {
	cases := []struct {
		line string
		want int64
	}{
		{"1a\r\n", 26},
		{"0\r\n", 0},
		{"ff;ignored-extension\r\n", 255},
		{"A\r\n", 10},
	}
	for _, c := range cases {
		got, err := parseChunkSize([]byte(c.line))
		if err != nil {
			t.Errorf("parseChunkSize(%q): %v", c.line, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseChunkSize(%q) = %d, want %d", c.line, got, c.want)
		}
	}
}

func TestParseChunkSizeInvalid(t *testing.T) {
	if _, err := parseChunkSize([]byte("zz\r\n")); err == nil {
		t.Error("expected error for non-hex chunk size")
	}
	if _, err := parseChunkSize([]byte("\r\n")); err == nil {
		t.Error("expected error for empty chunk size")
	}
}

func TestReadChunkedBodyRoundTrip(t *testing.T) {
	body := []byte("hello world, this is a chunked body")

	var encoded bytes.Buffer
	if err := writeChunkedBody(&encoded, body); err != nil {
		t.Fatalf("writeChunkedBody: %v", err)
	}

	r := bufio.NewReader(&encoded)
	decoded, err := readChunkedBody(r, int64(len(body)+1))
	if err != nil {
		t.Fatalf("readChunkedBody: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Errorf("round trip mismatch: got %q, want %q", decoded, body)
	}
}

func TestReadChunkedBodyRejectsOversized(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 100)
	var encoded bytes.Buffer
	if err := writeChunkedBody(&encoded, body); err != nil {
		t.Fatalf("writeChunkedBody: %v", err)
	}
	r := bufio.NewReader(&encoded)
	if _, err := readChunkedBody(r, 10); err == nil {
		t.Error("expected error for body exceeding maxSize")
	}
}

func TestPassThroughChunkedForwardsVerbatim(t *testing.T) {
	src := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(src))
	var out bytes.Buffer

	conn, peer := net.Pipe()
	defer conn.Close()
	defer peer.Close()

	if err := passThroughChunked(r, &out, conn, conn, time.Minute); err != nil {
		t.Fatalf("passThroughChunked: %v", err)
	}
	if out.String() != src {
		t.Errorf("passThroughChunked output = %q, want %q", out.String(), src)
	}
}
