package proxy

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// MaxRewritableBodySize bounds how large a response body Rewrite mode will
// buffer in memory. Bodies exceeding this fall back to pass-through,
// per spec §9's open-question resolution (1 MiB, implementation-defined).
const MaxRewritableBodySize = 1 << 20

// responseHead is the parsed status line + header block of one upstream
// HTTP/1.x response, kept as both the raw bytes (for verbatim forwarding)
// and the handful of fields the disposition logic needs.
type responseHead struct {
	raw            []byte // includes the terminating blank line
	statusLine     string
	contentLength  int64 // -1 if absent
	chunked        bool
	needsRewrite   bool
}

// readResponseHead reads raw bytes from r until the blank line
// terminating an HTTP header block, raw-byte parsed (regression-grade:
// never requires valid UTF-8). Returns io.EOF-wrapping errors unchanged
// so callers can distinguish "connection closed" from a protocol error.
func readResponseHead(r *bufio.Reader) (*responseHead, error) {
	var raw bytes.Buffer
	var headerLines []string
	first := true
	var statusLine string

	for {
		line, err := r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}
		raw.Write(line)

		trimmed := bytes.TrimRight(line, "\r\n")
		if first {
			statusLine = string(trimmed)
			first = false
		} else if len(trimmed) > 0 {
			headerLines = append(headerLines, string(trimmed))
		}

		if len(trimmed) == 0 {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	h := &responseHead{
		raw:           raw.Bytes(),
		statusLine:    statusLine,
		contentLength: -1,
	}

	for _, line := range headerLines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "content-length:") {
			v := strings.TrimSpace(line[len("content-length:"):])
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				h.contentLength = n
			}
		}
		if strings.HasPrefix(lower, "transfer-encoding:") && strings.Contains(lower, "chunked") {
			h.chunked = true
		}
	}

	h.needsRewrite = shouldRewriteContent(headerLines)

	return h, nil
}

// shouldRewriteContent implements the body-disposition decision table's
// Content-Type test: text/*, or a Content-Type containing "xml", "json",
// or "html" (case-insensitive). A missing Content-Type is always "no".
//
// Beyond the text/XML wording spec.md states, json and html are included
// here too — a supplemented behavior carried over from the original
// implementation's own should_rewrite_content, which real DLNA control
// points' presentation pages and event payloads rely on.
func shouldRewriteContent(headerLines []string) bool {
	for _, line := range headerLines {
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "content-type:") {
			continue
		}
		ct := strings.TrimSpace(lower[len("content-type:"):])
		return strings.HasPrefix(ct, "text/") ||
			strings.Contains(ct, "xml") ||
			strings.Contains(ct, "json") ||
			strings.Contains(ct, "html")
	}
	return false
}

// rewriteBody substitutes every occurrence of origin ("host:port") with
// local ("host:port") in body, operating on raw bytes.
func rewriteBody(body []byte, origin, local string) []byte {
	return bytes.ReplaceAll(body, []byte(origin), []byte(local))
}

// withUpdatedContentLength rewrites the Content-Length header line within
// raw header bytes to newLength, leaving every other header untouched and
// preserving line order.
func withUpdatedContentLength(raw []byte, newLength int) []byte {
	lines := bytes.SplitAfter(raw, []byte("\n"))
	var out bytes.Buffer
	for _, line := range lines {
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			out.Write(line)
			continue
		}
		if strings.HasPrefix(strings.ToLower(string(trimmed)), "content-length:") {
			fmt.Fprintf(&out, "Content-Length: %d\r\n", newLength)
			continue
		}
		out.Write(line)
	}
	return out.Bytes()
}
