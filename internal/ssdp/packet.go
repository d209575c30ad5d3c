package ssdp

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
)

// Target names one of the three announce/search target sets a device
// advertises under, per spec §4.D: root device, exact device type, and
// the bare UDN-as-USN form.
type Target struct {
	NT  string
	USN string
}

// Targets derives the fixed-order set of three (NT, USN) pairs a
// DeviceProfile announces under. Order matters: spec §5 requires the
// three NOTIFY datagrams for one tick to be emitted in a fixed order.
func Targets(p *DeviceProfile) []Target {
	return []Target{
		{NT: "upnp:rootdevice", USN: p.UDN + "::upnp:rootdevice"},
		{NT: p.DeviceType, USN: p.USN},
		{NT: p.UDN, USN: p.UDN},
	}
}

// BuildAlive synthesizes an ssdp:alive NOTIFY datagram for one target.
func BuildAlive(t Target, location, server string, maxAge int) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "NOTIFY * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", MulticastAddr)
	fmt.Fprintf(&b, "CACHE-CONTROL: max-age=%d\r\n", maxAge)
	fmt.Fprintf(&b, "LOCATION: %s\r\n", location)
	fmt.Fprintf(&b, "NT: %s\r\n", t.NT)
	fmt.Fprintf(&b, "NTS: ssdp:alive\r\n")
	fmt.Fprintf(&b, "SERVER: %s\r\n", server)
	fmt.Fprintf(&b, "USN: %s\r\n", t.USN)
	fmt.Fprintf(&b, "\r\n")
	return b.Bytes()
}

// BuildByeBye synthesizes an ssdp:byebye NOTIFY datagram for one target.
// No LOCATION, no SERVER, no CACHE-CONTROL — the device is departing.
func BuildByeBye(t Target) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "NOTIFY * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", MulticastAddr)
	fmt.Fprintf(&b, "NT: %s\r\n", t.NT)
	fmt.Fprintf(&b, "NTS: ssdp:byebye\r\n")
	fmt.Fprintf(&b, "USN: %s\r\n", t.USN)
	fmt.Fprintf(&b, "\r\n")
	return b.Bytes()
}

// BuildSearchResponse synthesizes a 200-OK M-SEARCH reply echoing st.
func BuildSearchResponse(st string, t Target, location, server string, maxAge int, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "CACHE-CONTROL: max-age=%d\r\n", maxAge)
	fmt.Fprintf(&b, "DATE: %s\r\n", now.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "EXT:\r\n")
	fmt.Fprintf(&b, "LOCATION: %s\r\n", location)
	fmt.Fprintf(&b, "SERVER: %s\r\n", server)
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	fmt.Fprintf(&b, "USN: %s\r\n", t.USN)
	fmt.Fprintf(&b, "\r\n")
	return b.Bytes()
}

// Message is a parsed SSDP datagram: a request/status line plus a header
// map. Header names are folded to upper-case ASCII for lookup; values
// retain their original bytes unmodified (raw-byte parsing, no UTF-8
// validation — origin devices are known to send malformed encodings).
type Message struct {
	Method  string // "M-SEARCH", "NOTIFY", or "" for a status line
	Headers map[string]string
}

// Get looks up a header by case-insensitive name.
func (m *Message) Get(name string) (string, bool) {
	v, ok := m.Headers[foldHeader(name)]
	return v, ok
}

func foldHeader(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// ParseRequest parses a raw SSDP datagram's request line and headers.
// It operates on raw bytes throughout; only ASCII case-folding is applied
// to header names for lookup, never to values, and the input is never
// required to be valid UTF-8.
func ParseRequest(buf []byte) (*Message, error) {
	lines := splitLines(buf)
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, &errs.ProtocolError{Msg: "empty SSDP datagram"}
	}

	requestLine := string(bytes.TrimRight(lines[0], "\r\n"))
	parts := bytes.Fields([]byte(requestLine))
	if len(parts) == 0 {
		return nil, &errs.ProtocolError{Msg: "malformed SSDP request line"}
	}
	method := string(parts[0])

	headers := make(map[string]string, len(lines))
	for _, line := range lines[1:] {
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			break
		}
		idx := bytes.IndexByte(trimmed, ':')
		if idx < 0 {
			continue
		}
		name := foldHeader(string(bytes.TrimSpace(trimmed[:idx])))
		value := string(bytes.TrimSpace(trimmed[idx+1:]))
		headers[name] = value
	}

	return &Message{Method: method, Headers: headers}, nil
}

// splitLines splits buf on '\n', keeping the trailing '\r' (if any) and
// the '\n' itself attached to each line so downstream code can detect the
// CRLF-CRLF header terminator without re-scanning.
func splitLines(buf []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, c := range buf {
		if c == '\n' {
			lines = append(lines, buf[start:i+1])
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, buf[start:])
	}
	return lines
}

// ParseMX parses the MX header's integer value; returns def if absent or
// unparsable.
func ParseMX(m *Message, def int) int {
	v, ok := m.Get("MX")
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
