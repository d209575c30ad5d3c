package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dlnaproxy/dlnaproxy/internal/log"
)

// handleConnection mediates one accepted client connection through the
// per-connection state machine (Idle -> ReadRequestHead -> ForwardRequest
// -> ReadResponseHead -> DispatchBody -> ClientWrite -> loop | Close): it
// dials the origin, pairs the two sockets 1:1, and runs each half until
// either side closes.
//
// The request half (ReadRequestHead/ForwardRequest) is never rewritten,
// so it is a single raw copy goroutine; the response half
// (ReadResponseHead/DispatchBody/ClientWrite) is implemented explicitly in
// proxyResponses below, since that is where rewriting and body-disposition
// logic lives. Both sockets are always closed together before this
// function returns (invariant 3).
func handleConnection(client net.Conn, originAddr string, cfg Config, logger *log.Logger, id string) {
	defer client.Close()

	origin, err := net.DialTimeout("tcp", originAddr, cfg.ConnectTimeout)
	if err != nil {
		logger.Warnf("[%s] failed to dial origin %s: %v", id, originAddr, err)
		fmt.Fprint(client, "HTTP/1.1 502 Bad Gateway\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
		return
	}
	defer origin.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer origin.Close()
		defer client.Close()
		refreshingCopy(origin, client, cfg.StreamTimeout)
	}()

	go func() {
		defer wg.Done()
		defer origin.Close()
		defer client.Close()
		if err := proxyResponses(client, origin, cfg, logger, id); err != nil && err != io.EOF {
			logger.Tracef("[%s] response proxy ended: %v", id, err)
		}
	}()

	wg.Wait()
}

// refreshingCopy copies from src to dst, refreshing both read and write
// deadlines to streamTimeout on every successful transfer — the resource
// discipline spec §4.F requires (no socket ever goes unbounded).
func refreshingCopy(dst io.Writer, src net.Conn, streamTimeout time.Duration) {
	buf := make([]byte, 32*1024)
	for {
		src.SetReadDeadline(time.Now().Add(streamTimeout))
		n, err := src.Read(buf)
		if n > 0 {
			if w, ok := dst.(net.Conn); ok {
				w.SetWriteDeadline(time.Now().Add(streamTimeout))
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// refreshingCopyN copies exactly n bytes from r (backed by src) to w (backed
// by dst), refreshing both deadlines to streamTimeout before each chunk so a
// slow-but-live length-framed transfer isn't cut off by a single deadline
// set before the whole transfer began.
func refreshingCopyN(w io.Writer, r io.Reader, src, dst net.Conn, n int64, streamTimeout time.Duration) error {
	buf := make([]byte, 32*1024)
	for n > 0 {
		chunk := int64(len(buf))
		if n < chunk {
			chunk = n
		}
		src.SetReadDeadline(time.Now().Add(streamTimeout))
		read, err := r.Read(buf[:chunk])
		if read > 0 {
			dst.SetWriteDeadline(time.Now().Add(streamTimeout))
			if _, werr := w.Write(buf[:read]); werr != nil {
				return werr
			}
			n -= int64(read)
		}
		if err != nil {
			if err == io.EOF && n == 0 {
				return nil
			}
			return err
		}
	}
	return nil
}

// proxyResponses runs the ReadResponseHead/DispatchBody/ClientWrite loop
// against one origin connection, writing to client, rewriting text/XML
// bodies in place. It returns when the origin connection closes or a
// stream-to-close response completes (spec: never loop back to
// ReadResponseHead after stream-to-close).
func proxyResponses(client net.Conn, origin net.Conn, cfg Config, logger *log.Logger, id string) error {
	reader := bufio.NewReader(origin)
	originBase := fmt.Sprintf("%s:%d", cfg.OriginHost, cfg.OriginPort)
	localBase := cfg.LocalAddr

	for {
		origin.SetReadDeadline(time.Now().Add(cfg.StreamTimeout))
		head, err := readResponseHead(reader)
		if err != nil {
			return err
		}
		if len(head.raw) == 0 {
			return io.EOF
		}

		logger.Tracef("[%s] response: %s", id, Sanitize([]byte(head.statusLine)))

		client.SetWriteDeadline(time.Now().Add(cfg.StreamTimeout))

		bodyTooLarge := head.contentLength >= 0 && head.contentLength > MaxRewritableBodySize

		switch {
		case !head.chunked && head.contentLength < 0:
			// Stream-to-close: forward the head, then copy until EOF, and
			// never loop back.
			if _, err := client.Write(head.raw); err != nil {
				return err
			}
			refreshingCopy(client, origin, cfg.StreamTimeout)
			return io.EOF

		case !head.needsRewrite || bodyTooLarge:
			if _, err := client.Write(head.raw); err != nil {
				return err
			}
			if head.chunked {
				if err := passThroughChunked(reader, client, origin, client, cfg.StreamTimeout); err != nil {
					return err
				}
			} else if head.contentLength >= 0 {
				if err := refreshingCopyN(client, reader, origin, client, head.contentLength, cfg.StreamTimeout); err != nil {
					return err
				}
			}

		default:
			var body []byte
			var rerr error
			if head.chunked {
				body, rerr = readChunkedBody(reader, MaxRewritableBodySize)
			} else {
				body = make([]byte, head.contentLength)
				_, rerr = io.ReadFull(reader, body)
			}
			if rerr != nil {
				return rerr
			}

			rewritten := rewriteBody(body, originBase, localBase)

			updatedHead := head.raw
			if head.contentLength >= 0 && len(rewritten) != len(body) {
				updatedHead = withUpdatedContentLength(head.raw, len(rewritten))
			}
			if _, err := client.Write(updatedHead); err != nil {
				return err
			}

			if head.chunked {
				if err := writeChunkedBody(client, rewritten); err != nil {
					return err
				}
			} else {
				if _, err := client.Write(rewritten); err != nil {
					return err
				}
			}
		}
	}
}
