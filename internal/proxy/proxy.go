// Package proxy implements the HTTP-aware intercepting TCP proxy: it
// accepts LAN connections, dials the remote origin, pipelines HTTP/1.x
// request/response exchanges, and rewrites origin URLs inside textual
// response bodies so LAN clients receive reachable addresses.
package proxy

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dlnaproxy/dlnaproxy/internal/log"
	"github.com/dlnaproxy/dlnaproxy/internal/ssdp"
)

// maxConcurrentConnections bounds in-flight proxy connections, providing
// backpressure rather than unbounded resource growth under load.
const maxConcurrentConnections = 100

// Config configures one Proxy instance.
type Config struct {
	LocalAddr      string
	OriginHost     string
	OriginPort     int
	ConnectTimeout time.Duration
	StreamTimeout  time.Duration
}

// FromSSDP adapts an ssdp.ProxyConfig (which shares the DeviceProfile's
// origin host/port) into a proxy.Config.
func FromSSDP(c ssdp.ProxyConfig) Config {
	return Config{
		LocalAddr:      c.LocalAddr,
		OriginHost:     c.OriginHost,
		OriginPort:     c.OriginPort,
		ConnectTimeout: c.ConnectTimeout,
		StreamTimeout:  c.StreamTimeout,
	}
}

// Proxy is the TCP proxy acceptor (component F).
type Proxy struct {
	cfg    Config
	logger *log.Logger
}

// New builds a Proxy from cfg.
func New(cfg Config, logger *log.Logger) *Proxy {
	return &Proxy{cfg: cfg, logger: logger}
}

// Run binds the local listener and accepts connections until ctx is
// cancelled, at which point the listener is closed and Run returns
// immediately. It does not wait for connections already accepted; those
// keep running in their own goroutines.
func (p *Proxy) Run(ctx context.Context) error {
	listener, err := ssdp.BuildProxyListener(p.cfg.LocalAddr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	p.logger.Infof("proxying TCP connections on %s to %s:%d (with URL rewriting)", p.cfg.LocalAddr, p.cfg.OriginHost, p.cfg.OriginPort)

	originAddr := net.JoinHostPort(p.cfg.OriginHost, strconv.Itoa(p.cfg.OriginPort))
	sem := make(chan struct{}, maxConcurrentConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			p.logger.Warnf("failed to accept incoming connection: %v", err)
			continue
		}

		sem <- struct{}{}
		id := uuid.NewString()[:8]
		go func() {
			defer func() { <-sem }()
			p.logger.Debugf("[%s] accepted connection from %s", id, conn.RemoteAddr())
			handleConnection(conn, originAddr, p.cfg, p.logger, id)
			p.logger.Tracef("[%s] closed connection", id)
		}()
	}
}
