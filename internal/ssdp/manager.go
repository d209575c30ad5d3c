package ssdp

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
	"github.com/dlnaproxy/dlnaproxy/internal/log"
)

// byebyeBudget is the total (not per-write) deadline for the shutdown
// byebye phase, per spec §5/§9.
const byebyeBudget = 2 * time.Second

// Manager owns the shared DeviceProfile and the two long-running tasks
// that read/write it: the Announcer (writer) and the Discovery Responder
// (reader). The profile is published through an atomic pointer so the
// responder never blocks on the announcer's network calls.
type Manager struct {
	descURL        string
	announce       AnnounceConfig
	connectTimeout time.Duration
	readTimeout    time.Duration
	wait           time.Duration // 0 means wait mode is off

	logger *log.Logger

	listener    *ipv4.PacketConn
	broadcaster *ipv4.PacketConn

	profile atomic.Pointer[DeviceProfile]
}

// Config bundles the construction parameters for a Manager.
type Config struct {
	DescriptionURL string
	Announce       AnnounceConfig
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Wait           time.Duration
	Logger         *log.Logger
}

// NewManager builds the SSDP sockets and performs the initial descriptor
// fetch. If the fetch fails and wait mode (cfg.Wait > 0) is off, it
// returns Fetch's error — a *errs.RemoteUnreachable, or a
// *errs.ProtocolError for a malformed description — which the caller
// treats as fatal. If wait mode is on, NewManager still returns
// successfully with no cached profile; the announcer retries every
// cfg.Wait until the remote appears.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	listener, err := BuildSSDPListener(cfg.Announce.Interface)
	if err != nil {
		return nil, err
	}
	broadcaster, err := BuildSSDPBroadcaster(cfg.Announce.Interface)
	if err != nil {
		listener.Close()
		return nil, err
	}

	m := &Manager{
		descURL:        cfg.DescriptionURL,
		announce:       cfg.Announce,
		connectTimeout: cfg.ConnectTimeout,
		readTimeout:    cfg.ReadTimeout,
		wait:           cfg.Wait,
		logger:         cfg.Logger,
		listener:       listener,
		broadcaster:    broadcaster,
	}

	profile, err := Fetch(ctx, cfg.DescriptionURL, cfg.ConnectTimeout, cfg.ReadTimeout)
	if err != nil {
		if cfg.Wait <= 0 {
			listener.Close()
			broadcaster.Close()
			return nil, err
		}
		m.logger.Warnf("initial descriptor fetch failed, entering wait mode: %v", err)
		return m, nil
	}
	profile.BootID = time.Now().UnixNano()
	m.profile.Store(profile)

	return m, nil
}

// Profile returns the currently cached DeviceProfile, or nil if none has
// ever succeeded (only possible while still in startup wait mode).
func (m *Manager) Profile() *DeviceProfile {
	return m.profile.Load()
}

// refresh re-fetches the descriptor and swaps the cached profile on
// success. On failure the previous profile (if any) is left untouched —
// a refresh failure never destroys the cache, and the announcer falls
// back to the cached profile for that tick.
func (m *Manager) refresh(ctx context.Context) (*DeviceProfile, error) {
	fresh, err := Fetch(ctx, m.descURL, m.connectTimeout, m.readTimeout)
	if err != nil {
		return nil, err
	}
	if prev := m.profile.Load(); prev != nil {
		fresh.BootID = prev.BootID
	} else {
		fresh.BootID = time.Now().UnixNano()
	}
	m.profile.Store(fresh)
	return fresh, nil
}

// Run starts the announcer and discovery responder and blocks until ctx
// is cancelled, at which point it runs the byebye shutdown phase bounded
// by byebyeBudget and returns.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Infof("ssdp manager starting, initial byebye before first announce")
	// Send a byebye before anything else, clearing any stale cache entries
	// left over on listening devices from a previous run of this process.
	m.sendByebyeBurst(context.Background())

	errCh := make(chan error, 2)
	go func() { errCh <- m.announceLoop(ctx) }()
	go func() { errCh <- m.responderLoop(ctx) }()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), byebyeBudget)
	defer cancel()
	m.sendByebyeBurst(shutdownCtx)

	m.listener.Close()
	m.broadcaster.Close()

	return errs.ErrShutdownRequested
}

// sendByebyeBurst emits one ssdp:byebye per target set. If no profile has
// ever been populated (remote never appeared), this is a no-op — there is
// nothing to say goodbye to.
func (m *Manager) sendByebyeBurst(ctx context.Context) {
	profile := m.profile.Load()
	if profile == nil {
		return
	}
	dest, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		m.logger.Warnf("failed to resolve multicast address for byebye: %v", err)
		return
	}
	for _, t := range Targets(profile) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		deadline, ok := ctx.Deadline()
		if ok {
			m.broadcaster.SetWriteDeadline(deadline)
		}
		pkt := BuildByeBye(t)
		if _, err := m.broadcaster.WriteTo(pkt, nil, dest); err != nil {
			m.logger.Warnf("failed to send ssdp:byebye for %s: %v", t.NT, err)
		}
	}
}
