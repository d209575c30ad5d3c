package ssdp

import (
	"context"
	"net"
	"time"
)

// announceLoop is the Announcer task (component D): on each tick it
// refreshes the DeviceProfile and emits one ssdp:alive NOTIFY per target
// set, in the fixed order Targets returns. A refresh failure is logged at
// warn and never crashes the loop: the tick announces the previously
// cached profile, or is skipped if no fetch has ever succeeded.
//
// In wait mode with no profile yet, the loop first polls the descriptor
// every m.wait (logging each failure) until the remote appears.
func (m *Manager) announceLoop(ctx context.Context) error {
	dest, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return err
	}

	if m.profile.Load() == nil && m.wait > 0 {
		p, err := FetchWithRetry(ctx, m.descURL, m.connectTimeout, m.readTimeout, m.wait, func(err error, next time.Duration) {
			m.logger.Warnf("remote still unreachable, retrying in %s: %v", next, err)
		})
		if err != nil {
			// Only cancellation ends the retry loop.
			return nil
		}
		p.BootID = time.Now().UnixNano()
		m.profile.Store(p)
	}

	ticker := time.NewTicker(m.announce.Period)
	defer ticker.Stop()

	// First tick fires immediately so a successful wait-mode fetch gets
	// announced without waiting a full period.
	m.doAnnounceTick(ctx, dest)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.doAnnounceTick(ctx, dest)
		}
	}
}

func (m *Manager) doAnnounceTick(ctx context.Context, dest *net.UDPAddr) {
	profile, err := m.refresh(ctx)
	if err != nil {
		m.logger.Warnf("descriptor refresh failed, reusing cached profile: %v", err)
		profile = m.profile.Load()
		if profile == nil {
			// Never had a successful fetch; nothing to announce yet.
			return
		}
	}

	maxAge := m.announce.MaxAge()
	for _, t := range Targets(profile) {
		pkt := BuildAlive(t, profile.LocationURL, profile.ServerString, maxAge)
		m.broadcaster.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if _, err := m.broadcaster.WriteTo(pkt, nil, dest); err != nil {
			m.logger.Warnf("failed to send ssdp:alive for %s: %v", t.NT, err)
			continue
		}
		m.logger.Debugf("sent ssdp:alive for %s", t.NT)
	}
}
