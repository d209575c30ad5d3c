package ssdp

import (
	"context"
	"math/rand"
	"net"
	"time"
)

const mxJitterCap = 3 * time.Second

// responderLoop is the Discovery Responder task (component E): it reads
// M-SEARCH datagrams off the listener socket and replies, from the
// broadcast socket, to any search target it matches.
func (m *Manager) responderLoop(ctx context.Context) error {
	buf := make([]byte, 2048)

	go func() {
		<-ctx.Done()
		m.listener.Close()
	}()

	for {
		m.listener.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, _, src, err := m.listener.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			m.logger.Warnf("failed to receive SSDP datagram: %v", err)
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		go m.handleSearch(ctx, datagram, src)
	}
}

func (m *Manager) handleSearch(ctx context.Context, datagram []byte, src net.Addr) {
	msg, err := ParseRequest(datagram)
	if err != nil {
		m.logger.Debugf("dropping malformed SSDP datagram from %s: %v", src, err)
		return
	}
	if msg.Method != "M-SEARCH" {
		return
	}

	st, ok := msg.Get("ST")
	if !ok {
		return
	}

	profile := m.profile.Load()
	if profile == nil {
		return
	}

	targets, matched := matchTargets(st, profile)
	if !matched {
		return
	}

	mx := ParseMX(msg, 0)
	if mx > 3 {
		mx = 3
	}
	if mx > 0 {
		jitter := time.Duration(rand.Int63n(int64(time.Duration(mx) * time.Second)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return
		}
	}

	maxAge := m.announce.MaxAge()
	for _, target := range targets {
		// ssdp:all fans out to one reply per target set, each echoing its
		// own NT as ST; an exact-match search echoes the incoming ST as-is.
		replyST := st
		if st == "ssdp:all" {
			replyST = target.NT
		}
		pkt := BuildSearchResponse(replyST, target, profile.LocationURL, profile.ServerString, maxAge, time.Now())

		m.broadcaster.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if _, err := m.broadcaster.WriteTo(pkt, nil, src); err != nil {
			m.logger.Warnf("failed to send M-SEARCH response to %s: %v", src, err)
			continue
		}
	}
	m.logger.Infof("responded to M-SEARCH (ST: %s) from %s", st, src)
}

// matchTargets decides whether an incoming ST matches this device's
// advertised search targets, and returns the (NT, USN) pairs to reply
// with. ssdp:all matches all three target sets at once (one reply per
// set); every other recognized ST matches exactly one.
func matchTargets(st string, profile *DeviceProfile) ([]Target, bool) {
	switch {
	case st == "ssdp:all":
		return Targets(profile), true
	case st == "upnp:rootdevice":
		return []Target{{NT: "upnp:rootdevice", USN: profile.UDN + "::upnp:rootdevice"}}, true
	case st == profile.DeviceType:
		return []Target{{NT: profile.DeviceType, USN: profile.USN}}, true
	case st == profile.UDN:
		return []Target{{NT: profile.UDN, USN: profile.UDN}}, true
	default:
		return nil, false
	}
}
