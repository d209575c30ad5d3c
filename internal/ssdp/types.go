// Package ssdp implements the SSDP announce/listen state machine: it
// re-broadcasts presence for a remote DLNA device and answers discovery
// searches from LAN clients on its behalf.
package ssdp

import "time"

// MulticastAddr is the well-known SSDP multicast group and port.
const MulticastAddr = "239.255.255.250:1900"

// MulticastGroup is the multicast group address alone, for socket joins.
const MulticastGroup = "239.255.255.250"

// MulticastPort is the well-known SSDP port.
const MulticastPort = 1900

// MulticastTTL is the outbound TTL used on both the listener and the
// broadcaster, matching multicast scope expectations for a home LAN.
const MulticastTTL = 4

// DeviceProfile is the result of a descriptor fetch: everything the
// Announcer and Discovery Responder need to construct SSDP datagrams for
// one remote device.
type DeviceProfile struct {
	USN          string // uuid:<UDN>::<device type>
	DeviceType   string
	UDN          string
	LocationURL  string
	OriginHost   string
	OriginPort   int
	ServerString string
	BootID       int64 // assigned at the first successful fetch, never changes afterwards
}

// AnnounceConfig configures the periodic announcer.
type AnnounceConfig struct {
	Period    time.Duration // default 895s
	Interface string        // optional, binds multicast sockets to this iface
}

// MaxAge derives the SSDP CACHE-CONTROL max-age from the announce period,
// per spec: roughly 1.5x the interval.
func (c AnnounceConfig) MaxAge() int {
	return int(c.Period.Seconds() * 1.5)
}

// ProxyConfig configures the intercepting TCP proxy (component F, defined
// in the sibling proxy package); kept here because DeviceProfile's
// OriginHost/OriginPort feed it directly and both the announcer and the
// proxy need a consistent view of the write-once RewriteMap.
type ProxyConfig struct {
	LocalAddr      string
	OriginHost     string
	OriginPort     int
	ConnectTimeout time.Duration // default 10s
	StreamTimeout  time.Duration // default 300s
}
