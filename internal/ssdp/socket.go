package ssdp

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/dlnaproxy/dlnaproxy/internal/errs"
)

// setReuseAddr sets SO_REUSEADDR on the raw file descriptor underlying c,
// before the caller does anything else with it. net.ListenConfig's Control
// hook is where this actually has to happen to land "before bind" per the
// socket factory's contract.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// bindToDevice sets SO_BINDTODEVICE on conn's file descriptor, restricting
// it to the named interface. Linux-only; requires CAP_NET_RAW.
func bindToDevice(conn syscall.Conn, iface string) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.BindToDevice(int(fd), iface)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// BuildSSDPListener returns a UDP socket bound to 0.0.0.0:1900, joined to
// the SSDP multicast group on all interfaces (or a named one), with
// multicast loopback enabled. Every read off the returned PacketConn must
// still be given a deadline by the caller (component E does this).
func BuildSSDPListener(iface string) (*ipv4.PacketConn, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:1900")
	if err != nil {
		return nil, &errs.SocketSetupError{Which: "ssdp-listener-bind", Cause: err}
	}

	udpConn := pc.(*net.UDPConn)
	if iface != "" {
		if err := bindToDevice(udpConn, iface); err != nil {
			udpConn.Close()
			return nil, &errs.SocketSetupError{Which: "ssdp-listener-bindtodevice", Cause: err}
		}
	}

	p := ipv4.NewPacketConn(udpConn)
	ifi, err := resolveInterface(iface)
	if err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-listener-iface", Cause: err}
	}
	group := net.ParseIP(MulticastGroup)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-listener-join-group", Cause: err}
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-listener-loopback", Cause: err}
	}
	if err := p.SetMulticastTTL(MulticastTTL); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-listener-ttl", Cause: err}
	}

	return p, nil
}

// BuildSSDPBroadcaster returns a UDP socket bound to an ephemeral port
// (never 1900 — some clients drop NOTIFY whose source port is 1900),
// joined to the multicast group, with TTL=4 for outbound NOTIFY/OK
// datagrams.
func BuildSSDPBroadcaster(iface string) (*ipv4.PacketConn, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-bind", Cause: err}
	}

	udpConn := pc.(*net.UDPConn)
	if iface != "" {
		if err := bindToDevice(udpConn, iface); err != nil {
			udpConn.Close()
			return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-bindtodevice", Cause: err}
		}
	}

	p := ipv4.NewPacketConn(udpConn)
	ifi, err := resolveInterface(iface)
	if err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-iface", Cause: err}
	}
	group := net.ParseIP(MulticastGroup)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-join-group", Cause: err}
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-loopback", Cause: err}
	}
	if err := p.SetMulticastTTL(MulticastTTL); err != nil {
		udpConn.Close()
		return nil, &errs.SocketSetupError{Which: "ssdp-broadcaster-ttl", Cause: err}
	}

	return p, nil
}

// BuildProxyListener returns a TCP listener bound to addr with
// SO_REUSEADDR set before bind. Accepted connections are the caller's
// responsibility to wrap with read/write deadlines equal to the stream
// timeout.
func BuildProxyListener(addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	l, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, &errs.SocketSetupError{Which: "proxy-listener-bind", Cause: err}
	}
	return l, nil
}

// resolveInterface looks up *net.Interface by name, or returns nil
// (meaning "all interfaces") when name is empty.
func resolveInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	return net.InterfaceByName(name)
}
