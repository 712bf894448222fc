package tproxy

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var (
	errNotTCP = errors.New("not a TCP connection")

	// ErrNotRedirected means the connection was addressed to the listener
	// itself. Relaying it would connect back to this process.
	ErrNotRedirected = errors.New("connection was not redirected")
)

// Resolver recovers the destination a client connected to before the packet
// filter redirected it.
type Resolver interface {
	OriginalDst(c net.Conn) (netip.AddrPort, error)
}

type ResolverFunc func(c net.Conn) (netip.AddrPort, error)

func (f ResolverFunc) OriginalDst(c net.Conn) (netip.AddrPort, error) {
	return f(c)
}

// NATResolver reads the pre-NAT destination that REDIRECT rules record in
// conntrack (SO_ORIGINAL_DST).
type NATResolver struct{}

func (NATResolver) OriginalDst(c net.Conn) (netip.AddrPort, error) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return netip.AddrPort{}, errNotTCP
	}
	rc, err := tc.SyscallConn()
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("syscall conn: %w", err)
	}

	var (
		dst    netip.AddrPort
		dstErr error
	)
	if err := rc.Control(func(fd uintptr) {
		dst, dstErr = originalDst(fd)
	}); err != nil {
		return netip.AddrPort{}, fmt.Errorf("control: %w", err)
	}
	if dstErr != nil {
		return netip.AddrPort{}, dstErr
	}

	// Conntrack also knows connections that were never NATed; their
	// original destination is the listener.
	if local, ok := c.LocalAddr().(*net.TCPAddr); ok && unmapped(local) == dst {
		return netip.AddrPort{}, fmt.Errorf("%w: destination %s is the listener", ErrNotRedirected, dst)
	}
	return dst, nil
}

// LocalAddrResolver is for TPROXY listeners, where the accepted connection's
// local address is the original destination.
type LocalAddrResolver struct {
	// Listen is the listener's own address. Connections made directly to it
	// are rejected.
	Listen netip.AddrPort
}

func (r LocalAddrResolver) OriginalDst(c net.Conn) (netip.AddrPort, error) {
	local, ok := c.LocalAddr().(*net.TCPAddr)
	if !ok {
		return netip.AddrPort{}, errNotTCP
	}
	dst := unmapped(local)
	if !dst.Addr().Is4() {
		return netip.AddrPort{}, fmt.Errorf("original destination %s is not ipv4", dst)
	}
	if r.isListener(dst) {
		return netip.AddrPort{}, fmt.Errorf("%w: destination %s is the listener", ErrNotRedirected, dst)
	}
	return dst, nil
}

func (r LocalAddrResolver) isListener(dst netip.AddrPort) bool {
	if !r.Listen.IsValid() || r.Listen.Port() != dst.Port() {
		return false
	}
	return r.Listen.Addr().IsUnspecified() || r.Listen.Addr() == dst.Addr()
}

func unmapped(a *net.TCPAddr) netip.AddrPort {
	ap := a.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
