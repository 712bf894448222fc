//go:build linux

package tproxy

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/die-net/redirrelay/internal/conn"
)

// IsSupported is true on platforms with SO_ORIGINAL_DST and IP_TRANSPARENT.
const IsSupported = true

// ListenTransparentTCP listens on addr and enables IP_TRANSPARENT so the socket can accept redirected
// connections (typical TPROXY setup). Note: you still need appropriate iptables/nft rules.
func ListenTransparentTCP(ctx context.Context, addr netip.AddrPort, ka net.KeepAliveConfig) (net.Listener, error) {
	lc := net.ListenConfig{Control: func(network, address string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_IP, unix.IP_TRANSPARENT, 1)
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}}
	ln, err := conn.Listen(ctx, lc, addr, ka)
	if err != nil {
		return nil, fmt.Errorf("tproxy: %w", err)
	}
	return ln, nil
}

func originalDst(fd uintptr) (netip.AddrPort, error) {
	// The kernel fills a struct sockaddr_in; ipv6_mreq is just a buffer
	// large enough to hold it.
	mreq, err := unix.GetsockoptIPv6Mreq(int(fd), unix.SOL_IP, unix.SO_ORIGINAL_DST)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("getsockopt SO_ORIGINAL_DST: %w", err)
	}
	dst, err := decodeSockaddrIn(mreq.Multiaddr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("getsockopt SO_ORIGINAL_DST: %w", err)
	}
	return dst, nil
}

// decodeSockaddrIn decodes a struct sockaddr_in: family in host byte order,
// then port and address in network byte order.
func decodeSockaddrIn(raw [16]byte) (netip.AddrPort, error) {
	if family := binary.NativeEndian.Uint16(raw[0:2]); family != unix.AF_INET {
		return netip.AddrPort{}, fmt.Errorf("unexpected address family %d", family)
	}
	port := binary.BigEndian.Uint16(raw[2:4])
	addr := netip.AddrFrom4([4]byte(raw[4:8]))
	return netip.AddrPortFrom(addr, port), nil
}
