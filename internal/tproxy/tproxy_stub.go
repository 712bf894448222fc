//go:build !linux

package tproxy

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

// IsSupported is true on platforms with SO_ORIGINAL_DST and IP_TRANSPARENT.
const IsSupported = false

func ListenTransparentTCP(_ context.Context, _ netip.AddrPort, _ net.KeepAliveConfig) (net.Listener, error) {
	return nil, errors.New("transparent proxy is only supported on linux")
}

func originalDst(_ uintptr) (netip.AddrPort, error) {
	return netip.AddrPort{}, errors.New("original destination lookup is only supported on linux")
}
