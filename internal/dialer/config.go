package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds the connect. Zero leaves it to the OS.
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// Mark is the routing mark (SO_MARK) for outbound sockets. It is only
	// applied when HasMark is set, so a mark of 0 can be configured too.
	Mark    uint32
	HasMark bool

	// MarkFunc applies the mark to a raw socket. Nil uses SO_MARK.
	MarkFunc func(fd uintptr, mark uint32) error
}
