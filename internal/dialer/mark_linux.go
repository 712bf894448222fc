//go:build linux

package dialer

import (
	"golang.org/x/sys/unix"
)

// MarkSupported reports whether outbound sockets can carry a routing mark.
const MarkSupported = true

func setSocketMark(fd uintptr, mark uint32) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark))
}
