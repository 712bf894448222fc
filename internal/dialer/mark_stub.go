//go:build !linux

package dialer

import (
	"errors"
)

// MarkSupported reports whether outbound sockets can carry a routing mark.
const MarkSupported = false

func setSocketMark(_ uintptr, _ uint32) error {
	return errors.New("routing marks are only supported on linux")
}
