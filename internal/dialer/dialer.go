package dialer

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrMark is wrapped by dial errors caused by failing to set the
	// routing mark. No connect was attempted on that socket.
	ErrMark = errors.New("set routing mark")

	// ErrConnect is wrapped by dial errors caused by the connect itself.
	ErrConnect = errors.New("connect upstream")
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
