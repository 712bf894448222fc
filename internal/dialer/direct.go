package dialer

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

type directDialer struct {
	cfg      Config
	markFunc func(fd uintptr, mark uint32) error
}

func NewDirectDialer(cfg Config) Dialer {
	d := &directDialer{cfg: cfg, markFunc: cfg.MarkFunc}
	if d.markFunc == nil {
		d.markFunc = setSocketMark
	}
	return d
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dd := net.Dialer{Timeout: d.cfg.DialTimeout}

	var markErr error
	if d.cfg.HasMark {
		dd.Control = func(_, _ string, c syscall.RawConn) error {
			err := c.Control(func(fd uintptr) {
				markErr = d.markFunc(fd, d.cfg.Mark)
			})
			if err != nil {
				return err
			}
			return markErr
		}
	}

	conn, err := dd.DialContext(ctx, network, address)
	if err != nil {
		if markErr != nil {
			return nil, fmt.Errorf("%w %d on %s %s: %w", ErrMark, d.cfg.Mark, network, address, markErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}
