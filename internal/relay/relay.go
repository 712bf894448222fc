package relay

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Conn is a duplex byte stream whose write side can be shut down while the
// read side stays open. *net.TCPConn implements it.
type Conn interface {
	io.ReadWriteCloser
	CloseWrite() error
}

// Stats holds the number of bytes copied in each direction.
type Stats struct {
	Sent     int64 // client -> upstream
	Received int64 // upstream -> client
}

type options struct {
	idleTimeout time.Duration
	pool        *bufferPool

	// lastRead is the UnixNano time of the last successful read in either
	// direction.
	lastRead atomic.Int64
}

type Option func(*options)

// WithIdleTimeout aborts the relay once no data has been read in either
// direction for d. A direction that already ended does not keep the relay
// alive. It only applies to streams that support SetReadDeadline. Zero
// disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// Relay copies client->upstream and upstream->client concurrently and
// returns once both directions have reached end-of-stream. Both streams are
// closed before Relay returns.
//
// If either direction fails, or ctx is canceled, both streams are closed
// immediately and the error is returned. Stats are best effort in that case.
func Relay(ctx context.Context, client, upstream Conn, opts ...Option) (Stats, error) {
	o := &options{pool: defaultPool}
	for _, opt := range opts {
		opt(o)
	}
	o.lastRead.Store(time.Now().UnixNano())

	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = upstream.Close()
		})
	}
	defer closeBoth()

	// Unblock both copies on the first error or when ctx is canceled.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	var st Stats
	g.Go(func() error {
		n, err := o.copyHalf(upstream, client)
		st.Sent = n
		return err
	})
	g.Go(func() error {
		n, err := o.copyHalf(client, upstream)
		st.Received = n
		return err
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return st, ctxErr
		}
		return st, err
	}
	return st, nil
}

// copyHalf copies src into dst until src ends, then half-closes dst.
func (o *options) copyHalf(dst, src Conn) (int64, error) {
	buf := o.pool.Get()
	defer o.pool.Put(buf)

	var r io.Reader = src
	if o.idleTimeout > 0 {
		if rd, ok := src.(readDeadliner); ok {
			r = &idleReader{src: rd, timeout: o.idleTimeout, lastRead: &o.lastRead}
		}
	}

	n, err := io.CopyBuffer(dst, r, buf)
	if err != nil {
		return n, err
	}

	// A peer that already reset the connection can fail CloseWrite; the
	// other direction reports that on its own.
	_ = dst.CloseWrite()
	return n, nil
}

type readDeadliner interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// idleReader pushes the read deadline forward before every read. When the
// deadline fires but the other direction read something since, the deadline
// is re-armed from that read instead of failing.
type idleReader struct {
	src      readDeadliner
	timeout  time.Duration
	lastRead *atomic.Int64
}

func (r *idleReader) Read(p []byte) (int, error) {
	deadline := time.Now().Add(r.timeout)
	for {
		if err := r.src.SetReadDeadline(deadline); err != nil {
			return 0, err
		}
		n, err := r.src.Read(p)
		if n > 0 {
			r.lastRead.Store(time.Now().UnixNano())
		}
		if n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
			deadline = time.Unix(0, r.lastRead.Load()).Add(r.timeout)
			if time.Now().Before(deadline) {
				continue
			}
		}
		return n, err
	}
}
