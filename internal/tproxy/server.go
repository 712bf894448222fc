package tproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/die-net/redirrelay/internal/dialer"
	"github.com/die-net/redirrelay/internal/metrics"
	"github.com/die-net/redirrelay/internal/relay"
)

type Config struct {
	Dialer dialer.Dialer

	// Resolver defaults to NATResolver.
	Resolver Resolver

	// Events defaults to a StdLogger on stdout.
	Events EventLogger

	Metrics *metrics.Metrics

	// IdleTimeout ends a relay whose open directions have been silent this
	// long. Zero disables it.
	IdleTimeout time.Duration
}

type Server struct {
	ctx context.Context
	cfg Config
}

func NewServer(ctx context.Context, cfg Config) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NATResolver{}
	}
	if cfg.Events == nil {
		cfg.Events = NewStdLogger(os.Stdout)
	}
	return &Server{ctx: ctx, cfg: cfg}
}

// Serve accepts connections until ln fails. Every connection is handled on
// its own goroutine. An accept error is returned as a KindAccept *Error,
// except when the server's context is done and ln was closed, which returns
// nil.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
				return nil
			}
			return &Error{Kind: KindAccept, Err: fmt.Errorf("accept: %w", err)}
		}
		go s.handle(c)
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()
	s.cfg.Metrics.ConnectionStarted()

	peer := c.RemoteAddr().String()

	dst, err := s.cfg.Resolver.OriginalDst(c)
	if err != nil {
		s.fail(&Error{Kind: KindResolution, Peer: peer, Err: err})
		return
	}

	up, err := s.cfg.Dialer.DialContext(s.ctx, "tcp4", dst.String())
	if err != nil {
		kind := KindConnect
		if errors.Is(err, dialer.ErrMark) {
			kind = KindMark
		}
		s.fail(&Error{Kind: kind, Peer: peer, Dst: dst, Err: err})
		return
	}
	defer up.Close()

	client, ok := c.(relay.Conn)
	if !ok {
		s.fail(&Error{Kind: KindRelay, Peer: peer, Dst: dst, Err: fmt.Errorf("inbound %T cannot half-close", c)})
		return
	}
	upstream, ok := up.(relay.Conn)
	if !ok {
		s.fail(&Error{Kind: KindRelay, Peer: peer, Dst: dst, Err: fmt.Errorf("outbound %T cannot half-close", up)})
		return
	}

	s.cfg.Events.LogEvent(Event{Type: EventConnected, Peer: peer, Dst: dst})

	st, err := relay.Relay(s.ctx, client, upstream, relay.WithIdleTimeout(s.cfg.IdleTimeout))
	s.cfg.Metrics.AddBytes(st.Sent, st.Received)
	if err != nil {
		s.fail(&Error{Kind: KindRelay, Peer: peer, Dst: dst, Err: err})
		return
	}

	s.cfg.Metrics.ConnectionFinished(metrics.ResultClosed)
	s.cfg.Events.LogEvent(Event{Type: EventDisconnected, Peer: peer, Dst: dst, Stats: st})
}

func (s *Server) fail(e *Error) {
	s.cfg.Metrics.ConnectionFinished(e.Kind.result())
	s.cfg.Events.LogEvent(Event{Type: EventFailed, Peer: e.Peer, Dst: e.Dst, Err: e})
}
