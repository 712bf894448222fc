package tproxy

import (
	"fmt"
	"io"
	"log"
	"net/netip"

	"github.com/die-net/redirrelay/internal/relay"
)

type EventType int

const (
	EventConnected EventType = iota + 1
	EventDisconnected
	EventFailed
)

// Event is one connection lifecycle transition.
type Event struct {
	Type EventType
	Peer string
	Dst  netip.AddrPort // invalid if resolution failed

	Stats relay.Stats // EventDisconnected
	Err   *Error      // EventFailed
}

func (ev Event) String() string {
	switch ev.Type {
	case EventConnected:
		return fmt.Sprintf("%s -> %s connected", ev.Peer, ev.Dst)
	case EventDisconnected:
		return fmt.Sprintf("%s -> %s done: %d byte sent, %d byte received", ev.Peer, ev.Dst, ev.Stats.Sent, ev.Stats.Received)
	case EventFailed:
		return ev.failure()
	default:
		return fmt.Sprintf("%s -> %s unknown event %d", ev.Peer, ev.Dst, ev.Type)
	}
}

func (ev Event) failure() string {
	if ev.Err == nil {
		return fmt.Sprintf("%s -> %s failed", ev.Peer, ev.Dst)
	}
	var cause error = ev.Err
	if ev.Err.Err != nil {
		cause = ev.Err.Err
	}
	switch {
	case ev.Err.Kind == KindResolution:
		return fmt.Sprintf("%s -> failed to get the original destination: %v", ev.Peer, cause)
	case ev.Err.Kind == KindRelay:
		return fmt.Sprintf("%s -> %s error: %v", ev.Peer, ev.Dst, cause)
	case !ev.Dst.IsValid():
		return fmt.Sprintf("%s -> %v", ev.Peer, ev.Err)
	default:
		return fmt.Sprintf("%s -> %s failed: %v", ev.Peer, ev.Dst, cause)
	}
}

// EventLogger receives connection lifecycle events. It is called from many
// goroutines at once.
type EventLogger interface {
	LogEvent(ev Event)
}

// StdLogger writes one line per event, without a timestamp prefix.
type StdLogger struct {
	l *log.Logger
}

func NewStdLogger(w io.Writer) *StdLogger {
	return &StdLogger{l: log.New(w, "", 0)}
}

func (s *StdLogger) LogEvent(ev Event) {
	s.l.Print(ev.String())
}
