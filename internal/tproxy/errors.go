package tproxy

import (
	"errors"
	"net/netip"

	"github.com/die-net/redirrelay/internal/metrics"
)

// Kind classifies where a relay error happened.
type Kind int

const (
	KindUnknown Kind = iota
	// Connection-scoped.
	KindResolution
	KindMark
	KindConnect
	KindRelay
	// Process-scoped.
	KindBind
	KindAccept
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution failed"
	case KindMark:
		return "mark application failed"
	case KindConnect:
		return "connect failed"
	case KindRelay:
		return "relay failed"
	case KindBind:
		return "bind failed"
	case KindAccept:
		return "accept loop failed"
	default:
		return "unknown failure"
	}
}

// Fatal reports whether errors of this kind end the process.
func (k Kind) Fatal() bool {
	return k == KindBind || k == KindAccept
}

func (k Kind) result() string {
	switch k {
	case KindResolution:
		return metrics.ResultResolutionFailed
	case KindMark:
		return metrics.ResultMarkFailed
	case KindConnect:
		return metrics.ResultConnectFailed
	default:
		return metrics.ResultRelayFailed
	}
}

// Error is a classified relay error. Peer and Dst are empty when unknown.
type Error struct {
	Kind Kind
	Peer string
	Dst  netip.AddrPort
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
