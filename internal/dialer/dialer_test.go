package dialer

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/die-net/redirrelay/internal/testutil"
)

type markRecorder struct {
	mu    sync.Mutex
	marks []uint32
	err   error
}

func (r *markRecorder) set(_ uintptr, mark uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, mark)
	return r.err
}

func (r *markRecorder) calls() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.marks...)
}

func TestDirectDialerMark(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hasMark   bool
		mark      uint32
		wantMarks []uint32
	}{
		{name: "no mark"},
		{name: "mark 77", hasMark: true, mark: 77, wantMarks: []uint32{77}},
		{name: "mark 0", hasMark: true, mark: 0, wantMarks: []uint32{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)

			rec := &markRecorder{}
			d := NewDirectDialer(Config{
				DialTimeout: 2 * time.Second,
				Mark:        tt.mark,
				HasMark:     tt.hasMark,
				MarkFunc:    rec.set,
			})

			conn, err := d.DialContext(ctx, "tcp4", echoLn.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			testutil.AssertEcho(t, conn, conn, []byte("hello"))

			got := rec.calls()
			if len(got) != len(tt.wantMarks) {
				t.Fatalf("mark calls %v want %v", got, tt.wantMarks)
			}
			for i := range got {
				if got[i] != tt.wantMarks[i] {
					t.Fatalf("mark calls %v want %v", got, tt.wantMarks)
				}
			}
		})
	}
}

func TestDirectDialerMarkFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan struct{}, 1)
	ln, wait := testutil.StartSingleAcceptServer(t, ctx, func(net.Conn) {
		accepted <- struct{}{}
	})

	rec := &markRecorder{err: syscall.EPERM}
	d := NewDirectDialer(Config{Mark: 77, HasMark: true, MarkFunc: rec.set})

	_, err := d.DialContext(ctx, "tcp4", ln.Addr().String())
	if !errors.Is(err, ErrMark) {
		t.Fatalf("got %v want %v", err, ErrMark)
	}
	if !errors.Is(err, syscall.EPERM) {
		t.Fatalf("got %v want underlying %v", err, syscall.EPERM)
	}
	if errors.Is(err, ErrConnect) {
		t.Fatalf("mark failure reported as connect failure: %v", err)
	}

	wait()
	select {
	case <-accepted:
		t.Fatal("upstream accepted a connection after the mark failed")
	default:
	}
}

func TestDirectDialerConnectFailure(t *testing.T) {
	t.Parallel()

	d := NewDirectDialer(Config{DialTimeout: 2 * time.Second})

	_, err := d.DialContext(context.Background(), "tcp4", testutil.ClosedTCPAddr(t))
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("got %v want %v", err, ErrConnect)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("got %v want underlying %v", err, syscall.ECONNREFUSED)
	}
}

func TestDirectDialerContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDirectDialer(Config{})
	_, err := d.DialContext(ctx, "tcp4", "127.0.0.1:9")
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("got %v want %v", err, ErrConnect)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want %v", err, context.Canceled)
	}
}
