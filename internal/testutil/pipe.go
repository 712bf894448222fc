package testutil

import (
	"io"
	"sync"
)

// PipeConn is one end of an in-memory duplex stream that supports
// half-close. Writes block until the other end reads them.
type PipeConn struct {
	r *io.PipeReader
	w *io.PipeWriter

	closeOnce sync.Once
}

// Pipe returns two connected ends. Data written to a is read from b and vice
// versa. CloseWrite on one end makes reads on the other return io.EOF.
func Pipe() (*PipeConn, *PipeConn) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &PipeConn{r: ar, w: aw}, &PipeConn{r: br, w: bw}
}

func (p *PipeConn) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *PipeConn) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

func (p *PipeConn) CloseWrite() error {
	return p.w.Close()
}

// Close shuts down both directions. Pending and future writes from the
// other end fail with io.ErrClosedPipe.
func (p *PipeConn) Close() error {
	p.closeOnce.Do(func() {
		_ = p.w.Close()
		_ = p.r.Close()
	})
	return nil
}
