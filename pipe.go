package onstomp

import "io"

// PipeEnd is one endpoint of an in-memory duplex STOMP link.
//
// Each endpoint holds a handle to the remote endpoint's writer so that
// closing either side wakes a reader blocked on the other; io.Pipe readers
// block indefinitely otherwise.
type PipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter

	// remoteW is the writer feeding our r.
	remoteW *io.PipeWriter
}

// Pipe creates a pair of endpoints linked by memory pipes; bytes written to
// one are read from the other.
func Pipe() (*PipeEnd, *PipeEnd) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := &PipeEnd{r: ar, w: aw, remoteW: bw}
	b := &PipeEnd{r: br, w: bw, remoteW: aw}
	return a, b
}

// Read implements io.Reader.
func (p *PipeEnd) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write implements io.Writer.
func (p *PipeEnd) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// CloseRead unblocks and ends any pending or future Read with io.EOF by
// closing the remote writer.  The docs for CloseWithError say it always
// returns nil.
func (p *PipeEnd) CloseRead() error {
	return p.remoteW.CloseWithError(io.EOF)
}

// Close closes both directions of the endpoint.  The remote endpoint's reads
// return io.EOF and our own blocked reads are woken.
func (p *PipeEnd) Close() error {
	err := p.w.Close()
	if e := p.CloseRead(); e != nil && err == nil {
		err = e
	}
	return err
}
