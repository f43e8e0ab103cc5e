package client

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/disaster37/onstomp"
)

// Dispatcher is the session surface a Processor drives: one call per decoded
// inbound frame, in wire order, and one call per outbound frame once its
// bytes have been flushed.
type Dispatcher interface {
	DispatchReceived(onstomp.Frame)
	DispatchTransmitted(onstomp.Frame)
}

// ProcessorSignals allows granular observation of a Processor's lifecycle.
type ProcessorSignals struct {
	// AwaitReader is closed when the goroutine reading the transport is fully stopped.
	AwaitReader <-chan onstomp.Signal

	// AwaitWriter is closed when the goroutine draining the outbound queue is fully stopped.
	AwaitWriter <-chan onstomp.Signal

	// AwaitStopped is closed when all goroutines have stopped.
	AwaitStopped <-chan onstomp.Signal

	// internal handles are necessary so the processor can close() them.
	awaitReader  chan onstomp.Signal
	awaitWriter  chan onstomp.Signal
	awaitStopped chan onstomp.Signal
}

func newProcessorSignals() ProcessorSignals {
	awaitReader := make(chan onstomp.Signal)
	awaitWriter := make(chan onstomp.Signal)
	awaitStopped := make(chan onstomp.Signal)
	return ProcessorSignals{
		AwaitReader:  awaitReader,
		AwaitWriter:  awaitWriter,
		AwaitStopped: awaitStopped,
		// internal handles
		awaitReader:  awaitReader,
		awaitWriter:  awaitWriter,
		awaitStopped: awaitStopped,
	}
}

// Processor owns the background goroutines performing transport I/O for a
// session: a reader parsing inbound frames and a writer draining the
// Connection's outbound queue.
//
// Start, Stop, and Join are each safe to call more than once.  Stop ends the
// goroutines; Join only waits for the outbound queue to drain and is how the
// flush-on-disconnect contract is honored.
type Processor struct {
	// Logger!=nil means processor information is logged to the provided Logger.
	Logger onstomp.Logger

	// Signals allow granular observation of the processor's lifecycle after
	// calling Start.
	Signals ProcessorSignals

	conn     *Connection
	dispatch Dispatcher

	started         int32
	startOnce       sync.Once
	stopOnce        sync.Once
	expectReadError int32
}

// NewProcessor creates a Processor moving frames between conn and dispatch.
func NewProcessor(conn *Connection, dispatch Dispatcher) *Processor {
	return &Processor{
		Logger:   onstomp.NilLogger,
		conn:     conn,
		dispatch: dispatch,
	}
}

// Start launches the reader and writer goroutines.  The reader assumes
// exclusive access to the transport's read side; any handshake exchange must
// complete before Start.
func (p *Processor) Start() {
	p.startOnce.Do(p.start)
}

func (p *Processor) start() {
	p.Signals = newProcessorSignals()
	atomic.StoreInt32(&p.started, 1)
	//
	go func() {
		p.reader()
		close(p.Signals.awaitReader)
	}()
	go func() {
		p.writer()
		close(p.Signals.awaitWriter)
	}()
	go func() {
		<-p.Signals.AwaitReader
		<-p.Signals.AwaitWriter
		close(p.Signals.awaitStopped)
	}()
}

// Stop ends the background goroutines and closes the Connection; it returns
// once they have fully stopped.  Frames still queued are lost.
func (p *Processor) Stop() {
	if atomic.LoadInt32(&p.started) == 0 {
		return
	}
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.expectReadError, 1)
		// Closing the connection ends the writer; waking the transport read
		// ends the reader.
		_ = p.conn.Close()
		_ = p.conn.wakeReader()
	})
	<-p.Signals.AwaitStopped
}

// Join blocks until every frame queued before the call has been flushed to
// the transport and its after-transmit dispatch has run.  Join does not stop
// the processor.  Before Start there is no writer to drain the queue, so Join
// returns immediately rather than wait on frames nothing will flush.
func (p *Processor) Join() {
	if atomic.LoadInt32(&p.started) == 0 {
		return
	}
	p.conn.awaitDrain()
}

// reader parses inbound frames and dispatches them one at a time, preserving
// wire-arrival order.
func (p *Processor) reader() {
	for {
		f, err := p.conn.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if atomic.LoadInt32(&p.expectReadError) == 1 && errors.Is(err, onstomp.ErrFrame) {
				// Tearing down the transport mid-frame manufactures a frame
				// error; during Stop that is expected and quiet.
				return
			}
			p.Logger.Infof("processor: reader: %v", err.Error())
			return
		}
		p.dispatch.DispatchReceived(f)
	}
}

// writer drains the outbound queue.  Each frame is written to the transport
// and then dispatched as transmitted; Join waiters are only released after
// that dispatch so delivery observers run before a flush-disconnect returns.
func (p *Processor) writer() {
	for {
		f, ok := p.conn.pop()
		if !ok {
			return
		}
		err := p.conn.writeFrame(f)
		if err == nil {
			p.dispatch.DispatchTransmitted(f)
		}
		p.conn.wrote()
		if err != nil {
			p.Logger.Infof("processor: writer: %v", err.Error())
			// The transport is broken; closing releases queued-frame waiters
			// and makes further transmits fail at the caller.
			_ = p.conn.Close()
			return
		}
	}
}
