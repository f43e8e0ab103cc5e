package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/disaster37/onstomp"
	"github.com/disaster37/onstomp/client"
	"github.com/disaster37/onstomp/frames"
)

func TestProcessor_StopEndsGoroutines(t *testing.T) {
	// Stop must end both goroutines even while the reader is blocked on an
	// idle transport; the blocked read is woken through the pipe's CloseRead.
	chk := assert.New(t)
	local, remote := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	proc := sess.Processor()
	//
	proc.Start()
	proc.Stop()
	select {
	case <-proc.Signals.AwaitStopped:
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not stop")
	}
	//
	// Stop is idempotent.
	proc.Stop()
	chk.False(sess.Connection().Connected())
	_ = remote
}

func TestProcessor_StopBeforeStart(t *testing.T) {
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	// Not started; Stop has nothing to wait on and must not block.
	sess.Processor().Stop()
}

func TestProcessor_JoinIdleReturns(t *testing.T) {
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	// Nothing queued; Join returns without the processor ever starting.
	sess.Processor().Join()
}

func TestProcessor_DispatchPreservesWireOrder(t *testing.T) {
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	proc := sess.Processor()
	proc.Start()
	//
	got := make(chan string, 3)
	sess.Events().BeforeReceive(func(f onstomp.Frame) {
		got <- f.Header(onstomp.HeaderMessageID)
	})
	//
	for _, id := range []string{"m-1", "m-2", "m-3"} {
		b.write(frames.Message("/queue/order", "s-1", id, nil))
	}
	chk.Equal("m-1", <-got)
	chk.Equal("m-2", <-got)
	chk.Equal("m-3", <-got)
	//
	proc.Stop()
}
