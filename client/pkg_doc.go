// Package client contains the client-side STOMP session core.
//
// A Session mediates between an application and a message broker: frame
// request methods (Send, Subscribe, Ack, ...) build protocol frames through a
// version-aware Connection, transmit them asynchronously, and asynchronous
// broker replies (RECEIPT, MESSAGE) are routed back to caller-supplied
// callbacks by two correlation registries.  A background Processor owns the
// transport I/O; an EventBus exposes ordered before/after transmit and
// receive hooks plus the lifecycle hooks.
//
// TODO
//
// Heart-beating.  Beat transmits a single heartbeat; there is no timer
// scheduling outbound beats or policing missing inbound ones yet.
package client
