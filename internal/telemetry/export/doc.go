/*
Package export batches telemetry records and ships them off the request path.

An Exporter buffers records in a bounded FIFO queue. A single background
drainer flushes the queue on a fixed interval or as soon as the queue holds a
full export batch. Producers never wait on the network: Enqueue takes a short
lock around an append and returns.

# Backpressure

When the queue is full the incoming record is dropped (newest-drop) and the
drop counter is incremented. Failed exports are discarded, not retried, so
memory stays bounded when the backend is down.

# Lifecycle

	Idle -> Accumulating -> Flushing -> Idle ...
	          Shutdown: Draining -> Closed

Shutdown performs exactly one final flush within its deadline. Records
enqueued after that are dropped silently.
*/
package export
