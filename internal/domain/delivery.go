package domain

// Delivery is one unacknowledged message pulled from the work queue.
// Exactly one of Ack or Reject must be called for every delivery; the queue
// keeps the message until then and redelivers it if the consumer disconnects.
type Delivery struct {
	Body        []byte
	MessageID   string
	Redelivered bool

	// Ack removes the message from the queue.
	Ack func() error
	// Reject refuses the message. With requeue the broker redelivers it;
	// without, the message is dropped (or dead-lettered by broker policy).
	Reject func(requeue bool) error
}
