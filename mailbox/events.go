package mailbox

import "sync"

// Message is anything a Mailbox carries: a request, a response, or an
// exception value routed as a response. The mailbox package stays
// oblivious to which — that distinction belongs to the actor package that
// builds on top of this one, not to the buffering plumbing underneath it.
type Message = any

// BufferedEventsQueue accumulates outgoing messages per destination
// mailbox and flushes them as batches, so dispatching many small messages
// to the same peer costs one handoff instead of one per message.
//
// Messages enqueued for the same destination are flushed in the order
// they were sent; there is no ordering guarantee across destinations.
type BufferedEventsQueue struct {
	mu              sync.Mutex
	buckets         map[*Mailbox][]Message
	initialCapacity int
}

// NewBufferedEventsQueue creates an empty queue. initialCapacity seeds the
// backing slice of every bucket created on first Send to a destination.
func NewBufferedEventsQueue(initialCapacity int) *BufferedEventsQueue {
	if initialCapacity <= 0 {
		initialCapacity = DefaultConfig().InitialBufferCapacity
	}
	return &BufferedEventsQueue{
		buckets:         make(map[*Mailbox][]Message),
		initialCapacity: initialCapacity,
	}
}

// SetInitialCapacity changes the capacity hint applied to buckets created
// from this point on. Buckets already allocated keep their size.
func (q *BufferedEventsQueue) SetInitialCapacity(n int) {
	q.mu.Lock()
	if n > 0 {
		q.initialCapacity = n
	}
	q.mu.Unlock()
}

// Send appends msg to the bucket for destination. It does not deliver
// anything until DispatchEvents runs.
func (q *BufferedEventsQueue) Send(destination *Mailbox, msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	bucket, ok := q.buckets[destination]
	if !ok {
		bucket = make([]Message, 0, q.initialCapacity)
	}
	q.buckets[destination] = append(bucket, msg)
}

// DispatchEvents delivers every bucket to its destination's inbound queue,
// in program order within a bucket, and clears the queue. Flushing an
// empty queue is a no-op.
func (q *BufferedEventsQueue) DispatchEvents() {
	q.mu.Lock()
	if len(q.buckets) == 0 {
		q.mu.Unlock()
		return
	}
	buckets := q.buckets
	q.buckets = make(map[*Mailbox][]Message)
	q.mu.Unlock()

	for destination, msgs := range buckets {
		for _, msg := range msgs {
			destination.enqueueInbound(msg)
		}
	}
}
