// Package mailbox implements the state machine at the center of the LPC
// dispatch engine: the inbound queue, the outbound buffered-events queue,
// and the controlling-mailbox lock token that the actor package's
// dispatch core transfers between cooperating mailboxes.
//
// This package is deliberately blind to Request/Response semantics — it
// only knows about Message (an opaque payload) and PendingRequest (a
// one-shot response sink). That keeps the dependency graph acyclic: actor
// depends on mailbox, never the reverse.
package mailbox

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// PendingRequest is the minimal capability Mailbox needs from whatever is
// installed as the current request: the ability to deliver exactly one
// response and silently ignore the rest.
type PendingRequest interface {
	// Respond delivers payload as the response for this request. It
	// returns true the first time it's called for a given request and
	// false on every subsequent call, so duplicate responses are
	// silently dropped.
	Respond(payload any) bool
}

// Mailbox is a single actor's (or group of cooperating actors') serial
// execution context: an inbound queue, outbound buckets grouped by
// destination, a current-request slot, and the controlling-mailbox token
// that names who currently has the right to run work on it.
type Mailbox struct {
	id    uuid.UUID
	async bool

	inboundMu sync.Mutex
	inbound   []Message
	notify    chan struct{}
	closed    chan struct{}

	outbound *BufferedEventsQueue

	controlling atomic.Pointer[Mailbox]

	stateMu          sync.Mutex
	current          PendingRequest
	exceptionHandler func(error)
	deliver          func(Message)
	onEvents         func()

	initialBufferCapacity int
}

// New creates a Mailbox. async marks whether this mailbox is backed by an
// independent worker (see mailboxfactory) — crossing into an async
// mailbox always requires queued delivery, never an inline call.
func New(async bool, cfg Config) *Mailbox {
	m := &Mailbox{
		id:                    uuid.New(),
		async:                 async,
		notify:                make(chan struct{}, 1),
		closed:                make(chan struct{}),
		initialBufferCapacity: cfg.InitialBufferCapacity,
	}
	m.outbound = NewBufferedEventsQueue(cfg.InitialBufferCapacity)
	m.controlling.Store(m)
	return m
}

// ID returns the mailbox's process-unique identity. Two Mailbox values
// are never equal by ID unless they are the same instance.
func (m *Mailbox) ID() uuid.UUID { return m.id }

// IsAsync reports whether this mailbox is bound to an independent worker.
func (m *Mailbox) IsAsync() bool { return m.async }

// ControllingMailbox returns the mailbox that currently holds execution
// rights over m. It equals m itself when no cross-mailbox loan is active.
func (m *Mailbox) ControllingMailbox() *Mailbox { return m.controlling.Load() }

// AcquireControl is a non-blocking try-lock: if m is currently free (its
// controlling mailbox is itself) or already held by candidate, control is
// set to candidate and true is returned. Otherwise it fails immediately —
// this method never blocks or retries.
func (m *Mailbox) AcquireControl(candidate *Mailbox) bool {
	cur := m.controlling.Load()
	if cur == candidate {
		return true
	}
	if cur != m {
		return false
	}
	return m.controlling.CompareAndSwap(m, candidate)
}

// RelinquishControl resets the controlling mailbox back to m itself.
func (m *Mailbox) RelinquishControl() { m.controlling.Store(m) }

// SetCurrentRequest installs req as the target of the next Response call.
func (m *Mailbox) SetCurrentRequest(req PendingRequest) {
	m.stateMu.Lock()
	m.current = req
	m.stateMu.Unlock()
}

// Response delivers payload to whatever was last installed via
// SetCurrentRequest. A nil current request is a silent no-op; a request
// that already responded stays installed and drops the payload itself
// (PendingRequest's one-response rule).
func (m *Mailbox) Response(payload any) {
	m.stateMu.Lock()
	cur := m.current
	m.stateMu.Unlock()
	if cur == nil {
		return
	}
	cur.Respond(payload)
}

// ExceptionHandler returns the handler active for the request currently
// being processed, or nil.
func (m *Mailbox) ExceptionHandler() func(error) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.exceptionHandler
}

// SetExceptionHandler installs the handler active for the request
// currently being processed.
func (m *Mailbox) SetExceptionHandler(h func(error)) {
	m.stateMu.Lock()
	m.exceptionHandler = h
	m.stateMu.Unlock()
}

// SetDeliver installs the callback DispatchRemaining (and an async
// mailbox's worker loop) uses to process an inbound message. The actor
// package's Engine wires this when it spawns an actor onto this mailbox.
func (m *Mailbox) SetDeliver(fn func(Message)) {
	m.stateMu.Lock()
	m.deliver = fn
	m.stateMu.Unlock()
}

func (m *Mailbox) getDeliver() func(Message) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.deliver
}

// SetOnEvents installs the hook m calls whenever a message lands on its
// inbound queue — the way a spawned actor's processor learns new work has
// arrived so it can flush whatever it already has buffered to send out,
// the same moment it has something new to react to.
func (m *Mailbox) SetOnEvents(fn func()) {
	m.stateMu.Lock()
	m.onEvents = fn
	m.stateMu.Unlock()
}

func (m *Mailbox) getOnEvents() func() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.onEvents
}

// Send enqueues msg onto this mailbox's outbound bucket for destination.
// It does not deliver until a flush (SendPendingMessages).
func (m *Mailbox) Send(destination *Mailbox, msg Message) {
	m.outbound.Send(destination, msg)
}

// SendPendingMessages flushes this mailbox's outbound buckets to their
// destinations' inbound queues.
func (m *Mailbox) SendPendingMessages() {
	m.outbound.DispatchEvents()
}

// enqueueInbound appends msg to the inbound queue and wakes any waiting
// consumer. It is the only way a message enters inbound, whether via a
// BufferedEventsQueue flush or a direct same-process handoff.
func (m *Mailbox) enqueueInbound(msg Message) {
	m.inboundMu.Lock()
	m.inbound = append(m.inbound, msg)
	m.inboundMu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
	if fn := m.getOnEvents(); fn != nil {
		fn()
	}
}

// PopInbound removes and returns the oldest inbound message, if any.
func (m *Mailbox) PopInbound() (Message, bool) {
	m.inboundMu.Lock()
	defer m.inboundMu.Unlock()
	if len(m.inbound) == 0 {
		return nil, false
	}
	msg := m.inbound[0]
	m.inbound = m.inbound[1:]
	return msg, true
}

// Wait blocks until a message is available or the mailbox is closed. It
// returns false only on close, so an async worker's loop reads:
//
//	for m.Wait() {
//	    for { msg, ok := m.PopInbound(); ... }
//	}
func (m *Mailbox) Wait() bool {
	select {
	case <-m.notify:
		return true
	case <-m.closed:
		return false
	}
}

// Closed returns a channel that is closed when the mailbox is closed.
func (m *Mailbox) Closed() <-chan struct{} { return m.closed }

// Close stops any worker blocked in Wait. Closing twice is safe.
func (m *Mailbox) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// DispatchRemaining drains every message that accumulated on m's inbound
// queue while it was loaned to a peer, then restores m's controlling
// mailbox to self.
//
// The drain runs under originalController's identity rather than m's own:
// only m's current controller may pop and deliver its own backlog, and by
// the time this runs RelinquishControl has already freed m, so
// originalController — the peer that held the loan and is still on the
// stack that got us here — briefly reacquires it to stay the legal holder
// for the duration of the drain. Control reverts to self once the backlog
// is empty.
func (m *Mailbox) DispatchRemaining(originalController *Mailbox) {
	m.controlling.Store(originalController)
	for {
		msg, ok := m.PopInbound()
		if !ok {
			break
		}
		m.DeliverOne(msg)
	}
	m.controlling.Store(m)
}

// DeliverOne runs the registered delivery callback for msg, if any. It is
// the operation an async mailbox's worker calls once per popped message,
// and what DispatchRemaining uses to replay a backlog.
func (m *Mailbox) DeliverOne(msg Message) {
	if d := m.getDeliver(); d != nil {
		d(msg)
	}
}

// DeliverInbound hands msg directly to m's inbound queue, waking any
// worker blocked in Wait, without going through an explicit
// BufferedEventsQueue flush. Used when a message needs to ride the normal
// queued-delivery path but there is no natural per-destination batch to
// send it through (for example, a deferred response completing later on
// a different mailbox).
func (m *Mailbox) DeliverInbound(msg Message) {
	m.enqueueInbound(msg)
}

// DrainIfFree processes every currently queued inbound message immediately,
// but only if nobody currently controls m. A sync mailbox has no dedicated
// worker: ordinarily that's fine because whoever holds its control token
// drains its backlog before relinquishing, but a message can also land on
// an inbound queue that was never loaned out at all (a deferred response
// arriving after the loan that produced it already released control). In
// that case nobody is coming to drain it except whoever just delivered it.
//
// Claiming m for the drain goes through the same CompareAndSwap any real
// peer loan uses, against a reserved sentinel rather than m itself: m
// passed as its own candidate would hit AcquireControl's cur == candidate
// fast path and report success for every concurrent caller without ever
// touching the token, letting two drains run DeliverOne at once. CAS-ing
// to drainToken first means only one caller ever observes the swap.
func (m *Mailbox) DrainIfFree() {
	if m.async {
		return
	}
	if !m.controlling.CompareAndSwap(m, drainToken) {
		return
	}
	for {
		msg, ok := m.PopInbound()
		if !ok {
			break
		}
		m.DeliverOne(msg)
	}
	m.RelinquishControl()
}

// drainToken is a reserved sentinel marking "a DrainIfFree call currently
// owns this mailbox" — distinct from every real Mailbox so it can never
// collide with an actual peer's control claim.
var drainToken = &Mailbox{}

// SetInitialBufferCapacity changes the capacity hint applied to this
// mailbox's outbound buckets from this point on.
func (m *Mailbox) SetInitialBufferCapacity(n int) {
	m.initialBufferCapacity = n
	m.outbound.SetInitialCapacity(n)
}
