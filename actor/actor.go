package actor

import "github.com/lguibr/lpcactor/mailbox"

// Actor is the only capability the dispatch core requires from user code:
// process a request and eventually call continuation, at most once.
// continuation may be ignored entirely for fire-and-forget work.
type Actor interface {
	ProcessRequest(payload any, continuation Continuation)
}

// MailboxFactory is the construction contract a mailbox factory
// satisfies: produce a mailbox bound either to an independent worker
// (async) or to no worker at all (sync, driven by whoever currently holds
// its control token). Thread-binding policy beyond that is opaque here.
type MailboxFactory interface {
	NewMailbox(async bool, cfg mailbox.Config) *mailbox.Mailbox
}

// BaseActor gives a concrete actor type the bookkeeping every spawned
// actor needs — its own mailbox, the factory that built it, its PID, and
// a way to call back into the owning Engine — without each actor
// repeating the wiring by hand. Embed it and implement ProcessRequest.
type BaseActor struct {
	mb      *mailbox.Mailbox
	factory MailboxFactory
	engine  *Engine
	self    *PID
}

func (b *BaseActor) bind(mb *mailbox.Mailbox, factory MailboxFactory, engine *Engine, self *PID) {
	b.mb = mb
	b.factory = factory
	b.engine = engine
	b.self = self
}

// Self returns this actor's own PID.
func (b *BaseActor) Self() *PID { return b.self }

// GetMailbox returns the mailbox this actor was spawned onto.
func (b *BaseActor) GetMailbox() *mailbox.Mailbox { return b.mb }

// GetMailboxFactory returns the factory used to construct this actor's
// mailbox, so the actor can spawn children on compatible mailboxes.
func (b *BaseActor) GetMailboxFactory() MailboxFactory { return b.factory }

// GetExceptionHandler returns the handler currently installed for the
// request this actor is processing, or nil.
func (b *BaseActor) GetExceptionHandler() func(error) {
	if b.mb == nil {
		return nil
	}
	return b.mb.ExceptionHandler()
}

// SetExceptionHandler installs h as the handler for the request this
// actor is currently processing.
func (b *BaseActor) SetExceptionHandler(h func(error)) {
	if b.mb != nil {
		b.mb.SetExceptionHandler(h)
	}
}

// SetInitialBufferCapacity changes the capacity hint used for this
// actor's outbound buckets going forward.
func (b *BaseActor) SetInitialBufferCapacity(n int) {
	if b.mb != nil {
		b.mb.SetInitialBufferCapacity(n)
	}
}

// Send dispatches payload from this actor to target, running the same
// decision tree Engine.Send uses for any other caller.
func (b *BaseActor) Send(target *PID, payload any, continuation Continuation) error {
	return b.engine.Send(b.self, target, payload, continuation)
}
