package actor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lguibr/lpcactor/internal/obslog"
	"github.com/lguibr/lpcactor/mailbox"
)

// PID is a unique, comparable reference to a spawned actor, the way
// bollywood's PID names a process registered with an Engine.
type PID struct {
	id uuid.UUID
	mb *mailbox.Mailbox
}

func (p *PID) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.id.String()
}

type spawned struct {
	pid       *PID
	mb        *mailbox.Mailbox
	source    *sourceAdapter
	processor *processorAdapter
}

// Engine is the actor registry: it spawns actors onto mailboxes built by
// a MailboxFactory, looks adapters up by PID, and runs Send's decision
// tree on every cross-actor call.
type Engine struct {
	factory MailboxFactory

	mu     sync.RWMutex
	actors map[uuid.UUID]*spawned
}

// NewEngine creates an Engine that builds mailboxes via factory.
func NewEngine(factory MailboxFactory) *Engine {
	return &Engine{factory: factory, actors: make(map[uuid.UUID]*spawned)}
}

type binder interface {
	bind(mb *mailbox.Mailbox, factory MailboxFactory, engine *Engine, self *PID)
}

// Spawn constructs a mailbox for a (bound to an independent worker
// whenever async is true) and registers it for lookup by PID. If a
// embeds BaseActor, that embedding is wired up automatically.
func (e *Engine) Spawn(a Actor, async bool, cfg mailbox.Config) *PID {
	mb := e.factory.NewMailbox(async, cfg)
	pid := &PID{id: uuid.New(), mb: mb}

	source := newSourceAdapter(mb)
	processor := newProcessorAdapter(mb, a)
	mb.SetDeliver(deliverMessage(mb))
	mb.SetOnEvents(processor.HaveEvents)

	if b, ok := a.(binder); ok {
		b.bind(mb, e.factory, e, pid)
	}

	sp := &spawned{pid: pid, mb: mb, source: source, processor: processor}
	e.mu.Lock()
	e.actors[pid.id] = sp
	e.mu.Unlock()

	obslog.Log.Debugf("actor: spawned %s (async=%v)", pid, async)
	return pid
}

// Source returns the RequestSource adapter for pid, or nil if unknown.
func (e *Engine) Source(pid *PID) RequestSource {
	sp := e.lookup(pid)
	if sp == nil {
		return nil
	}
	return sp.source
}

// Processor returns the RequestProcessor adapter for pid, or nil if
// unknown.
func (e *Engine) Processor(pid *PID) RequestProcessor {
	sp := e.lookup(pid)
	if sp == nil {
		return nil
	}
	return sp.processor
}

// Mailbox returns the mailbox backing pid, or nil if unknown.
func (e *Engine) Mailbox(pid *PID) *mailbox.Mailbox {
	sp := e.lookup(pid)
	if sp == nil {
		return nil
	}
	return sp.mb
}

func (e *Engine) lookup(pid *PID) *spawned {
	if pid == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.actors[pid.id]
}

// Send dispatches payload from fromPID (nil for an external caller with
// no mailbox of its own) to toPID, running Send's five-rule decision
// tree to pick how it runs.
func (e *Engine) Send(fromPID *PID, toPID *PID, payload any, continuation Continuation) error {
	target := e.Processor(toPID)
	targetMailbox := e.Mailbox(toPID)
	if target == nil || targetMailbox == nil {
		return fmt.Errorf("actor: unknown target %v", toPID)
	}

	var source RequestSource
	if fromPID != nil {
		source = e.Source(fromPID)
		if source == nil {
			return fmt.Errorf("actor: unknown source %v", fromPID)
		}
	} else {
		// A caller with no actor of its own still needs a mailbox
		// identity to loan against a sync target: synthesize a
		// throwaway one, used once and then discarded, rather than
		// forcing every entry call through the queued path regardless
		// of whether the target could have run it inline. It gets the same
		// delivery callback a spawned actor's mailbox gets, so a response
		// routed back onto it (from a queued send) still reaches the
		// continuation.
		callerMb := mailbox.New(false, mailbox.DefaultConfig())
		callerMb.SetDeliver(deliverMessage(callerMb))
		source = newSourceAdapter(callerMb)
	}

	Send(source, target, targetMailbox, payload, continuation)
	return nil
}

// Stop closes pid's mailbox, unblocking any worker parked in Wait, and
// removes it from the registry.
func (e *Engine) Stop(pid *PID) {
	if pid == nil {
		return
	}
	e.mu.Lock()
	sp, ok := e.actors[pid.id]
	if ok {
		delete(e.actors, pid.id)
	}
	e.mu.Unlock()
	if ok {
		sp.mb.Close()
	}
}
