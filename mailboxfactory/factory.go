// Package mailboxfactory builds mailboxes for an actor.Engine, binding
// async mailboxes to an independent worker goroutine and leaving sync
// mailboxes to be driven by whoever next acquires their control token.
// It generalizes the one-goroutine-per-actor loop an engine typically
// runs to pump an arbitrary mailbox.Mailbox instead of a fixed channel of
// envelopes.
package mailboxfactory

import (
	"github.com/lguibr/lpcactor/internal/obslog"
	"github.com/lguibr/lpcactor/mailbox"
)

// Factory implements actor.MailboxFactory.
type Factory struct{}

// New returns a ready-to-use Factory.
func New() *Factory { return &Factory{} }

// NewMailbox constructs a mailbox and, for async mailboxes, starts the
// worker goroutine that pumps it for the lifetime of the mailbox.
func (f *Factory) NewMailbox(async bool, cfg mailbox.Config) *mailbox.Mailbox {
	mb := mailbox.New(async, cfg)
	if async {
		go runWorker(mb)
	}
	return mb
}

// runWorker is the async mailbox's event loop: block until there's work
// or the mailbox closes, then drain everything queued before blocking
// again.
func runWorker(mb *mailbox.Mailbox) {
	for mb.Wait() {
		for {
			msg, ok := mb.PopInbound()
			if !ok {
				break
			}
			deliverOne(mb, msg)
		}
	}
}

func deliverOne(mb *mailbox.Mailbox, msg mailbox.Message) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Log.WithField("mailbox", mb.ID()).Errorf("mailboxfactory: worker recovered panic delivering %T: %v", msg, r)
		}
	}()
	mb.DeliverOne(msg)
}
