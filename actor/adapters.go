package actor

import "github.com/lguibr/lpcactor/mailbox"

// RequestSource is the caller-side adapter: it lets the dispatch core
// look up the owner's mailbox and exception handler, route outbound
// sends through the owner's mailbox, and route a deferred response onto
// the owner's own inbound queue.
type RequestSource interface {
	Mailbox() *mailbox.Mailbox
	ExceptionHandler() func(error)
	SetExceptionHandler(func(error))
	Send(destination *mailbox.Mailbox, msg mailbox.Message)
	ResponseFrom(resp *Response)
}

// RequestProcessor is the callee-side adapter: it exposes the actor's
// exception handler, a HaveEvents hook the owner mailbox calls the moment
// a message lands on its inbound queue, and the polymorphic entry point
// into the actor's own ProcessRequest implementation.
type RequestProcessor interface {
	ExceptionHandler() func(error)
	SetExceptionHandler(func(error))
	HaveEvents()
	ProcessRequest(payload any, continuation Continuation)
}

// sourceAdapter is the concrete RequestSource every spawned actor gets,
// generalizing a single owner mailbox into the capability set dispatch
// needs.
type sourceAdapter struct {
	mb        *mailbox.Mailbox
	respQueue *mailbox.BufferedEventsQueue
}

func newSourceAdapter(mb *mailbox.Mailbox) *sourceAdapter {
	return &sourceAdapter{mb: mb, respQueue: mailbox.NewBufferedEventsQueue(0)}
}

func (s *sourceAdapter) Mailbox() *mailbox.Mailbox          { return s.mb }
func (s *sourceAdapter) ExceptionHandler() func(error)      { return s.mb.ExceptionHandler() }
func (s *sourceAdapter) SetExceptionHandler(h func(error))  { s.mb.SetExceptionHandler(h) }
func (s *sourceAdapter) Send(dst *mailbox.Mailbox, msg mailbox.Message) {
	s.mb.Send(dst, msg)
}

// ResponseFrom routes resp onto this adapter's own mailbox inbound queue
// via a dedicated buffered-events queue, rather than delivering it
// in-line — so a deferred completion re-enters through the normal queued
// path. If the mailbox is sync and nobody controls it, DrainIfFree then
// drains it at once on the calling goroutine.
func (s *sourceAdapter) ResponseFrom(resp *Response) {
	s.respQueue.Send(s.mb, resp)
	s.respQueue.DispatchEvents()
	s.mb.DrainIfFree()
}

// processorAdapter is the concrete RequestProcessor every spawned actor
// gets, bridging the generic dispatch core to one concrete Actor value.
type processorAdapter struct {
	mb    *mailbox.Mailbox
	actor Actor
}

func newProcessorAdapter(mb *mailbox.Mailbox, a Actor) *processorAdapter {
	return &processorAdapter{mb: mb, actor: a}
}

func (p *processorAdapter) ExceptionHandler() func(error)     { return p.mb.ExceptionHandler() }
func (p *processorAdapter) SetExceptionHandler(h func(error)) { p.mb.SetExceptionHandler(h) }

// HaveEvents flushes this actor's own buffered outbound sends. It runs the
// moment new inbound work arrives on the mailbox (wired via SetOnEvents in
// Engine.Spawn) and again once a request finishes processing, so whatever
// an actor queued via Send reaches its destinations promptly either way.
func (p *processorAdapter) HaveEvents() {
	p.mb.SendPendingMessages()
}

func (p *processorAdapter) ProcessRequest(payload any, continuation Continuation) {
	p.actor.ProcessRequest(payload, continuation)
}
