package actor

import (
	"errors"
	"fmt"
	"sync"
)

// Continuation is the response handler a caller supplies to Send. It is
// invoked with the eventual result, or with a non-nil err when the
// response is itself an exception value rather than an ordinary result.
type Continuation func(result any, err error)

// transparentException marks an error that originated inside a
// continuation rather than inside the callee's ProcessRequest body. It is
// unwrapped at the first catcher and its inner error re-raised, because
// only ProcessRequest-originating errors are eligible for the callee's
// exception handler.
type transparentException struct {
	inner error
}

func (t *transparentException) Error() string { return t.inner.Error() }
func (t *transparentException) Unwrap() error { return t.inner }

func transparent(err error) error {
	if err == nil {
		return nil
	}
	return &transparentException{inner: err}
}

// unwrapTransparent reports whether err is (or wraps) a
// transparentException, returning the inner error if so.
func unwrapTransparent(err error) (inner error, ok bool) {
	var t *transparentException
	if errors.As(err, &t) {
		return t.inner, true
	}
	return err, false
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// Request wraps an application payload together with its source, the
// target's processor adapter, and the completion logic that resumes the
// caller. It is the one-shot unit every dispatch path completes through
// exactly once: the first response wins, the rest are dropped.
type Request struct {
	Source    RequestSource
	Processor RequestProcessor
	Payload   any

	mu     sync.Mutex
	active bool

	completion func(result any, err error)
}

func newRequest(source RequestSource, processor RequestProcessor, payload any) *Request {
	return &Request{Source: source, Processor: processor, Payload: payload, active: true}
}

// Respond implements mailbox.PendingRequest. The first call runs this
// request's completion logic; every subsequent call is silently dropped,
// honoring the one-response rule.
func (r *Request) Respond(payload any) bool {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return false
	}
	r.active = false
	r.mu.Unlock()

	if r.completion == nil {
		return true
	}
	result, err := unwrapResponsePayload(payload)
	r.completion(result, err)
	return true
}

// Response carries a payload or exception back to the Request it
// answers. It is the message type ridden through a mailbox's inbound
// queue for deferred/asynchronous completions.
type Response struct {
	Request *Request
	Result  any
	Err     error
}

// exceptionPayload tags a response payload as carrying an error rather
// than a value, so mailbox.Mailbox (which only deals in opaque `any`
// payloads) doesn't need to know about Go's error type at all.
type exceptionPayload struct{ err error }

func responsePayload(result any, err error) any {
	if err != nil {
		return exceptionPayload{err: err}
	}
	return result
}

func unwrapResponsePayload(payload any) (result any, err error) {
	if ep, ok := payload.(exceptionPayload); ok {
		return nil, ep.err
	}
	return payload, nil
}
