package actor

import (
	"github.com/lguibr/lpcactor/internal/obslog"
	"github.com/lguibr/lpcactor/mailbox"
)

// Send runs the accept-request decision tree: given a caller's source
// adapter S (nil for an external caller with no mailbox of its own), a
// target's processor adapter T and mailbox MT, and a payload plus
// continuation, it picks one of three execution strategies —
// same-mailbox inline, cooperative-loan inline, or queued — and runs it.
//
//  1. S and T share a mailbox: run inline on the caller's own stack,
//     no loan needed.
//  2. MT is async, or there is no source mailbox at all: queue the
//     request; it is delivered on MT's own worker (or whoever next
//     drains MT).
//  3. S and T are already under the same controller: run inline,
//     no new loan needed.
//  4. MT is free: acquire it on the caller's behalf, run inline, and
//     release it (draining anything that queued up in the meantime)
//     when done.
//  5. MT is held by someone else: fall back to queued delivery.
func Send(S RequestSource, T RequestProcessor, MT *mailbox.Mailbox, payload any, continuation Continuation) {
	var MS *mailbox.Mailbox
	if S != nil {
		MS = S.Mailbox()
	}

	switch {
	case MS != nil && MS == MT:
		syncProcess(S, T, payload, continuation)
	case MT.IsAsync() || MS == nil:
		asyncSend(S, T, MT, payload, continuation)
	case MT.ControllingMailbox() == MS.ControllingMailbox():
		syncSend(S, T, MT, payload, continuation, false)
	case MT.AcquireControl(MS.ControllingMailbox()):
		syncSend(S, T, MT, payload, continuation, true)
	default:
		asyncSend(S, T, MT, payload, continuation)
	}
}

// syncProcess runs a same-mailbox call straight through: no Request is
// ever queued, the actor's ProcessRequest is invoked directly on the
// caller's stack, and the continuation runs inline as soon as (and
// however many times, past the first counting) the callee responds.
func syncProcess(S RequestSource, T RequestProcessor, payload any, userK Continuation) {
	EHS := S.ExceptionHandler()

	req := newRequest(S, nil, payload)
	req.completion = func(result any, err error) {
		S.SetExceptionHandler(EHS)
		runContinuationOrPanicTransparent(userK, result, err)
	}

	invokeProcessRequest(S, T, EHS, payload, func(result any, err error) {
		req.Respond(responsePayload(result, err))
	})
}

// syncSend runs a cross-mailbox cooperative call: ProcessRequest executes
// on the caller's stack under a borrowed (or already-shared) control
// token, via an ExtendedResponseProcessor that the callee may answer
// before or after ProcessRequest returns. ruleFourFired marks whether
// this call freshly acquired MT's control token (rule 4) and must
// therefore run the flush/relinquish/drain cleanup on every exit.
func syncSend(S RequestSource, T RequestProcessor, MT *mailbox.Mailbox, payload any, userK Continuation, ruleFourFired bool) {
	MS := S.Mailbox()
	CS := MS.ControllingMailbox()
	EHS := S.ExceptionHandler()

	erp := &ExtendedResponseProcessor{}
	req := newRequest(S, T, payload)
	erp.req = req

	req.completion = func(result any, err error) {
		if !erp.async {
			erp.sync = true
			S.SetExceptionHandler(EHS)
			runContinuationOrPanicTransparent(userK, result, err)
			return
		}

		// The callee answered after ProcessRequest already returned.
		// Re-read control now — it may have changed since.
		S.SetExceptionHandler(EHS)
		if err != nil {
			routeAsyncException(S, EHS, err)
			return
		}

		curCS := MS.ControllingMailbox()
		curCT := MT.ControllingMailbox()
		switch {
		case curCS == curCT:
			invokeUserKRoutingAsyncFault(S, EHS, userK, result, nil)
		case MS.IsAsync():
			asyncResponse(MT, result, nil, func(r any, e error) {
				invokeUserKRoutingAsyncFault(S, EHS, userK, r, e)
			})
		case !MT.AcquireControl(curCS):
			asyncResponse(MT, result, nil, func(r any, e error) {
				invokeUserKRoutingAsyncFault(S, EHS, userK, r, e)
			})
		default:
			invokeUserKRoutingAsyncFault(S, EHS, userK, result, nil)
			MT.SendPendingMessages()
			MT.RelinquishControl()
			MT.DispatchRemaining(curCS)
		}
	}

	func() {
		defer func() {
			if ruleFourFired {
				MT.SendPendingMessages()
				MT.RelinquishControl()
				MT.DispatchRemaining(CS)
			}
		}()
		invokeProcessRequest(S, T, EHS, payload, erp.Process)
	}()

	if !erp.sync {
		erp.async = true
	}
}

// asyncSend builds a Request and queues it for delivery on MT — either
// through S's own mailbox outbound buffer, or (when there is no source
// mailbox at all) directly onto MT's inbound. When there is a source, its
// completion doesn't invoke the caller's continuation directly: the
// response is routed back through S's own inbound queue first, and runs
// under whatever drains S's mailbox — which, for a sync S that nobody
// controls at that moment, is the goroutine delivering the response (via
// DrainIfFree). With no source, the continuation runs directly.
func asyncSend(S RequestSource, T RequestProcessor, MT *mailbox.Mailbox, payload any, userK Continuation) {
	var EHS func(error)
	if S != nil {
		EHS = S.ExceptionHandler()
	}

	req := newRequest(S, T, payload)
	req.completion = func(result any, err error) {
		if S == nil {
			if err != nil {
				routeAsyncException(nil, nil, err)
				return
			}
			invokeUserKRoutingAsyncFault(nil, nil, userK, result, nil)
			return
		}
		deliverLaterToSource(S, EHS, result, err, userK)
	}

	if S != nil {
		S.Send(MT, req)
		S.Mailbox().SendPendingMessages()
		return
	}
	MT.DeliverInbound(req)
	MT.DrainIfFree()
}

// deliverLaterToSource posts (result, err) through S's own inbound queue
// so the final EHS-restore-and-invoke step runs under whatever drains
// S's mailbox. If S's mailbox is sync and currently uncontrolled, that is
// the stack that produced the response, draining it via DrainIfFree.
func deliverLaterToSource(S RequestSource, EHS func(error), result any, err error, userK Continuation) {
	req := newRequest(nil, nil, nil)
	req.completion = func(result any, err error) {
		S.SetExceptionHandler(EHS)
		if err != nil {
			routeAsyncException(S, EHS, err)
			return
		}
		invokeUserKRoutingAsyncFault(S, EHS, userK, result, nil)
	}
	S.ResponseFrom(&Response{Request: req, Result: result, Err: err})
}

// asyncResponse pushes a deferred syncSend completion through MT's own
// inbound queue (as a Response riding the normal queued-delivery path)
// instead of calling complete directly. If MT is uncontrolled at that
// moment, DrainIfFree drains it, and complete runs on this same stack.
func asyncResponse(MT *mailbox.Mailbox, result any, err error, complete func(any, error)) {
	req := newRequest(nil, nil, nil)
	req.completion = complete
	MT.DeliverInbound(&Response{Request: req, Result: result, Err: err})
	MT.DrainIfFree()
}

// invokeProcessRequest calls T.ProcessRequest(payload, continuation),
// applying the exception-routing rule shared by syncProcess and
// syncSend: a panic tagged transparentException (raised by the
// continuation, not by T's own body) is restored-and-repropagated
// untouched, bypassing T's handler entirely; any other panic (a genuine
// fault inside T's ProcessRequest) is offered to T's exception handler,
// or propagated if T has none. S's exception handler is restored to EHS
// on every exit.
func invokeProcessRequest(S RequestSource, T RequestProcessor, EHS func(error), payload any, continuation Continuation) {
	defer func() {
		if r := recover(); r != nil {
			S.SetExceptionHandler(EHS)
			if inner, ok := unwrapTransparent(toError(r)); ok {
				panic(inner)
			}
			if h := T.ExceptionHandler(); h != nil {
				h(toError(r))
				return
			}
			panic(r)
		}
	}()
	T.ProcessRequest(payload, continuation)
	S.SetExceptionHandler(EHS)
}

// runContinuationOrPanicTransparent invokes userK, converting any panic
// it raises into a transparentException so the enclosing
// invokeProcessRequest recover can tell it apart from a fault in T's own
// ProcessRequest body.
func runContinuationOrPanicTransparent(userK Continuation, result any, err error) {
	if userK == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			panic(transparent(toError(r)))
		}
	}()
	userK(result, err)
}

// invokeUserKRoutingAsyncFault invokes userK the way every async-style
// completion does: once there is no longer a synchronous processRequest
// frame to unwind through, a fault is no longer "transparent" versus
// "callee" — it simply becomes an async exception to route.
func invokeUserKRoutingAsyncFault(S RequestSource, EHS func(error), userK Continuation, result any, err error) {
	if userK == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			routeAsyncException(S, EHS, toError(r))
		}
	}()
	userK(result, err)
}

// routeAsyncException delivers err to EHS if one is installed, falling
// back (or if EHS itself faults) to posting it as an unhandled async
// exception.
func routeAsyncException(S RequestSource, EHS func(error), err error) {
	if EHS == nil {
		postDroppedFault(S, err)
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				postDroppedFault(S, toError(r))
			}
		}()
		EHS(err)
	}()
}

func postDroppedFault(S RequestSource, err error) {
	if S == nil {
		obslog.Log.WithError(err).Warn("actor: unhandled async exception with no source mailbox")
		return
	}
	req := newRequest(nil, nil, nil)
	req.completion = func(_ any, e error) {
		obslog.Log.WithError(e).Warn("actor: unhandled async exception")
	}
	S.ResponseFrom(&Response{Request: req, Err: err})
}

// deliverQueuedRequest is what an async mailbox's worker (or a
// DispatchRemaining replay) calls for every *Request it pops: install it
// as the current request, hand the target's exception handler to the
// mailbox, and invoke ProcessRequest with a continuation that funnels the
// unwrapped response back into the Request.
func deliverQueuedRequest(req *Request, owner *mailbox.Mailbox) {
	owner.SetCurrentRequest(req)
	owner.SetExceptionHandler(req.Processor.ExceptionHandler())

	defer req.Processor.HaveEvents()
	defer func() {
		if r := recover(); r != nil {
			if h := req.Processor.ExceptionHandler(); h != nil {
				h(toError(r))
				return
			}
			req.Respond(responsePayload(nil, toError(r)))
		}
	}()
	req.Processor.ProcessRequest(req.Payload, func(result any, err error) {
		req.Respond(responsePayload(result, err))
	})
}

// deliverMessage builds the callback every spawned actor's mailbox
// installs via SetDeliver: it dispatches *Request messages into
// ProcessRequest and *Response messages into their Request's completion.
func deliverMessage(owner *mailbox.Mailbox) func(mailbox.Message) {
	return func(msg mailbox.Message) {
		switch m := msg.(type) {
		case *Request:
			deliverQueuedRequest(m, owner)
		case *Response:
			if m.Request != nil {
				m.Request.Respond(responsePayload(m.Result, m.Err))
			}
		default:
			obslog.Log.Warnf("actor: dropped inbound message of unexpected type %T", msg)
		}
	}
}
