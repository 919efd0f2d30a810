package actor

// ExtendedResponseProcessor is the continuation variant syncSend passes
// to the target's ProcessRequest. Its Sync/Async flags record whether the
// callee responded before ProcessRequest returned (cheap inline
// completion, no loan needed beyond the one already held) or after
// (needs a fresh, possibly deferred, dispatch decision).
type ExtendedResponseProcessor struct {
	req   *Request
	sync  bool
	async bool
}

// Process delivers a response. Calling it more than once past the first
// is a no-op, matching every other completion path's one-shot rule.
func (p *ExtendedResponseProcessor) Process(result any, err error) {
	p.req.Respond(responsePayload(result, err))
}

// Sync reports whether the response arrived before ProcessRequest
// returned.
func (p *ExtendedResponseProcessor) Sync() bool { return p.sync }

// Async reports whether ProcessRequest returned before the response
// arrived.
func (p *ExtendedResponseProcessor) Async() bool { return p.async }
