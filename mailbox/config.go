package mailbox

// Config holds the tunables a Mailbox is constructed with: one field per
// knob, a single constructor for sane defaults, no file or environment
// loading in this package.
type Config struct {
	// InitialBufferCapacity seeds the slice capacity of every new outbound
	// bucket a BufferedEventsQueue allocates for this mailbox.
	InitialBufferCapacity int
}

// DefaultConfig returns the Config new mailboxes use when callers don't
// supply their own.
func DefaultConfig() Config {
	return Config{
		InitialBufferCapacity: 8,
	}
}
