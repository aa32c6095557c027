package kernel

// Config holds the limits enforced by a Kernel.
// Zero fields take their defaults.
type Config struct {
	// MaxMessageBytes caps the payload of one channel message.
	MaxMessageBytes uint32

	// MaxMessageHandles caps the handles carried by one channel message.
	MaxMessageHandles uint32

	// MaxPendingMessages bounds each endpoint's receive queue. It is rounded
	// up to a power of two. Writes to a full queue fail with ErrShouldWait.
	MaxPendingMessages int

	// MaxHandles bounds the handle table. Exhaustion fails with ErrNoResources.
	MaxHandles int
}

const (
	DefaultMaxMessageBytes    = 65536
	DefaultMaxMessageHandles  = 64
	DefaultMaxPendingMessages = 256
	DefaultMaxHandles         = maxIndex
)

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxMessageBytes:    DefaultMaxMessageBytes,
		MaxMessageHandles:  DefaultMaxMessageHandles,
		MaxPendingMessages: DefaultMaxPendingMessages,
		MaxHandles:         DefaultMaxHandles,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = d.MaxMessageBytes
	}
	if c.MaxMessageHandles == 0 {
		c.MaxMessageHandles = d.MaxMessageHandles
	}
	if c.MaxPendingMessages <= 0 {
		c.MaxPendingMessages = d.MaxPendingMessages
	}
	if c.MaxHandles <= 0 || c.MaxHandles > maxIndex {
		c.MaxHandles = d.MaxHandles
	}
	c.MaxPendingMessages = roundPow2(c.MaxPendingMessages)
	return c
}

func roundPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
