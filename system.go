package magenta

import (
	"sync"

	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
)

var (
	defaultSystem     sys.System
	defaultSystemOnce sync.Once
)

// Default returns the process-wide in-process kernel.
func Default() sys.System {
	defaultSystemOnce.Do(func() {
		defaultSystem = kernel.New()
	})
	return defaultSystem
}
