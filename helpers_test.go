package magenta

import (
	"sync"
	"testing"

	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
)

// closeCounter counts handle close events reported by a kernel.
type closeCounter struct {
	mu     sync.Mutex
	closed map[sys.Handle]int
	total  int
}

func (c *closeCounter) OnHandleEvent(e kernel.Event) {
	if e.Type != kernel.EventClosed {
		return
	}
	c.mu.Lock()
	c.closed[e.Handle]++
	c.total++
	c.mu.Unlock()
}

func (c *closeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *closeCounter) of(h sys.Handle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed[h]
}

func newTestKernel(t *testing.T) (*kernel.Kernel, *closeCounter) {
	t.Helper()
	k := kernel.New()
	cc := &closeCounter{closed: map[sys.Handle]int{}}
	k.Subscribe(cc)
	t.Cleanup(func() { k.Close() })
	return k, cc
}

func mustEvents(t *testing.T, s sys.System, n int) []*Handle {
	t.Helper()
	out := make([]*Handle, n)
	for i := range out {
		ev, err := CreateEvent(s, 0)
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		out[i] = ev.IntoHandle()
	}
	return out
}

func mustChannel(t *testing.T, s sys.System) (*Channel, *Channel) {
	t.Helper()
	a, b, err := CreateChannel(s, 0)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	return a, b
}

func mustEvent(t *testing.T, s sys.System) *Event {
	t.Helper()
	ev, err := CreateEvent(s, 0)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return ev
}

func mustWaitSet(t *testing.T, s sys.System) *WaitSet {
	t.Helper()
	ws, err := CreateWaitSet(s)
	if err != nil {
		t.Fatalf("CreateWaitSet: %v", err)
	}
	return ws
}

// mustWrite sends data and handles on c and fails the test if the write is
// rejected. It is safe to call from other goroutines.
func mustWrite(t *testing.T, c *Channel, data []byte, handles *[]*Handle) {
	t.Helper()
	if err := c.Write(data, handles, 0); err != nil {
		t.Errorf("Write(%q): %v", data, err)
	}
}
