package main

import (
	"fmt"
	"io"

	magenta "github.com/wippyai/magenta-go"
	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
)

// walkthrough moves an event handle across a channel and shows the handle
// table after each step.
func walkthrough(k *kernel.Kernel, out io.Writer) error {
	a, b, err := magenta.CreateChannel(k, 0)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	defer a.Close()
	defer b.Close()

	ev, err := magenta.CreateEvent(k, 0)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	defer ev.Close()

	fmt.Fprintln(out, "# created channel pair and event")
	printTable(k, out)

	handles := []*magenta.Handle{ev.IntoHandle()}
	if err := a.Write([]byte("hello"), &handles, 0); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	fmt.Fprintf(out, "\n# wrote \"hello\" with the event (left in slice: %d, event valid: %t)\n", len(handles), ev.IsValid())
	printTable(k, out)

	buf := magenta.NewMessageBuf()
	defer buf.Close()
	if err := b.Read(0, buf); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	fmt.Fprintf(out, "\n# read %q with %d handle(s)\n", buf.Bytes(), buf.NHandles())

	h, ok := buf.TakeHandle(0)
	if !ok {
		return fmt.Errorf("message carried no handle")
	}
	got := magenta.As[magenta.Event](h)
	defer got.Close()
	if err := got.Signal(0, sys.SignalEventSignaled); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	state, err := got.Wait(sys.SignalEventSignaled, 0)
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	fmt.Fprintf(out, "received event signaled: satisfied=%#x satisfiable=%#x\n", uint32(state.Satisfied), uint32(state.Satisfiable))
	printTable(k, out)

	err = b.ReadRaw(0, buf)
	fmt.Fprintf(out, "\n# read on empty channel: %v (should wait: %t)\n", err, errors.Is(err, errors.ErrShouldWait))

	a.Close()
	err = b.ReadRaw(0, buf)
	fmt.Fprintf(out, "# read after peer close: %v (peer closed: %t)\n", err, errors.Is(err, errors.ErrPeerClosed))

	got.Close()
	b.Close()
	fmt.Fprintf(out, "\n# closed everything, live handles: %d\n", k.Len())
	return nil
}

func printTable(k *kernel.Kernel, out io.Writer) {
	fmt.Fprintf(out, "%-10s %-6s %-10s %s\n", "HANDLE", "KOID", "TYPE", "RIGHTS")
	k.Each(func(h sys.Handle, info kernel.HandleInfo) bool {
		fmt.Fprintf(out, "%-10d %-6d %-10s %#x\n", h, info.Koid, info.Type, uint32(info.Rights))
		return true
	})
}
