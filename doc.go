// Package magenta provides owning Go wrappers around a capability kernel's
// handle and message-channel ABI.
//
// A kernel hands out integer handles to its objects. This package turns those
// integers into values with clear ownership: a Handle closes its raw handle
// exactly once, a HandleRef borrows one without closing it, and writing a
// handle into a channel moves it to the receiver.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	magenta/             Handle, HandleRef, MessageBuf and the typed objects
//	├── sys/             Raw ABI: handles, statuses, signals, rights, System
//	├── errors/          Status to error mapping, structured error types
//	├── kernel/          In-process implementation of sys.System
//	├── wasmhost/        The ABI as a wazero host module for guests
//	└── cmd/mxctl/       Demo, ownership walkthrough and interactive TUI
//
// # Quick Start
//
// Send bytes and a handle across a channel:
//
//	k := kernel.New()
//	a, b, err := magenta.CreateChannel(k, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//	defer b.Close()
//
//	ev, _ := magenta.CreateEvent(k, 0)
//	handles := []*magenta.Handle{ev.IntoHandle()}
//	if err := a.Write([]byte("hello"), &handles, 0); err != nil {
//	    log.Fatal(err) // handles still owned by the caller
//	}
//
//	buf := magenta.NewMessageBuf()
//	defer buf.Close()
//	if err := b.Read(0, buf); err != nil {
//	    log.Fatal(err)
//	}
//	h, _ := buf.TakeHandle(0)
//	got := magenta.As[magenta.Event](h)
//	defer got.Close()
//
// # Ownership
//
// Write consumes every handle in the slice only when the kernel accepts the
// message; the slice is then truncated to zero length. On failure nothing
// moves. A MessageBuf owns the handles it received until they are taken, and
// closes the rest on Reset, Close, or the next read.
//
// Handles are closed explicitly. There is no finalizer; a Handle that is
// dropped without Close leaks its raw handle until the kernel is closed.
//
// # Errors
//
// Failed kernel calls return *errors.Error carrying the operation, a Kind and
// the raw status. Use errors.Is with the sentinels in the errors package:
//
//	if errors.Is(err, errors.ErrShouldWait) {
//	    // nothing queued yet
//	}
//
// A read that does not fit returns *errors.BufferTooSmallError with the
// required capacity and leaves the message queued. Read and MessagePipe.Read
// grow the buffer and retry on their own.
//
// # Thread Safety
//
// The kernel is safe for concurrent use. Handle and the typed wrappers are
// NOT; a Handle is moved between goroutines, not shared. Distinct endpoints
// may be used from different goroutines at the same time.
package magenta
