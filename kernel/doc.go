// Package kernel is an in-process implementation of the sys.System call
// surface.
//
// A Kernel owns a handle table and the objects reachable through it:
// channels and legacy message pipes, events, event pairs, VMOs and wait
// sets. It follows the kernel ABI closely enough that code written against
// sys.System runs unchanged on it:
//
//   - Raw handles are positive int32 values. Closed values stay invalid
//     until their slot has been reused many times.
//   - Every handle carries rights; operations check them and duplicates
//     may only narrow them.
//   - Channel writes move handles into the message only on success. Reads
//     that do not fit leave the message queued and report its size.
//   - Objects live while a handle or an undelivered message refers to them.
//     Closing the last reference to a channel endpoint asserts
//     PEER_CLOSED on the other side.
//
// Waits block on a single condition variable shared by the kernel, so any
// state change wakes every waiter to re-check.
//
// # Observing Handles
//
// Observers receive lifecycle events outside the kernel lock:
//
//	k := kernel.New()
//	sub := k.Subscribe(kernel.ObserverFunc(func(e kernel.Event) {
//	    log.Printf("%s %s koid=%d", e.Object, e.Type, e.Koid)
//	}))
//	defer k.Unsubscribe(sub)
package kernel
