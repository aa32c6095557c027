package sys

// System is the raw kernel call surface.
//
// Every method mirrors one kernel entry point. Buffers are passed as slices
// whose length is the capacity offered to the kernel. Calls never panic on
// bad arguments; they report a negative Status instead.
type System interface {
	// Handles
	HandleClose(h Handle) Status
	HandleDuplicate(h Handle, rights Rights, out *Handle) Status
	HandleWaitOne(h Handle, signals Signals, timeout Time, state *SignalsState) Status
	HandleWaitMany(items []WaitItem, timeout Time) Status

	// Generic object signaling
	ObjectSignal(h Handle, clear, set Signals) Status
	ObjectSignalPeer(h Handle, clear, set Signals) Status

	// Channels
	ChannelCreate(opts uint32, out0, out1 *Handle) Status
	// ChannelRead reports the actual byte and handle counts even when it
	// fails with ErrBufferTooSmall. That failure leaves the message pending.
	ChannelRead(h Handle, opts uint32, bytes []byte, actualBytes *uint32, handles []Handle, actualHandles *uint32) Status
	// ChannelWrite takes ownership of every handle only on success.
	ChannelWrite(h Handle, opts uint32, bytes []byte, handles []Handle) Status

	// Legacy message pipes
	MsgpipeCreate(out *[2]Handle, flags uint32) Status
	MsgpipeRead(h Handle, bytes []byte, numBytes *uint32, handles []Handle, numHandles *uint32, flags uint32) Status
	MsgpipeWrite(h Handle, bytes []byte, handles []Handle, flags uint32) Status

	// Events
	EventCreate(opts uint32, out *Handle) Status
	EventPairCreate(opts uint32, out0, out1 *Handle) Status

	// Virtual memory objects
	VmoCreate(size uint64, opts uint32, out *Handle) Status
	VmoRead(h Handle, data []byte, offset uint64, actual *uint64) Status
	VmoWrite(h Handle, data []byte, offset uint64, actual *uint64) Status
	VmoGetSize(h Handle, size *uint64) Status
	VmoSetSize(h Handle, size uint64) Status

	// Wait sets
	WaitSetCreate(out *Handle) Status
	WaitSetAdd(ws Handle, h Handle, signals Signals, cookie uint64) Status
	WaitSetRemove(ws Handle, cookie uint64) Status
	// WaitSetWait fills up to len(results) entries and reports how many
	// entries were ready in maxResults, which may exceed numResults.
	WaitSetWait(ws Handle, timeout Time, results []WaitSetResult, numResults *uint32, maxResults *uint32) Status

	// Time
	TimeGet(clockID uint32) Time
	Nanosleep(d Time) Status
}
