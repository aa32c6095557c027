package sys

import "encoding/binary"

// SignalsState is the snapshot returned by a wait.
type SignalsState struct {
	Satisfied   Signals
	Satisfiable Signals
}

// WaitItem is one entry of a wait-many call.
type WaitItem struct {
	Handle  Handle
	WaitFor Signals
	Pending Signals
}

// WaitSetResult is one ready entry reported by a wait set.
type WaitSetResult struct {
	Cookie   uint64
	Status   Status
	Observed Signals
}

// Wire sizes of the ABI structs, little-endian, naturally aligned.
const (
	SignalsStateSize  = 8
	WaitItemSize      = 12
	WaitSetResultSize = 16
	HandleSize        = 4
)

// PutSignalsState encodes s into b.
func PutSignalsState(b []byte, s SignalsState) {
	binary.LittleEndian.PutUint32(b[0:], uint32(s.Satisfied))
	binary.LittleEndian.PutUint32(b[4:], uint32(s.Satisfiable))
}

// ReadWaitItem decodes a wait item from b.
func ReadWaitItem(b []byte) WaitItem {
	return WaitItem{
		Handle:  Handle(binary.LittleEndian.Uint32(b[0:])),
		WaitFor: Signals(binary.LittleEndian.Uint32(b[4:])),
		Pending: Signals(binary.LittleEndian.Uint32(b[8:])),
	}
}

// PutWaitItem encodes w into b.
func PutWaitItem(b []byte, w WaitItem) {
	binary.LittleEndian.PutUint32(b[0:], uint32(w.Handle))
	binary.LittleEndian.PutUint32(b[4:], uint32(w.WaitFor))
	binary.LittleEndian.PutUint32(b[8:], uint32(w.Pending))
}

// PutWaitSetResult encodes r into b.
func PutWaitSetResult(b []byte, r WaitSetResult) {
	binary.LittleEndian.PutUint64(b[0:], r.Cookie)
	binary.LittleEndian.PutUint32(b[8:], uint32(r.Status))
	binary.LittleEndian.PutUint32(b[12:], uint32(r.Observed))
}

// ReadWaitSetResult decodes a wait set result from b.
func ReadWaitSetResult(b []byte) WaitSetResult {
	return WaitSetResult{
		Cookie:   binary.LittleEndian.Uint64(b[0:]),
		Status:   Status(int32(binary.LittleEndian.Uint32(b[8:]))),
		Observed: Signals(binary.LittleEndian.Uint32(b[12:])),
	}
}

// PutHandles encodes handles into b as consecutive little-endian int32 values.
func PutHandles(b []byte, handles []Handle) {
	for i, h := range handles {
		binary.LittleEndian.PutUint32(b[i*HandleSize:], uint32(h))
	}
}

// ReadHandles decodes n handles from b.
func ReadHandles(b []byte, n int) []Handle {
	out := make([]Handle, n)
	for i := range out {
		out[i] = Handle(int32(binary.LittleEndian.Uint32(b[i*HandleSize:])))
	}
	return out
}
