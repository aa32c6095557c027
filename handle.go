package magenta

import (
	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// Handle owns one raw kernel handle. Close releases it exactly once;
// IntoRaw and IntoHandle give it away without closing. Either leaves the
// Handle invalid, after which Close is a no-op and every other operation
// fails with a bad handle error.
//
// A Handle is not safe for concurrent use.
type Handle struct {
	sys sys.System
	raw sys.Handle
}

// NewHandle adopts raw, which must have been issued by s and must not be
// owned by anything else.
func NewHandle(s sys.System, raw sys.Handle) *Handle {
	return &Handle{sys: s, raw: raw}
}

// Raw returns the raw value without giving up ownership.
func (h *Handle) Raw() sys.Handle {
	if h == nil {
		return sys.HandleInvalid
	}
	return h.raw
}

// System returns the kernel that issued the handle.
func (h *Handle) System() sys.System {
	if h == nil {
		return nil
	}
	return h.sys
}

// IsValid reports whether h still owns a raw handle.
func (h *Handle) IsValid() bool {
	return h != nil && h.sys != nil && h.raw != sys.HandleInvalid
}

// Ref borrows h. The result must not be used after h is closed.
func (h *Handle) Ref() HandleRef {
	if h == nil {
		return HandleRef{}
	}
	return HandleRef{sys: h.sys, raw: h.raw}
}

// IntoRaw gives up ownership and returns the raw value. The caller becomes
// responsible for closing it or wrapping it again with NewHandle.
func (h *Handle) IntoRaw() sys.Handle {
	if h == nil {
		return sys.HandleInvalid
	}
	raw := h.raw
	h.invalidate()
	return raw
}

// IntoHandle moves ownership into a new untyped Handle.
func (h *Handle) IntoHandle() *Handle {
	out := &Handle{}
	out.adopt(h)
	return out
}

// Close closes the handle. Failures are logged, never returned.
func (h *Handle) Close() error {
	if !h.IsValid() {
		return nil
	}
	if status := h.sys.HandleClose(h.raw); status != sys.OK {
		Logger().Debug("handle close failed",
			zap.Int32("handle", int32(h.raw)),
			zap.Stringer("status", status))
	}
	h.invalidate()
	return nil
}

// Duplicate returns a new handle to the same object with the given rights,
// or the same rights for sys.RightSameRights.
func (h *Handle) Duplicate(rights sys.Rights) (*Handle, error) {
	return h.Ref().Duplicate(rights)
}

// Wait blocks until one of signals is asserted or timeout elapses. The
// observed state is returned on timeout and when the signals can no longer
// be satisfied.
func (h *Handle) Wait(signals sys.Signals, timeout sys.Time) (sys.SignalsState, error) {
	return h.Ref().Wait(signals, timeout)
}

// Signal clears then sets user signals on the object.
func (h *Handle) Signal(clear, set sys.Signals) error {
	if !h.IsValid() {
		return errors.BadHandle(errors.OpObjectSignal)
	}
	return errors.FromStatus(errors.OpObjectSignal, h.sys.ObjectSignal(h.raw, clear, set))
}

func (h *Handle) invalidate() {
	h.raw = sys.HandleInvalid
	h.sys = nil
}

// adopt moves ownership from src into h.
func (h *Handle) adopt(src *Handle) {
	if src == nil {
		return
	}
	h.sys, h.raw = src.sys, src.raw
	src.invalidate()
}

func (h *Handle) signalPeer(clear, set sys.Signals) error {
	if !h.IsValid() {
		return errors.BadHandle(errors.OpObjectSignal)
	}
	return errors.FromStatus(errors.OpObjectSignal, h.sys.ObjectSignalPeer(h.raw, clear, set))
}

// HandleRef is a non-owning view of a handle. It can duplicate and wait
// but never close.
type HandleRef struct {
	sys sys.System
	raw sys.Handle
}

// Raw returns the borrowed raw value.
func (r HandleRef) Raw() sys.Handle {
	return r.raw
}

func (r HandleRef) valid() bool {
	return r.sys != nil && r.raw != sys.HandleInvalid
}

// Duplicate returns a new owning handle to the same object.
func (r HandleRef) Duplicate(rights sys.Rights) (*Handle, error) {
	if !r.valid() {
		return nil, errors.BadHandle(errors.OpHandleDuplicate)
	}
	var out sys.Handle
	if err := errors.FromStatus(errors.OpHandleDuplicate, r.sys.HandleDuplicate(r.raw, rights, &out)); err != nil {
		return nil, err
	}
	return NewHandle(r.sys, out), nil
}

// Wait blocks until one of signals is asserted or timeout elapses.
func (r HandleRef) Wait(signals sys.Signals, timeout sys.Time) (sys.SignalsState, error) {
	if !r.valid() {
		return sys.SignalsState{}, errors.BadHandle(errors.OpHandleWait)
	}
	var st sys.SignalsState
	status := r.sys.HandleWaitOne(r.raw, signals, timeout, &st)
	return st, errors.FromStatus(errors.OpHandleWait, status)
}

// WaitMany blocks until any item is signaled. Each item's Pending field
// receives the observed signals.
func WaitMany(s sys.System, items []sys.WaitItem, timeout sys.Time) error {
	return errors.FromStatus(errors.OpHandleWaitMany, s.HandleWaitMany(items, timeout))
}

// Object is the capability set shared by every handle-backed type.
type Object interface {
	Raw() sys.Handle
	IsValid() bool
	Ref() HandleRef
	Duplicate(rights sys.Rights) (*Handle, error)
	Wait(signals sys.Signals, timeout sys.Time) (sys.SignalsState, error)
	Signal(clear, set sys.Signals) error
	IntoHandle() *Handle
	Close() error
}

// Peered is implemented by objects with a peer endpoint.
type Peered interface {
	Object
	SignalPeer(clear, set sys.Signals) error
}

var (
	_ Object = (*Handle)(nil)
	_ Peered = (*Channel)(nil)
	_ Peered = (*MessagePipe)(nil)
	_ Peered = (*EventPair)(nil)
	_ Object = (*Vmo)(nil)
	_ Object = (*WaitSet)(nil)
	_ Object = (*Event)(nil)
)

// handleWrapper is satisfied by pointers to types that embed Handle.
type handleWrapper[T any] interface {
	*T
	Object
	adopt(*Handle)
}

// As moves ownership of h into a new typed wrapper, leaving h invalid.
// The object type is not checked here; a mismatch surfaces as a wrong type
// error from the first typed operation.
func As[T any, PT handleWrapper[T]](h *Handle) PT {
	if h == nil {
		panic("magenta: As called with nil handle")
	}
	p := PT(new(T))
	p.adopt(h)
	return p
}

// DuplicateAs duplicates obj into a wrapper of the same type.
func DuplicateAs[T any, PT handleWrapper[T]](obj PT, rights sys.Rights) (PT, error) {
	h, err := obj.Duplicate(rights)
	if err != nil {
		return nil, err
	}
	return As[T, PT](h), nil
}
