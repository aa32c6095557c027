package kernel

import "github.com/wippyai/magenta-go/sys"

const eventRights = sys.RightDuplicate | sys.RightTransfer | sys.RightRead | sys.RightWrite

type event struct {
	objectBase
}

func (e *event) state() sys.SignalsState {
	return sys.SignalsState{
		Satisfied:   e.user,
		Satisfiable: sys.UserSignalAll | sys.SignalEventSignaled,
	}
}

func (e *event) userSettable() sys.Signals { return sys.UserSignalAll | sys.SignalEventSignaled }
func (e *event) destroy(*Kernel)          {}

// eventPair is one side of a pair of events that can signal each other.
type eventPair struct {
	objectBase
	peer *eventPair
}

func (p *eventPair) state() sys.SignalsState {
	st := sys.SignalsState{
		Satisfied:   p.user,
		Satisfiable: sys.UserSignalAll | sys.SignalEPairSignaled | sys.SignalEPairClosed,
	}
	if p.peer == nil {
		st.Satisfied |= sys.SignalEPairClosed
	}
	return st
}

func (p *eventPair) userSettable() sys.Signals { return sys.UserSignalAll | sys.SignalEPairSignaled }
func (p *eventPair) peerSettable() sys.Signals { return sys.UserSignalAll | sys.SignalEPairSignaled }

func (p *eventPair) peerObject() object {
	if p.peer == nil {
		return nil
	}
	return p.peer
}

func (p *eventPair) destroy(*Kernel) {
	if p.peer != nil {
		p.peer.peer = nil
		p.peer = nil
	}
}

// EventCreate creates an event.
func (k *Kernel) EventCreate(opts uint32, out *sys.Handle) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	return k.createOne(&event{objectBase: newBase(ObjectEvent)}, eventRights, out)
}

// EventPairCreate creates a connected event pair.
func (k *Kernel) EventPairCreate(opts uint32, out0, out1 *sys.Handle) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	a := &eventPair{objectBase: newBase(ObjectEventPair)}
	b := &eventPair{objectBase: newBase(ObjectEventPair)}
	a.peer, b.peer = b, a
	return k.createPair(a, b, eventRights, out0, out1)
}
