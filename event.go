package magenta

import (
	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// Event is a signalable object with no other state.
type Event struct {
	Handle
}

// CreateEvent creates an event.
func CreateEvent(s sys.System, opts uint32) (*Event, error) {
	var h sys.Handle
	if err := errors.FromStatus(errors.OpEventCreate, s.EventCreate(opts, &h)); err != nil {
		return nil, err
	}
	return &Event{Handle{sys: s, raw: h}}, nil
}

// EventPair is one side of a pair of events that signal each other.
type EventPair struct {
	Handle
}

// CreateEventPair creates a connected event pair.
func CreateEventPair(s sys.System, opts uint32) (*EventPair, *EventPair, error) {
	var h0, h1 sys.Handle
	if err := errors.FromStatus(errors.OpEventPairCreate, s.EventPairCreate(opts, &h0, &h1)); err != nil {
		return nil, nil, err
	}
	return &EventPair{Handle{sys: s, raw: h0}}, &EventPair{Handle{sys: s, raw: h1}}, nil
}

// SignalPeer clears then sets signals on the other side.
func (p *EventPair) SignalPeer(clear, set sys.Signals) error {
	return p.signalPeer(clear, set)
}
