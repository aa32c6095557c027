package kernel

import "github.com/wippyai/magenta-go/sys"

// ObjectType identifies the kind of kernel object behind a handle.
type ObjectType uint8

const (
	ObjectChannel ObjectType = iota + 1
	ObjectEvent
	ObjectEventPair
	ObjectVmo
	ObjectWaitSet
)

func (t ObjectType) String() string {
	switch t {
	case ObjectChannel:
		return "channel"
	case ObjectEvent:
		return "event"
	case ObjectEventPair:
		return "eventpair"
	case ObjectVmo:
		return "vmo"
	case ObjectWaitSet:
		return "waitset"
	default:
		return "unknown"
	}
}

// EventType identifies a handle lifecycle notification.
type EventType uint8

const (
	// EventCreated is emitted when a handle enters the table, either from a
	// create call or from receiving it out of a channel.
	EventCreated EventType = iota
	// EventDuplicated is emitted for the new handle of a duplicate call.
	EventDuplicated
	// EventClosed is emitted when a handle is closed.
	EventClosed
	// EventTransferred is emitted when a write moves a handle into a message.
	EventTransferred
	// EventDestroyed is emitted when an object loses its last reference.
	// Handle is HandleInvalid for this event.
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDuplicated:
		return "duplicated"
	case EventClosed:
		return "closed"
	case EventTransferred:
		return "transferred"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event represents a handle or object lifecycle event.
type Event struct {
	Koid   sys.Koid
	Handle sys.Handle
	Object ObjectType
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
// Observers run outside the kernel lock and may call back into the kernel.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }

// HandleInfo describes a live handle.
type HandleInfo struct {
	Koid   sys.Koid
	Rights sys.Rights
	Type   ObjectType
}
