package sys

import "math"

// Handle is the raw handle value issued by the kernel.
// Negative values are never valid handles.
type Handle int32

// HandleInvalid is the empty handle value.
const HandleInvalid Handle = 0

// Status is the raw return code of a kernel call.
// Non-negative values indicate success.
type Status int32

// Time is a monotonic time or a relative timeout, in nanoseconds.
type Time uint64

// TimeInfinite never elapses.
const TimeInfinite Time = math.MaxUint64

// Koid is a kernel object identifier. Koids are never reused.
type Koid uint64

// Status codes.
const (
	OK                 Status = 0
	ErrInternal        Status = -1
	ErrNotSupported    Status = -2
	ErrNotFound        Status = -3
	ErrNoMemory        Status = -4
	ErrNoResources     Status = -5
	ErrInvalidArgs     Status = -10
	ErrBadSyscall      Status = -11
	ErrBadHandle       Status = -12
	ErrOutOfRange      Status = -13
	ErrBufferTooSmall  Status = -14
	ErrAlreadyExists   Status = -15
	ErrAlreadyBound    Status = -16
	ErrBadState        Status = -20
	ErrTimedOut        Status = -23
	ErrHandleClosed    Status = -24
	ErrRemoteClosed    Status = -25
	ErrUnavailable     Status = -26
	ErrShouldWait      Status = -27
	ErrAccessDenied    Status = -30
	ErrIO              Status = -40
	ErrIORefused       Status = -41
	ErrIODataIntegrity Status = -42
	ErrIODataLoss      Status = -43
	ErrBadPath         Status = -50
	ErrNotDir          Status = -51
	ErrNotFile         Status = -52
	ErrWrongType       Status = -54
)

var statusNames = map[Status]string{
	OK:                 "NO_ERROR",
	ErrInternal:        "ERR_INTERNAL",
	ErrNotSupported:    "ERR_NOT_SUPPORTED",
	ErrNotFound:        "ERR_NOT_FOUND",
	ErrNoMemory:        "ERR_NO_MEMORY",
	ErrNoResources:     "ERR_NO_RESOURCES",
	ErrInvalidArgs:     "ERR_INVALID_ARGS",
	ErrBadSyscall:      "ERR_BAD_SYSCALL",
	ErrBadHandle:       "ERR_BAD_HANDLE",
	ErrOutOfRange:      "ERR_OUT_OF_RANGE",
	ErrBufferTooSmall:  "ERR_BUFFER_TOO_SMALL",
	ErrAlreadyExists:   "ERR_ALREADY_EXISTS",
	ErrAlreadyBound:    "ERR_ALREADY_BOUND",
	ErrBadState:        "ERR_BAD_STATE",
	ErrTimedOut:        "ERR_TIMED_OUT",
	ErrHandleClosed:    "ERR_HANDLE_CLOSED",
	ErrRemoteClosed:    "ERR_REMOTE_CLOSED",
	ErrUnavailable:     "ERR_UNAVAILABLE",
	ErrShouldWait:      "ERR_SHOULD_WAIT",
	ErrAccessDenied:    "ERR_ACCESS_DENIED",
	ErrIO:              "ERR_IO",
	ErrIORefused:       "ERR_IO_REFUSED",
	ErrIODataIntegrity: "ERR_IO_DATA_INTEGRITY",
	ErrIODataLoss:      "ERR_IO_DATA_LOSS",
	ErrBadPath:         "ERR_BAD_PATH",
	ErrNotDir:          "ERR_NOT_DIR",
	ErrNotFile:         "ERR_NOT_FILE",
	ErrWrongType:       "ERR_WRONG_TYPE",
}

// String returns the ABI name of the status code.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s > 0 {
		return "NO_ERROR"
	}
	return "ERR_UNKNOWN"
}

// Signals is a bitmask of object state bits.
type Signals uint32

const (
	SignalNone      Signals = 0
	ObjectSignalAll Signals = 0x00ffffff
	UserSignalAll   Signals = 0xff000000

	ObjectSignal0 Signals = 1 << 0
	ObjectSignal1 Signals = 1 << 1
	ObjectSignal2 Signals = 1 << 2
	ObjectSignal3 Signals = 1 << 3

	UserSignal0 Signals = 1 << 24
	UserSignal1 Signals = 1 << 25
	UserSignal2 Signals = 1 << 26
	UserSignal3 Signals = 1 << 27
	UserSignal4 Signals = 1 << 28
	UserSignal5 Signals = 1 << 29
	UserSignal6 Signals = 1 << 30
	UserSignal7 Signals = 1 << 31

	// Event
	SignalEventSignaled = ObjectSignal3

	// EventPair
	SignalEPairSignaled = ObjectSignal3
	SignalEPairClosed   = ObjectSignal2

	// Channel
	SignalChannelReadable   = ObjectSignal0
	SignalChannelWritable   = ObjectSignal1
	SignalChannelPeerClosed = ObjectSignal2
)

// Rights is a bitmask of operations permitted through a handle.
type Rights uint32

const (
	RightNone        Rights = 0
	RightDuplicate   Rights = 1 << 0
	RightTransfer    Rights = 1 << 1
	RightRead        Rights = 1 << 2
	RightWrite       Rights = 1 << 3
	RightExecute     Rights = 1 << 4
	RightMap         Rights = 1 << 5
	RightGetProperty Rights = 1 << 6
	RightSetProperty Rights = 1 << 7
	RightDebug       Rights = 1 << 8
	RightSameRights  Rights = 1 << 31
)

// FlagReplyPipe creates a message pipe whose second endpoint must transfer
// itself with every write.
const FlagReplyPipe uint32 = 1

// ClockMonotonic is the only supported clock.
const ClockMonotonic uint32 = 0
