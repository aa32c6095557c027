package errors

import (
	"fmt"
	"strings"

	"github.com/wippyai/magenta-go/sys"
)

// Op names the kernel operation that failed
type Op string

const (
	OpHandleClose     Op = "handle_close"
	OpHandleDuplicate Op = "handle_duplicate"
	OpHandleWait      Op = "handle_wait_one"
	OpHandleWaitMany  Op = "handle_wait_many"
	OpObjectSignal    Op = "object_signal"
	OpChannelCreate   Op = "channel_create"
	OpChannelRead     Op = "channel_read"
	OpChannelWrite    Op = "channel_write"
	OpMsgpipeCreate   Op = "msgpipe_create"
	OpMsgpipeRead     Op = "msgpipe_read"
	OpMsgpipeWrite    Op = "msgpipe_write"
	OpEventCreate     Op = "event_create"
	OpEventPairCreate Op = "eventpair_create"
	OpVmoCreate       Op = "vmo_create"
	OpVmoRead         Op = "vmo_read"
	OpVmoWrite        Op = "vmo_write"
	OpVmoGetSize      Op = "vmo_get_size"
	OpVmoSetSize      Op = "vmo_set_size"
	OpWaitSetCreate   Op = "waitset_create"
	OpWaitSetAdd      Op = "waitset_add"
	OpWaitSetRemove   Op = "waitset_remove"
	OpWaitSetWait     Op = "waitset_wait"
	OpNanosleep       Op = "nanosleep"
)

// Kind categorizes the error
type Kind string

const (
	KindInternal       Kind = "internal"
	KindNotSupported   Kind = "not_supported"
	KindNoResources    Kind = "no_resources"
	KindNoMemory       Kind = "no_memory"
	KindInvalidArgs    Kind = "invalid_args"
	KindWrongType      Kind = "wrong_type"
	KindBadSyscall     Kind = "bad_syscall"
	KindBadHandle      Kind = "bad_handle"
	KindOutOfRange     Kind = "out_of_range"
	KindBufferTooSmall Kind = "buffer_too_small"
	KindBadState       Kind = "bad_state"
	KindNotFound       Kind = "not_found"
	KindAlreadyExists  Kind = "already_exists"
	KindAlreadyBound   Kind = "already_bound"
	KindTimedOut       Kind = "timed_out"
	KindHandleClosed   Kind = "handle_closed"
	KindPeerClosed     Kind = "peer_closed"
	KindUnavailable    Kind = "unavailable"
	KindShouldWait     Kind = "should_wait"
	KindAccessDenied   Kind = "access_denied"
	KindIO             Kind = "io"
	KindUnknown        Kind = "unknown"
)

var kindByStatus = map[sys.Status]Kind{
	sys.ErrInternal:        KindInternal,
	sys.ErrNotSupported:    KindNotSupported,
	sys.ErrNotFound:        KindNotFound,
	sys.ErrNoMemory:        KindNoMemory,
	sys.ErrNoResources:     KindNoResources,
	sys.ErrInvalidArgs:     KindInvalidArgs,
	sys.ErrBadSyscall:      KindBadSyscall,
	sys.ErrBadHandle:       KindBadHandle,
	sys.ErrOutOfRange:      KindOutOfRange,
	sys.ErrBufferTooSmall:  KindBufferTooSmall,
	sys.ErrAlreadyExists:   KindAlreadyExists,
	sys.ErrAlreadyBound:    KindAlreadyBound,
	sys.ErrBadState:        KindBadState,
	sys.ErrTimedOut:        KindTimedOut,
	sys.ErrHandleClosed:    KindHandleClosed,
	sys.ErrRemoteClosed:    KindPeerClosed,
	sys.ErrUnavailable:     KindUnavailable,
	sys.ErrShouldWait:      KindShouldWait,
	sys.ErrAccessDenied:    KindAccessDenied,
	sys.ErrIO:              KindIO,
	sys.ErrIORefused:       KindIO,
	sys.ErrIODataIntegrity: KindIO,
	sys.ErrIODataLoss:      KindIO,
	sys.ErrWrongType:       KindWrongType,
}

// KindOf classifies a raw status code. Non-negative codes have no kind.
func KindOf(status sys.Status) Kind {
	if status >= 0 {
		return ""
	}
	if k, ok := kindByStatus[status]; ok {
		return k
	}
	return KindUnknown
}

// Sentinels for errors.Is comparisons. They match any Op.
var (
	ErrInternal       = &Error{Kind: KindInternal}
	ErrNotSupported   = &Error{Kind: KindNotSupported}
	ErrNoResources    = &Error{Kind: KindNoResources}
	ErrNoMemory       = &Error{Kind: KindNoMemory}
	ErrInvalidArgs    = &Error{Kind: KindInvalidArgs}
	ErrWrongType      = &Error{Kind: KindWrongType}
	ErrBadHandle      = &Error{Kind: KindBadHandle}
	ErrOutOfRange     = &Error{Kind: KindOutOfRange}
	ErrBufferTooSmall = &Error{Kind: KindBufferTooSmall}
	ErrBadState       = &Error{Kind: KindBadState}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAlreadyExists  = &Error{Kind: KindAlreadyExists}
	ErrAlreadyBound   = &Error{Kind: KindAlreadyBound}
	ErrTimedOut       = &Error{Kind: KindTimedOut}
	ErrHandleClosed   = &Error{Kind: KindHandleClosed}
	ErrPeerClosed     = &Error{Kind: KindPeerClosed}
	ErrShouldWait     = &Error{Kind: KindShouldWait}
	ErrAccessDenied   = &Error{Kind: KindAccessDenied}
)

// Error is the structured error type returned for every failed kernel call
type Error struct {
	Cause  error
	Op     Op
	Kind   Kind
	Detail string
	Status sys.Status
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Op))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Status < 0 {
		b.WriteString(" (")
		b.WriteString(e.Status.String())
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kinds must be equal; the Op is compared only when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op Op, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Op:   op,
			Kind: kind,
		},
	}
}

// Status sets the raw status code
func (b *Builder) Status(s sys.Status) *Builder {
	b.err.Status = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// FromStatus maps a raw status to an error. Non-negative statuses are
// successes and yield nil.
func FromStatus(op Op, status sys.Status) error {
	if status >= 0 {
		return nil
	}
	return &Error{
		Op:     op,
		Kind:   KindOf(status),
		Status: status,
	}
}

// StatusOf recovers the raw status carried by err. It returns sys.OK for
// nil and sys.ErrInternal for errors that did not come from a status.
func StatusOf(err error) sys.Status {
	if err == nil {
		return sys.OK
	}
	var tooSmall *BufferTooSmallError
	if As(err, &tooSmall) {
		return sys.ErrBufferTooSmall
	}
	var e *Error
	if As(err, &e) && e.Status < 0 {
		return e.Status
	}
	return sys.ErrInternal
}

// Convenience constructors for local failures that never reached the kernel

// OutOfRange reports a count that cannot be represented by the ABI.
func OutOfRange(op Op, what string, n int, limit uint64) *Error {
	return &Error{
		Op:     op,
		Kind:   KindOutOfRange,
		Status: sys.ErrOutOfRange,
		Detail: fmt.Sprintf("%s count %d exceeds %d", what, n, limit),
	}
}

// BadHandle reports an operation on an invalidated handle.
func BadHandle(op Op) *Error {
	return &Error{
		Op:     op,
		Kind:   KindBadHandle,
		Status: sys.ErrBadHandle,
		Detail: "handle is closed or was transferred",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(op Op, kind Kind, cause error, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// BufferTooSmallError is the outcome of a receive into an undersized buffer. The
// pending message was left in place and needs Bytes and Handles capacity.
type BufferTooSmallError struct {
	Op      Op
	Bytes   int
	Handles int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("[%s] buffer_too_small: need %d bytes and %d handles", e.Op, e.Bytes, e.Handles)
}

// Is matches ErrBufferTooSmall and other BufferTooSmallError values.
func (e *BufferTooSmallError) Is(target error) bool {
	switch t := target.(type) {
	case *BufferTooSmallError:
		return true
	case *Error:
		return t.Kind == KindBufferTooSmall && (t.Op == "" || t.Op == e.Op)
	}
	return false
}
