// Package errors maps raw kernel status codes to structured errors.
//
// Errors carry the failing operation (Op), a category (Kind), and the raw
// status, preserved losslessly:
//
//	err := errors.FromStatus(errors.OpChannelRead, sys.ErrBadHandle)
//	errors.Is(err, errors.ErrBadHandle)  // true
//	errors.StatusOf(err)                 // sys.ErrBadHandle
//
// Non-negative statuses are successes and map to nil. No retries happen at
// this layer.
//
// Use the Builder for errors that never reached the kernel:
//
//	err := errors.New(errors.OpChannelWrite, errors.KindOutOfRange).
//		Status(sys.ErrOutOfRange).
//		Detail("%d handles", n).
//		Build()
//
// A receive that lacked capacity reports *BufferTooSmallError, which matches
// ErrBufferTooSmall and carries the required byte and handle counts.
package errors
