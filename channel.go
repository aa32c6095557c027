package magenta

import (
	"context"
	"math"

	"code.hybscloud.com/iox"
	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// maxReadAttempts bounds the grow-and-retry loop in Read. Each retry grows
// the buffer to the size the kernel reported for the pending message, so
// the second attempt succeeds unless another reader on the same endpoint
// swapped the message in between.
const maxReadAttempts = 8

// Channel is one endpoint of a bidirectional message channel.
type Channel struct {
	Handle
}

// CreateChannel creates a connected pair of endpoints.
func CreateChannel(s sys.System, opts uint32) (*Channel, *Channel, error) {
	var h0, h1 sys.Handle
	if err := errors.FromStatus(errors.OpChannelCreate, s.ChannelCreate(opts, &h0, &h1)); err != nil {
		return nil, nil, err
	}
	return &Channel{Handle{sys: s, raw: h0}}, &Channel{Handle{sys: s, raw: h1}}, nil
}

// ReadRaw reads the next message into buf without growing it. If the
// message does not fit, it stays queued and a *errors.BufferTooSmallError
// reports the capacity needed.
func (c *Channel) ReadRaw(opts uint32, buf *MessageBuf) error {
	if !c.IsValid() {
		return errors.BadHandle(errors.OpChannelRead)
	}
	bytes, handles := buf.receive(c.sys)
	var nb, nh uint32
	status := c.sys.ChannelRead(c.raw, opts, bytes, &nb, handles, &nh)
	return finishRead(errors.OpChannelRead, status, buf, nb, nh)
}

// Read reads the next message into buf, growing buf as needed.
func (c *Channel) Read(opts uint32, buf *MessageBuf) error {
	return readGrowing(buf, func() error { return c.ReadRaw(opts, buf) })
}

// Write sends data and handles to the peer. On success every handle in
// *handles is consumed and the slice is truncated to zero length. On
// failure the handles remain owned by the caller.
func (c *Channel) Write(data []byte, handles *[]*Handle, opts uint32) error {
	return writeMessage(&c.Handle, errors.OpChannelWrite, data, handles, func(raw []sys.Handle) sys.Status {
		return c.sys.ChannelWrite(c.raw, opts, data, raw)
	})
}

// WriteContext is Write that retries while the peer's queue is full,
// backing off between attempts until ctx is done.
func (c *Channel) WriteContext(ctx context.Context, data []byte, handles *[]*Handle, opts uint32) error {
	var bo iox.Backoff
	for {
		err := c.Write(data, handles, opts)
		if !errors.Is(err, errors.ErrShouldWait) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.OpChannelWrite, errors.KindShouldWait, ctx.Err(), "peer queue stayed full")
		default:
		}
		bo.Wait()
	}
}

// SignalPeer clears then sets user signals on the other endpoint.
func (c *Channel) SignalPeer(clear, set sys.Signals) error {
	return c.signalPeer(clear, set)
}

func finishRead(op errors.Op, status sys.Status, buf *MessageBuf, nb, nh uint32) error {
	if status == sys.ErrBufferTooSmall {
		return &errors.BufferTooSmallError{Op: op, Bytes: int(nb), Handles: int(nh)}
	}
	if err := errors.FromStatus(op, status); err != nil {
		return err
	}
	buf.deliver(nb, nh)
	return nil
}

func readGrowing(buf *MessageBuf, attempt func() error) error {
	var err error
	for range maxReadAttempts {
		err = attempt()
		var tooSmall *errors.BufferTooSmallError
		if !errors.As(err, &tooSmall) {
			return err
		}
		Logger().Debug("growing receive buffer",
			zap.Int("bytes", tooSmall.Bytes),
			zap.Int("handles", tooSmall.Handles))
		buf.EnsureCapacityBytes(tooSmall.Bytes)
		buf.EnsureCapacityHandles(tooSmall.Handles)
	}
	return err
}

func checkCount(op errors.Op, what string, n int) error {
	if uint64(n) > math.MaxUint32 {
		return errors.OutOfRange(op, what, n, math.MaxUint32)
	}
	return nil
}

// writeMessage hands handles to call as raw values and invalidates them
// only if call succeeds.
func writeMessage(h *Handle, op errors.Op, data []byte, handles *[]*Handle, call func([]sys.Handle) sys.Status) error {
	if !h.IsValid() {
		return errors.BadHandle(op)
	}
	var hs []*Handle
	if handles != nil {
		hs = *handles
	}
	if err := checkCount(op, "byte", len(data)); err != nil {
		return err
	}
	if err := checkCount(op, "handle", len(hs)); err != nil {
		return err
	}

	raw := make([]sys.Handle, len(hs))
	for i, x := range hs {
		if x.IsValid() && x.sys != h.sys {
			return errors.New(op, errors.KindInvalidArgs).
				Status(sys.ErrInvalidArgs).
				Detail("handle %d belongs to another system", i).
				Build()
		}
		raw[i] = x.Raw()
	}

	if err := errors.FromStatus(op, call(raw)); err != nil {
		return err
	}
	for _, x := range hs {
		x.invalidate()
	}
	if handles != nil {
		*handles = hs[:0]
	}
	return nil
}
