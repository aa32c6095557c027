package magenta

import (
	"slices"

	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// MessagePipe is an endpoint of the legacy message pipe. Pipes created with
// sys.FlagReplyPipe make the second endpoint single use: every write from it
// must carry the endpoint itself, which WriteReply does.
type MessagePipe struct {
	Handle
}

// CreateMessagePipe creates a connected pair of pipe endpoints.
func CreateMessagePipe(s sys.System, flags uint32) (*MessagePipe, *MessagePipe, error) {
	var out [2]sys.Handle
	if err := errors.FromStatus(errors.OpMsgpipeCreate, s.MsgpipeCreate(&out, flags)); err != nil {
		return nil, nil, err
	}
	return &MessagePipe{Handle{sys: s, raw: out[0]}}, &MessagePipe{Handle{sys: s, raw: out[1]}}, nil
}

// ReadRaw reads the next message into buf without growing it. Arguments
// follow Channel.ReadRaw.
func (p *MessagePipe) ReadRaw(flags uint32, buf *MessageBuf) error {
	if !p.IsValid() {
		return errors.BadHandle(errors.OpMsgpipeRead)
	}
	bytes, handles := buf.receive(p.sys)
	var nb, nh uint32
	status := p.sys.MsgpipeRead(p.raw, bytes, &nb, handles, &nh, flags)
	return finishRead(errors.OpMsgpipeRead, status, buf, nb, nh)
}

// Read reads the next message into buf, growing buf as needed.
func (p *MessagePipe) Read(flags uint32, buf *MessageBuf) error {
	return readGrowing(buf, func() error { return p.ReadRaw(flags, buf) })
}

// Write sends data and handles with the same ownership rules as
// Channel.Write.
func (p *MessagePipe) Write(data []byte, handles *[]*Handle, flags uint32) error {
	return writeMessage(&p.Handle, errors.OpMsgpipeWrite, data, handles, func(raw []sys.Handle) sys.Status {
		return p.sys.MsgpipeWrite(p.raw, data, raw, flags)
	})
}

// WriteReply sends data and handles followed by the endpoint itself. p is
// consumed either way. On success it returns nil and *handles is emptied;
// on failure it returns the endpoint, still usable, and *handles is left
// untouched.
func (p *MessagePipe) WriteReply(data []byte, handles *[]*Handle, flags uint32) (*MessagePipe, error) {
	if !p.IsValid() {
		return nil, errors.BadHandle(errors.OpMsgpipeWrite)
	}
	var hs []*Handle
	if handles != nil {
		hs = *handles
	}
	self := p.IntoHandle()
	all := append(slices.Clip(hs), self)

	err := writeMessage(self, errors.OpMsgpipeWrite, data, &all, func(raw []sys.Handle) sys.Status {
		return self.sys.MsgpipeWrite(self.raw, data, raw, flags)
	})
	if err != nil {
		return As[MessagePipe](self), err
	}
	if handles != nil {
		*handles = hs[:0]
	}
	return nil, nil
}

// SignalPeer clears then sets user signals on the other endpoint.
func (p *MessagePipe) SignalPeer(clear, set sys.Signals) error {
	return p.signalPeer(clear, set)
}
