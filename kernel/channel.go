package kernel

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/sys"
)

const channelRights = sys.RightDuplicate | sys.RightTransfer | sys.RightRead | sys.RightWrite

// grant is a handle in flight: the object and the rights it will carry
// once received.
type grant struct {
	obj    object
	rights sys.Rights
}

type message struct {
	data    []byte
	handles []grant
}

// messageQueue is an endpoint's receive queue. The head slot lets a read
// inspect a message without consuming it.
type messageQueue struct {
	ring  lfq.SPSC[message]
	head  *message
	count int
	limit int
}

// init sizes the ring with headroom; count enforces limit.
func (q *messageQueue) init(limit int) {
	q.ring.Init(limit * 2)
	q.limit = limit
}

func (q *messageQueue) push(m message) error {
	if q.count >= q.limit {
		return iox.ErrWouldBlock
	}
	if err := q.ring.Enqueue(&m); err != nil {
		return err
	}
	q.count++
	return nil
}

func (q *messageQueue) peek() *message {
	if q.head == nil && q.count > 0 {
		m, err := q.ring.Dequeue()
		if err != nil {
			return nil
		}
		q.head = &m
	}
	return q.head
}

func (q *messageQueue) pop() (message, bool) {
	m := q.peek()
	if m == nil {
		return message{}, false
	}
	q.head = nil
	q.count--
	return *m, true
}

// channelEndpoint is one side of a channel or legacy message pipe.
type channelEndpoint struct {
	objectBase
	peer  *channelEndpoint
	queue messageQueue
	// replyEnd marks the second endpoint of a reply pipe: every write must
	// carry the endpoint itself as its last handle.
	replyEnd bool
}

func newChannelPair(limit int) (*channelEndpoint, *channelEndpoint) {
	a := &channelEndpoint{objectBase: newBase(ObjectChannel)}
	b := &channelEndpoint{objectBase: newBase(ObjectChannel)}
	a.queue.init(limit)
	b.queue.init(limit)
	a.peer, b.peer = b, a
	return a, b
}

func (c *channelEndpoint) state() sys.SignalsState {
	var st sys.SignalsState
	st.Satisfied = c.user
	st.Satisfiable = sys.UserSignalAll | sys.SignalChannelPeerClosed
	if c.queue.count > 0 {
		st.Satisfied |= sys.SignalChannelReadable
	}
	if c.peer != nil {
		st.Satisfied |= sys.SignalChannelWritable
		st.Satisfiable |= sys.SignalChannelReadable | sys.SignalChannelWritable
	} else {
		st.Satisfied |= sys.SignalChannelPeerClosed
		if c.queue.count > 0 {
			st.Satisfiable |= sys.SignalChannelReadable
		}
	}
	return st
}

func (c *channelEndpoint) userSettable() sys.Signals { return sys.UserSignalAll }
func (c *channelEndpoint) peerSettable() sys.Signals { return sys.UserSignalAll }

func (c *channelEndpoint) peerObject() object {
	if c.peer == nil {
		return nil
	}
	return c.peer
}

func (c *channelEndpoint) destroy(k *Kernel) {
	if c.peer != nil {
		c.peer.peer = nil
		c.peer = nil
	}
	for {
		m, ok := c.queue.pop()
		if !ok {
			break
		}
		k.releaseMessage(m)
	}
}

// releaseMessage drops the in-flight references held by an undelivered
// message.
func (k *Kernel) releaseMessage(m message) {
	for _, g := range m.handles {
		g.obj.base().inflight--
		k.maybeDestroy(g.obj)
	}
}

func (k *Kernel) lookupChannel(h sys.Handle, need sys.Rights) (*channelEndpoint, sys.Status) {
	e, ok := k.table.lookup(h)
	if !ok {
		return nil, sys.ErrBadHandle
	}
	ch, ok := e.obj.(*channelEndpoint)
	if !ok {
		return nil, sys.ErrWrongType
	}
	if e.rights&need != need {
		return nil, sys.ErrAccessDenied
	}
	return ch, sys.OK
}

// ChannelCreate creates a connected endpoint pair.
func (k *Kernel) ChannelCreate(opts uint32, out0, out1 *sys.Handle) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	a, b := newChannelPair(k.cfg.MaxPendingMessages)
	return k.createPair(a, b, channelRights, out0, out1)
}

// ChannelRead dequeues the next message into bytes and handles. When either
// buffer is too small the message stays queued and the needed sizes are
// still reported.
func (k *Kernel) ChannelRead(h sys.Handle, opts uint32, bytes []byte, actualBytes *uint32, handles []sys.Handle, actualHandles *uint32) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	return k.channelRead(h, bytes, actualBytes, handles, actualHandles)
}

func (k *Kernel) channelRead(h sys.Handle, bytes []byte, actualBytes *uint32, handles []sys.Handle, actualHandles *uint32) sys.Status {
	ch, status := k.lookupChannel(h, sys.RightRead)
	if status != sys.OK {
		return status
	}

	m := ch.queue.peek()
	if m == nil {
		if ch.peer == nil {
			return sys.ErrRemoteClosed
		}
		return sys.ErrShouldWait
	}

	if actualBytes != nil {
		*actualBytes = uint32(len(m.data))
	}
	if actualHandles != nil {
		*actualHandles = uint32(len(m.handles))
	}
	if len(m.data) > len(bytes) || len(m.handles) > len(handles) {
		return sys.ErrBufferTooSmall
	}
	if len(m.handles) > k.table.free() {
		return sys.ErrNoResources
	}

	msg, _ := ch.queue.pop()
	copy(bytes, msg.data)
	for i, g := range msg.handles {
		g.obj.base().inflight--
		handles[i], _ = k.addHandle(g.obj, g.rights, EventCreated)
	}
	k.cond.Broadcast()
	return sys.OK
}

// ChannelWrite enqueues a message on the peer. Handles move into the
// message only when the write succeeds.
func (k *Kernel) ChannelWrite(h sys.Handle, opts uint32, bytes []byte, handles []sys.Handle) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	return k.channelWrite(h, bytes, handles)
}

func (k *Kernel) channelWrite(h sys.Handle, bytes []byte, handles []sys.Handle) sys.Status {
	ch, status := k.lookupChannel(h, sys.RightWrite)
	if status != sys.OK {
		return status
	}
	if uint64(len(bytes)) > uint64(k.cfg.MaxMessageBytes) ||
		uint64(len(handles)) > uint64(k.cfg.MaxMessageHandles) {
		return sys.ErrOutOfRange
	}

	if ch.replyEnd && (len(handles) == 0 || handles[len(handles)-1] != h) {
		return sys.ErrBadState
	}

	grants := make([]grant, len(handles))
	for i, th := range handles {
		if th == h && !(ch.replyEnd && i == len(handles)-1) {
			return sys.ErrNotSupported
		}
		for _, prev := range handles[:i] {
			if prev == th {
				return sys.ErrInvalidArgs
			}
		}
		e, ok := k.table.lookup(th)
		if !ok {
			return sys.ErrBadHandle
		}
		if e.rights&sys.RightTransfer == 0 {
			return sys.ErrAccessDenied
		}
		grants[i] = grant{obj: e.obj, rights: e.rights}
	}

	if ch.peer == nil {
		return sys.ErrRemoteClosed
	}

	m := message{handles: grants}
	if len(bytes) > 0 {
		m.data = append([]byte(nil), bytes...)
	}
	if err := ch.peer.queue.push(m); err != nil {
		if iox.IsWouldBlock(err) {
			return sys.ErrShouldWait
		}
		Logger().Error("channel enqueue failed", zap.Error(err))
		return sys.ErrInternal
	}

	for i, th := range handles {
		k.table.remove(th)
		b := grants[i].obj.base()
		b.handles--
		b.inflight++
		k.emit(Event{Koid: b.koid, Handle: th, Object: b.typ, Type: EventTransferred})
	}
	k.cond.Broadcast()
	return sys.OK
}

// MsgpipeCreate creates a legacy message pipe. With FlagReplyPipe the
// second endpoint must send itself back with every write.
func (k *Kernel) MsgpipeCreate(out *[2]sys.Handle, flags uint32) sys.Status {
	if flags&^sys.FlagReplyPipe != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	a, b := newChannelPair(k.cfg.MaxPendingMessages)
	b.replyEnd = flags&sys.FlagReplyPipe != 0
	return k.createPair(a, b, channelRights, &out[0], &out[1])
}

// MsgpipeRead reads like ChannelRead. numBytes and numHandles receive the
// size of the pending message.
func (k *Kernel) MsgpipeRead(h sys.Handle, bytes []byte, numBytes *uint32, handles []sys.Handle, numHandles *uint32, flags uint32) sys.Status {
	if flags != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	return k.channelRead(h, bytes, numBytes, handles, numHandles)
}

// MsgpipeWrite writes like ChannelWrite, applying reply pipe rules.
func (k *Kernel) MsgpipeWrite(h sys.Handle, bytes []byte, handles []sys.Handle, flags uint32) sys.Status {
	if flags != 0 {
		return sys.ErrInvalidArgs
	}
	k.lock()
	defer k.unlock()
	return k.channelWrite(h, bytes, handles)
}
