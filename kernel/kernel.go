package kernel

import (
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/sys"
)

// Kernel is an in-process implementation of sys.System. Handles issued by
// one Kernel are meaningless to another.
type Kernel struct {
	cond      *sync.Cond
	start     time.Time
	observers []observerEntry
	pending   []Event
	table     handleTable
	cfg       Config
	lastTime  sys.Time
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
	nextSub   Subscription
}

// Subscription identifies a registered observer.
type Subscription uint64

type observerEntry struct {
	id  Subscription
	obs Observer
}

var _ sys.System = (*Kernel)(nil)

// New creates a kernel with default limits.
func New() *Kernel {
	return NewWithConfig(nil)
}

// NewWithConfig creates a kernel with the given limits. A nil config uses
// the defaults.
func NewWithConfig(cfg *Config) *Kernel {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	k := &Kernel{
		cfg:   c,
		table: newHandleTable(c.MaxHandles),
		start: time.Now(),
	}
	k.cond = sync.NewCond(&k.mu)

	Logger().Debug("kernel created",
		zap.Uint32("max_message_bytes", c.MaxMessageBytes),
		zap.Uint32("max_message_handles", c.MaxMessageHandles),
		zap.Int("max_pending_messages", c.MaxPendingMessages),
		zap.Int("max_handles", c.MaxHandles))
	return k
}

// Config returns the effective limits.
func (k *Kernel) Config() Config {
	return k.cfg
}

// Subscribe registers an observer for handle lifecycle events. The
// returned Subscription removes it again.
func (k *Kernel) Subscribe(o Observer) Subscription {
	k.obsMu.Lock()
	defer k.obsMu.Unlock()
	k.nextSub++
	// Copy on write: unlock delivers from a snapshot without holding obsMu.
	next := make([]observerEntry, len(k.observers), len(k.observers)+1)
	copy(next, k.observers)
	k.observers = append(next, observerEntry{id: k.nextSub, obs: o})
	return k.nextSub
}

// Unsubscribe removes the observer registered under id. Unknown ids are
// ignored.
func (k *Kernel) Unsubscribe(id Subscription) {
	k.obsMu.Lock()
	defer k.obsMu.Unlock()
	i := slices.IndexFunc(k.observers, func(e observerEntry) bool { return e.id == id })
	if i < 0 {
		return
	}
	k.observers = slices.Delete(slices.Clone(k.observers), i, i+1)
}

// emit queues an event for delivery once the kernel lock is released.
func (k *Kernel) emit(e Event) {
	k.pending = append(k.pending, e)
}

func (k *Kernel) lock() {
	k.mu.Lock()
}

// unlock releases the kernel lock and delivers queued events.
func (k *Kernel) unlock() {
	events := k.pending
	k.pending = nil
	k.mu.Unlock()

	if len(events) == 0 {
		return
	}
	k.obsMu.RLock()
	observers := k.observers
	k.obsMu.RUnlock()
	for _, e := range events {
		for _, o := range observers {
			o.obs.OnHandleEvent(e)
		}
	}
}

// Len returns the number of live handles.
func (k *Kernel) Len() int {
	k.lock()
	defer k.unlock()
	return k.table.live
}

// Info describes a live handle.
func (k *Kernel) Info(h sys.Handle) (HandleInfo, sys.Status) {
	k.lock()
	defer k.unlock()
	e, ok := k.table.lookup(h)
	if !ok {
		return HandleInfo{}, sys.ErrBadHandle
	}
	b := e.obj.base()
	return HandleInfo{Koid: b.koid, Rights: e.rights, Type: b.typ}, sys.OK
}

// Each calls fn for every live handle until fn returns false. fn must not
// call back into the kernel.
func (k *Kernel) Each(fn func(sys.Handle, HandleInfo) bool) {
	k.lock()
	defer k.unlock()
	k.table.each(func(h sys.Handle, e *entry) bool {
		b := e.obj.base()
		return fn(h, HandleInfo{Koid: b.koid, Rights: e.rights, Type: b.typ})
	})
}

// Close closes every live handle. Later create calls fail with ErrBadState.
func (k *Kernel) Close() error {
	k.lock()
	defer k.unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var live []sys.Handle
	k.table.each(func(h sys.Handle, _ *entry) bool {
		live = append(live, h)
		return true
	})
	for _, h := range live {
		k.closeLocked(h)
	}
	k.cond.Broadcast()
	Logger().Debug("kernel closed", zap.Int("handles", len(live)))
	return nil
}

// addHandle issues a new handle for obj. Caller holds the lock.
func (k *Kernel) addHandle(obj object, rights sys.Rights, ev EventType) (sys.Handle, bool) {
	h, ok := k.table.insert(obj, rights)
	if !ok {
		return sys.HandleInvalid, false
	}
	b := obj.base()
	b.handles++
	k.emit(Event{Koid: b.koid, Handle: h, Object: b.typ, Type: ev})
	return h, true
}

// createPair issues handles for two fresh objects or none at all.
func (k *Kernel) createPair(a, b object, rights sys.Rights, out0, out1 *sys.Handle) sys.Status {
	if k.closed {
		return sys.ErrBadState
	}
	if k.table.free() < 2 {
		return sys.ErrNoResources
	}
	*out0, _ = k.addHandle(a, rights, EventCreated)
	*out1, _ = k.addHandle(b, rights, EventCreated)
	return sys.OK
}

func (k *Kernel) createOne(obj object, rights sys.Rights, out *sys.Handle) sys.Status {
	if k.closed {
		return sys.ErrBadState
	}
	h, ok := k.addHandle(obj, rights, EventCreated)
	if !ok {
		return sys.ErrNoResources
	}
	*out = h
	return sys.OK
}

func (k *Kernel) closeLocked(h sys.Handle) bool {
	obj, _, ok := k.table.remove(h)
	if !ok {
		return false
	}
	b := obj.base()
	b.handles--
	k.emit(Event{Koid: b.koid, Handle: h, Object: b.typ, Type: EventClosed})
	k.maybeDestroy(obj)
	return true
}

// HandleClose closes h.
func (k *Kernel) HandleClose(h sys.Handle) sys.Status {
	k.lock()
	defer k.unlock()
	if !k.closeLocked(h) {
		return sys.ErrBadHandle
	}
	k.cond.Broadcast()
	return sys.OK
}

// HandleDuplicate issues a second handle to the object behind h.
func (k *Kernel) HandleDuplicate(h sys.Handle, rights sys.Rights, out *sys.Handle) sys.Status {
	k.lock()
	defer k.unlock()

	e, ok := k.table.lookup(h)
	if !ok {
		return sys.ErrBadHandle
	}
	if e.rights&sys.RightDuplicate == 0 {
		return sys.ErrAccessDenied
	}
	if rights == sys.RightSameRights {
		rights = e.rights
	} else if rights&^e.rights != 0 {
		return sys.ErrAccessDenied
	}
	dup, ok := k.addHandle(e.obj, rights, EventDuplicated)
	if !ok {
		return sys.ErrNoResources
	}
	*out = dup
	return sys.OK
}

// ObjectSignal clears then sets signals on the object behind h.
func (k *Kernel) ObjectSignal(h sys.Handle, clear, set sys.Signals) sys.Status {
	k.lock()
	defer k.unlock()

	e, ok := k.table.lookup(h)
	if !ok {
		return sys.ErrBadHandle
	}
	if e.rights&sys.RightWrite == 0 {
		return sys.ErrAccessDenied
	}
	if (clear|set)&^e.obj.userSettable() != 0 {
		return sys.ErrInvalidArgs
	}
	b := e.obj.base()
	b.user = b.user&^clear | set
	k.cond.Broadcast()
	return sys.OK
}

// ObjectSignalPeer clears then sets signals on the peer of h.
func (k *Kernel) ObjectSignalPeer(h sys.Handle, clear, set sys.Signals) sys.Status {
	k.lock()
	defer k.unlock()

	e, ok := k.table.lookup(h)
	if !ok {
		return sys.ErrBadHandle
	}
	p, ok := e.obj.(peered)
	if !ok {
		return sys.ErrNotSupported
	}
	if e.rights&sys.RightWrite == 0 {
		return sys.ErrAccessDenied
	}
	if (clear|set)&^p.peerSettable() != 0 {
		return sys.ErrInvalidArgs
	}
	peer := p.peerObject()
	if peer == nil {
		return sys.ErrRemoteClosed
	}
	b := peer.base()
	b.user = b.user&^clear | set
	k.cond.Broadcast()
	return sys.OK
}

// block waits until ready reports true or timeout elapses. Caller holds
// the lock. A zero timeout polls once.
func (k *Kernel) block(timeout sys.Time, ready func() bool) bool {
	if ready() {
		return true
	}
	if timeout == 0 {
		return false
	}

	infinite := timeout == sys.TimeInfinite || timeout > math.MaxInt64
	var deadline time.Time
	if !infinite {
		d := time.Duration(timeout)
		deadline = time.Now().Add(d)
		timer := time.AfterFunc(d, func() {
			k.mu.Lock()
			k.cond.Broadcast()
			k.mu.Unlock()
		})
		defer timer.Stop()
	}

	for {
		k.cond.Wait()
		if ready() {
			return true
		}
		if !infinite && !time.Now().Before(deadline) {
			return false
		}
	}
}

// HandleWaitOne blocks until h asserts any of signals, the signals become
// unsatisfiable, h is closed, or timeout elapses.
func (k *Kernel) HandleWaitOne(h sys.Handle, signals sys.Signals, timeout sys.Time, state *sys.SignalsState) sys.Status {
	k.lock()
	defer k.unlock()

	e, ok := k.table.lookup(h)
	if !ok {
		return sys.ErrBadHandle
	}
	obj := e.obj

	status := sys.ErrTimedOut
	k.block(timeout, func() bool {
		if cur, ok := k.table.lookup(h); !ok || cur.obj != obj {
			status = sys.ErrHandleClosed
			return true
		}
		st := obj.state()
		if state != nil {
			*state = st
		}
		switch {
		case st.Satisfied&signals != 0:
			status = sys.OK
			return true
		case st.Satisfiable&signals == 0:
			status = sys.ErrBadState
			return true
		}
		return false
	})
	return status
}

// HandleWaitMany blocks until any item's handle asserts one of its
// signals. Pending is filled for every item on return.
func (k *Kernel) HandleWaitMany(items []sys.WaitItem, timeout sys.Time) sys.Status {
	k.lock()
	defer k.unlock()

	objs := make([]object, len(items))
	for i, it := range items {
		e, ok := k.table.lookup(it.Handle)
		if !ok {
			return sys.ErrBadHandle
		}
		objs[i] = e.obj
	}

	status := sys.ErrTimedOut
	k.block(timeout, func() bool {
		if len(items) == 0 {
			return false
		}
		hit, unsatisfiable := false, 0
		for i := range items {
			if cur, ok := k.table.lookup(items[i].Handle); !ok || cur.obj != objs[i] {
				status = sys.ErrHandleClosed
				return true
			}
			st := objs[i].state()
			items[i].Pending = st.Satisfied
			if st.Satisfied&items[i].WaitFor != 0 {
				hit = true
			}
			if st.Satisfiable&items[i].WaitFor == 0 {
				unsatisfiable++
			}
		}
		switch {
		case hit:
			status = sys.OK
			return true
		case unsatisfiable == len(items):
			status = sys.ErrBadState
			return true
		}
		return false
	})
	return status
}

// TimeGet returns nanoseconds since the kernel started. Successive calls
// return strictly increasing values.
func (k *Kernel) TimeGet(clockID uint32) sys.Time {
	if clockID != sys.ClockMonotonic {
		return 0
	}
	k.lock()
	defer k.unlock()
	now := sys.Time(time.Since(k.start))
	if now <= k.lastTime {
		now = k.lastTime + 1
	}
	k.lastTime = now
	return now
}

// Nanosleep blocks the caller for d nanoseconds.
func (k *Kernel) Nanosleep(d sys.Time) sys.Status {
	if d > math.MaxInt64 {
		d = math.MaxInt64
	}
	time.Sleep(time.Duration(d))
	return sys.OK
}
