package kernel

import (
	"cmp"
	"slices"

	"github.com/wippyai/magenta-go/sys"
)

const waitSetRights = sys.RightDuplicate | sys.RightTransfer | sys.RightRead | sys.RightWrite

type waitEntry struct {
	obj     object
	handle  sys.Handle
	signals sys.Signals
}

// waitSet watches registered handles for signals. Entries refer to the
// handle value they were added with; closing that handle makes the entry
// report ErrHandleClosed.
type waitSet struct {
	objectBase
	entries map[uint64]waitEntry
}

func (w *waitSet) state() sys.SignalsState {
	return sys.SignalsState{Satisfied: w.user, Satisfiable: sys.UserSignalAll}
}

func (w *waitSet) userSettable() sys.Signals { return sys.UserSignalAll }
func (w *waitSet) destroy(*Kernel)          { w.entries = nil }

func (k *Kernel) lookupWaitSet(h sys.Handle, need sys.Rights) (*waitSet, sys.Status) {
	e, ok := k.table.lookup(h)
	if !ok {
		return nil, sys.ErrBadHandle
	}
	ws, ok := e.obj.(*waitSet)
	if !ok {
		return nil, sys.ErrWrongType
	}
	if e.rights&need != need {
		return nil, sys.ErrAccessDenied
	}
	return ws, sys.OK
}

// poll reports the entry's readiness. Caller holds the lock.
func (k *Kernel) poll(cookie uint64, we waitEntry) (sys.WaitSetResult, bool) {
	if cur, ok := k.table.lookup(we.handle); !ok || cur.obj != we.obj {
		return sys.WaitSetResult{Cookie: cookie, Status: sys.ErrHandleClosed}, true
	}
	st := we.obj.state()
	switch {
	case st.Satisfied&we.signals != 0:
		return sys.WaitSetResult{Cookie: cookie, Status: sys.OK, Observed: st.Satisfied}, true
	case st.Satisfiable&we.signals == 0:
		return sys.WaitSetResult{Cookie: cookie, Status: sys.ErrBadState, Observed: st.Satisfied}, true
	}
	return sys.WaitSetResult{}, false
}

// WaitSetCreate creates an empty wait set.
func (k *Kernel) WaitSetCreate(out *sys.Handle) sys.Status {
	k.lock()
	defer k.unlock()
	ws := &waitSet{objectBase: newBase(ObjectWaitSet), entries: make(map[uint64]waitEntry)}
	return k.createOne(ws, waitSetRights, out)
}

// WaitSetAdd registers h under cookie.
func (k *Kernel) WaitSetAdd(wsh sys.Handle, h sys.Handle, signals sys.Signals, cookie uint64) sys.Status {
	k.lock()
	defer k.unlock()

	ws, status := k.lookupWaitSet(wsh, sys.RightWrite)
	if status != sys.OK {
		return status
	}
	e, ok := k.table.lookup(h)
	if !ok {
		return sys.ErrBadHandle
	}
	if e.obj == object(ws) {
		return sys.ErrNotSupported
	}
	if _, exists := ws.entries[cookie]; exists {
		return sys.ErrAlreadyExists
	}
	ws.entries[cookie] = waitEntry{obj: e.obj, handle: h, signals: signals}
	k.cond.Broadcast()
	return sys.OK
}

// WaitSetRemove unregisters cookie.
func (k *Kernel) WaitSetRemove(wsh sys.Handle, cookie uint64) sys.Status {
	k.lock()
	defer k.unlock()

	ws, status := k.lookupWaitSet(wsh, sys.RightWrite)
	if status != sys.OK {
		return status
	}
	if _, exists := ws.entries[cookie]; !exists {
		return sys.ErrNotFound
	}
	delete(ws.entries, cookie)
	return sys.OK
}

// WaitSetWait blocks until at least one entry is ready. Ready entries are
// reported in cookie order.
func (k *Kernel) WaitSetWait(wsh sys.Handle, timeout sys.Time, results []sys.WaitSetResult, numResults *uint32, maxResults *uint32) sys.Status {
	k.lock()
	defer k.unlock()

	ws, status := k.lookupWaitSet(wsh, sys.RightRead)
	if status != sys.OK {
		return status
	}

	var ready []sys.WaitSetResult
	status = sys.ErrTimedOut
	k.block(timeout, func() bool {
		if cur, ok := k.table.lookup(wsh); !ok || cur.obj != object(ws) {
			status = sys.ErrHandleClosed
			return true
		}
		ready = ready[:0]
		for cookie, we := range ws.entries {
			if r, ok := k.poll(cookie, we); ok {
				ready = append(ready, r)
			}
		}
		if len(ready) == 0 {
			return false
		}
		status = sys.OK
		return true
	})

	if status != sys.OK {
		if numResults != nil {
			*numResults = 0
		}
		if maxResults != nil {
			*maxResults = 0
		}
		return status
	}

	slices.SortFunc(ready, func(a, b sys.WaitSetResult) int { return cmp.Compare(a.Cookie, b.Cookie) })
	n := copy(results, ready)
	if numResults != nil {
		*numResults = uint32(n)
	}
	if maxResults != nil {
		*maxResults = uint32(len(ready))
	}
	return sys.OK
}
