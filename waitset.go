package magenta

import (
	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// WaitSet waits on many handles at once. Each registration is keyed by a
// caller-chosen cookie.
type WaitSet struct {
	Handle
	// registered counts entries added through this wrapper. WaitResults
	// sizes its result buffer from it.
	registered int
}

// CreateWaitSet creates an empty wait set.
func CreateWaitSet(s sys.System) (*WaitSet, error) {
	var h sys.Handle
	if err := errors.FromStatus(errors.OpWaitSetCreate, s.WaitSetCreate(&h)); err != nil {
		return nil, err
	}
	return &WaitSet{Handle: Handle{sys: s, raw: h}}, nil
}

// Add watches ref for signals under cookie. Cookies must be unique within
// the set, and ref must come from the same kernel as the set.
func (w *WaitSet) Add(ref HandleRef, signals sys.Signals, cookie uint64) error {
	if !w.IsValid() {
		return errors.BadHandle(errors.OpWaitSetAdd)
	}
	if ref.sys != nil && ref.sys != w.sys {
		return errors.New(errors.OpWaitSetAdd, errors.KindInvalidArgs).
			Status(sys.ErrInvalidArgs).
			Detail("handle belongs to another kernel").
			Build()
	}
	if err := errors.FromStatus(errors.OpWaitSetAdd, w.sys.WaitSetAdd(w.raw, ref.raw, signals, cookie)); err != nil {
		return err
	}
	w.registered++
	return nil
}

// Remove stops watching the entry registered under cookie.
func (w *WaitSet) Remove(cookie uint64) error {
	if !w.IsValid() {
		return errors.BadHandle(errors.OpWaitSetRemove)
	}
	if err := errors.FromStatus(errors.OpWaitSetRemove, w.sys.WaitSetRemove(w.raw, cookie)); err != nil {
		return err
	}
	w.registered--
	return nil
}

// WaitResults blocks until at least one entry is ready or timeout elapses.
// Ready entries are stored in *results, which is grown to hold every registered
// entry. The returned count is the number of ready entries, which exceeds
// len(*results) only if entries were added through another handle to the
// same set. Result order is unspecified.
func (w *WaitSet) WaitResults(timeout sys.Time, results *[]sys.WaitSetResult) (int, error) {
	if !w.IsValid() {
		*results = (*results)[:0]
		return 0, errors.BadHandle(errors.OpWaitSetWait)
	}
	if want := max(w.registered, 1); cap(*results) < want {
		*results = make([]sys.WaitSetResult, want)
	}
	buf := (*results)[:cap(*results)]

	var n, total uint32
	status := w.sys.WaitSetWait(w.raw, timeout, buf, &n, &total)
	if err := errors.FromStatus(errors.OpWaitSetWait, status); err != nil {
		*results = buf[:0]
		return 0, err
	}
	*results = buf[:n]
	return int(total), nil
}
