package kernel

import "github.com/wippyai/magenta-go/sys"

// Raw handle layout: bits 0-19 hold index+1, bits 20-29 the slot generation.
// Values are always positive and a closed value is not handed out again
// until its slot has been reused 1024 times.
const (
	indexBits = 20
	genBits   = 10
	indexMask = 1<<indexBits - 1
	genMask   = 1<<genBits - 1
	maxIndex  = indexMask
)

type entry struct {
	obj    object
	rights sys.Rights
	gen    uint32
	valid  bool
}

// handleTable maps raw handle values to objects. It is not safe for
// concurrent use; the kernel lock guards it.
type handleTable struct {
	entries  []entry
	freeList []uint32
	limit    int
	live     int
}

func newHandleTable(limit int) handleTable {
	return handleTable{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
		limit:    limit,
	}
}

func encodeHandle(idx, gen uint32) sys.Handle {
	return sys.Handle(gen<<indexBits | (idx + 1))
}

func decodeHandle(h sys.Handle) (idx, gen uint32, ok bool) {
	if h <= 0 {
		return 0, 0, false
	}
	v := uint32(h)
	low := v & indexMask
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, (v >> indexBits) & genMask, true
}

// free reports how many more handles fit.
func (t *handleTable) free() int {
	return t.limit - t.live
}

// insert stores obj with rights and returns its new raw handle.
func (t *handleTable) insert(obj object, rights sys.Rights) (sys.Handle, bool) {
	if t.live >= t.limit {
		return sys.HandleInvalid, false
	}
	t.live++

	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		e := &t.entries[idx]
		e.obj = obj
		e.rights = rights
		e.valid = true
		return encodeHandle(idx, e.gen), true
	}

	t.entries = append(t.entries, entry{obj: obj, rights: rights, valid: true})
	return encodeHandle(uint32(len(t.entries)-1), 0), true
}

// lookup returns the live entry for h.
func (t *handleTable) lookup(h sys.Handle) (*entry, bool) {
	idx, gen, ok := decodeHandle(h)
	if !ok || int(idx) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid || e.gen != gen {
		return nil, false
	}
	return e, true
}

// remove invalidates h and returns what it referred to.
func (t *handleTable) remove(h sys.Handle) (object, sys.Rights, bool) {
	e, ok := t.lookup(h)
	if !ok {
		return nil, 0, false
	}
	obj, rights := e.obj, e.rights
	idx, _, _ := decodeHandle(h)

	e.obj = nil
	e.rights = 0
	e.valid = false
	e.gen = (e.gen + 1) & genMask
	t.freeList = append(t.freeList, idx)
	t.live--
	return obj, rights, true
}

// each calls fn for every live handle until fn returns false.
func (t *handleTable) each(fn func(sys.Handle, *entry) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid {
			continue
		}
		if !fn(encodeHandle(uint32(i), e.gen), e) {
			return
		}
	}
}
