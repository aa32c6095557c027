package kernel

import "github.com/wippyai/magenta-go/sys"

const vmoRights = sys.RightDuplicate | sys.RightTransfer | sys.RightRead |
	sys.RightWrite | sys.RightMap | sys.RightGetProperty | sys.RightSetProperty

// MaxVmoSize is the largest size a VMO may be created with or resized to.
const MaxVmoSize = 1 << 40

// vmo is a sized byte object. Storage is allocated up to the highest byte
// ever written; the rest reads as zero.
type vmo struct {
	objectBase
	data []byte
	size uint64
}

func (v *vmo) state() sys.SignalsState {
	return sys.SignalsState{Satisfied: v.user, Satisfiable: sys.UserSignalAll}
}

func (v *vmo) userSettable() sys.Signals { return sys.UserSignalAll }
func (v *vmo) destroy(*Kernel)          { v.data = nil }

func (k *Kernel) lookupVmo(h sys.Handle, need sys.Rights) (*vmo, sys.Status) {
	e, ok := k.table.lookup(h)
	if !ok {
		return nil, sys.ErrBadHandle
	}
	v, ok := e.obj.(*vmo)
	if !ok {
		return nil, sys.ErrWrongType
	}
	if e.rights&need != need {
		return nil, sys.ErrAccessDenied
	}
	return v, sys.OK
}

// VmoCreate creates a zero-filled VMO of size bytes.
func (k *Kernel) VmoCreate(size uint64, opts uint32, out *sys.Handle) sys.Status {
	if opts != 0 {
		return sys.ErrInvalidArgs
	}
	if size > MaxVmoSize {
		return sys.ErrOutOfRange
	}
	k.lock()
	defer k.unlock()
	return k.createOne(&vmo{objectBase: newBase(ObjectVmo), size: size}, vmoRights, out)
}

// VmoRead copies from the VMO at offset into data, stopping at the end of
// the VMO.
func (k *Kernel) VmoRead(h sys.Handle, data []byte, offset uint64, actual *uint64) sys.Status {
	k.lock()
	defer k.unlock()

	v, status := k.lookupVmo(h, sys.RightRead)
	if status != sys.OK {
		return status
	}
	if offset > v.size {
		return sys.ErrOutOfRange
	}
	n := min(uint64(len(data)), v.size-offset)
	clear(data[:n])
	if offset < uint64(len(v.data)) {
		copy(data[:n], v.data[offset:])
	}
	if actual != nil {
		*actual = n
	}
	return sys.OK
}

// VmoWrite copies data into the VMO at offset, stopping at the end of the
// VMO.
func (k *Kernel) VmoWrite(h sys.Handle, data []byte, offset uint64, actual *uint64) sys.Status {
	k.lock()
	defer k.unlock()

	v, status := k.lookupVmo(h, sys.RightWrite)
	if status != sys.OK {
		return status
	}
	if offset > v.size {
		return sys.ErrOutOfRange
	}
	n := min(uint64(len(data)), v.size-offset)
	if end := offset + n; end > uint64(len(v.data)) {
		v.data = append(v.data, make([]byte, end-uint64(len(v.data)))...)
	}
	copy(v.data[offset:], data[:n])
	if actual != nil {
		*actual = n
	}
	return sys.OK
}

// VmoGetSize reports the VMO's size in bytes.
func (k *Kernel) VmoGetSize(h sys.Handle, size *uint64) sys.Status {
	k.lock()
	defer k.unlock()

	v, status := k.lookupVmo(h, sys.RightNone)
	if status != sys.OK {
		return status
	}
	*size = v.size
	return sys.OK
}

// VmoSetSize resizes the VMO. Shrinking discards the truncated bytes.
func (k *Kernel) VmoSetSize(h sys.Handle, size uint64) sys.Status {
	if size > MaxVmoSize {
		return sys.ErrOutOfRange
	}
	k.lock()
	defer k.unlock()

	v, status := k.lookupVmo(h, sys.RightWrite)
	if status != sys.OK {
		return status
	}
	if size < uint64(len(v.data)) {
		v.data = v.data[:size:size]
	}
	v.size = size
	return sys.OK
}
