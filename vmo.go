package magenta

import (
	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// Vmo is a virtual memory object: a resizable run of bytes.
type Vmo struct {
	Handle
}

// CreateVmo creates a zero-filled VMO of size bytes.
func CreateVmo(s sys.System, size uint64, opts uint32) (*Vmo, error) {
	var h sys.Handle
	if err := errors.FromStatus(errors.OpVmoCreate, s.VmoCreate(size, opts, &h)); err != nil {
		return nil, err
	}
	return &Vmo{Handle{sys: s, raw: h}}, nil
}

// Read copies bytes starting at offset into data. The count is short when
// the read crosses the end of the VMO.
func (v *Vmo) Read(data []byte, offset uint64) (int, error) {
	if !v.IsValid() {
		return 0, errors.BadHandle(errors.OpVmoRead)
	}
	var n uint64
	if err := errors.FromStatus(errors.OpVmoRead, v.sys.VmoRead(v.raw, data, offset, &n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Write copies data into the VMO at offset. The count is short when the
// write crosses the end of the VMO.
func (v *Vmo) Write(data []byte, offset uint64) (int, error) {
	if !v.IsValid() {
		return 0, errors.BadHandle(errors.OpVmoWrite)
	}
	var n uint64
	if err := errors.FromStatus(errors.OpVmoWrite, v.sys.VmoWrite(v.raw, data, offset, &n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Size returns the VMO size in bytes.
func (v *Vmo) Size() (uint64, error) {
	if !v.IsValid() {
		return 0, errors.BadHandle(errors.OpVmoGetSize)
	}
	var size uint64
	if err := errors.FromStatus(errors.OpVmoGetSize, v.sys.VmoGetSize(v.raw, &size)); err != nil {
		return 0, err
	}
	return size, nil
}

// SetSize resizes the VMO.
func (v *Vmo) SetSize(size uint64) error {
	if !v.IsValid() {
		return errors.BadHandle(errors.OpVmoSetSize)
	}
	return errors.FromStatus(errors.OpVmoSetSize, v.sys.VmoSetSize(v.raw, size))
}
