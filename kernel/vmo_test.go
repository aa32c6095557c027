package kernel

import (
	"testing"

	"github.com/wippyai/magenta-go/sys"
)

func mustVmo(t *testing.T, k *Kernel, size uint64) sys.Handle {
	t.Helper()
	var h sys.Handle
	if s := k.VmoCreate(size, 0, &h); s != sys.OK {
		t.Fatalf("VmoCreate: %v", s)
	}
	return h
}

func TestVmo_ReadWrite(t *testing.T) {
	k := New()
	v := mustVmo(t, k, 16)

	var n uint64
	if s := k.VmoWrite(v, []byte("abcd"), 4, &n); s != sys.OK || n != 4 {
		t.Fatalf("VmoWrite = %v, n=%d", s, n)
	}

	buf := make([]byte, 10)
	if s := k.VmoRead(v, buf, 2, &n); s != sys.OK || n != 10 {
		t.Fatalf("VmoRead = %v, n=%d", s, n)
	}
	want := []byte{0, 0, 'a', 'b', 'c', 'd', 0, 0, 0, 0}
	if string(buf) != string(want) {
		t.Fatalf("read %v, want %v", buf, want)
	}
}

func TestVmo_Bounds(t *testing.T) {
	k := New()
	v := mustVmo(t, k, 8)

	var n uint64
	if s := k.VmoWrite(v, []byte("0123456789"), 4, &n); s != sys.OK || n != 4 {
		t.Fatalf("VmoWrite past end = %v, n=%d; want OK, 4", s, n)
	}
	if s := k.VmoRead(v, make([]byte, 4), 9, &n); s != sys.ErrOutOfRange {
		t.Fatalf("VmoRead past end = %v, want ErrOutOfRange", s)
	}
	if s := k.VmoCreate(MaxVmoSize+1, 0, &v); s != sys.ErrOutOfRange {
		t.Fatalf("VmoCreate too large = %v", s)
	}
}

func TestVmo_LargeSizeIsLazy(t *testing.T) {
	k := New()
	v := mustVmo(t, k, 16*1024*1024)

	var size uint64
	if s := k.VmoGetSize(v, &size); s != sys.OK || size != 16*1024*1024 {
		t.Fatalf("VmoGetSize = %v, %d", s, size)
	}
	buf := make([]byte, 4)
	var n uint64
	mustOK(t, "VmoRead", k.VmoRead(v, buf, size-4, &n))
	if n != 4 || string(buf) != "\x00\x00\x00\x00" {
		t.Fatalf("tail read %v n=%d", buf, n)
	}
}

func TestVmo_SetSize(t *testing.T) {
	k := New()
	v := mustVmo(t, k, 8)
	var n uint64
	mustOK(t, "VmoWrite", k.VmoWrite(v, []byte("abcdefgh"), 0, &n))

	if s := k.VmoSetSize(v, 4); s != sys.OK {
		t.Fatalf("VmoSetSize: %v", s)
	}
	mustOK(t, "VmoSetSize", k.VmoSetSize(v, 8))

	buf := make([]byte, 8)
	mustOK(t, "VmoRead", k.VmoRead(v, buf, 0, &n))
	if string(buf) != "abcd\x00\x00\x00\x00" {
		t.Fatalf("after shrink and grow read %q", buf)
	}
}

func TestVmo_Rights(t *testing.T) {
	k := New()
	v := mustVmo(t, k, 8)

	var ro sys.Handle
	mustOK(t, "HandleDuplicate", k.HandleDuplicate(v, sys.RightRead|sys.RightDuplicate, &ro))

	var n uint64
	if s := k.VmoWrite(ro, []byte("x"), 0, &n); s != sys.ErrAccessDenied {
		t.Fatalf("VmoWrite read-only = %v, want ErrAccessDenied", s)
	}
	if s := k.VmoRead(ro, make([]byte, 1), 0, &n); s != sys.OK {
		t.Fatalf("VmoRead read-only = %v", s)
	}
	e := mustEvent(t, k)
	if s := k.VmoRead(e, make([]byte, 1), 0, &n); s != sys.ErrWrongType {
		t.Fatalf("VmoRead on event = %v", s)
	}
}
