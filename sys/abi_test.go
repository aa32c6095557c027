package sys

import (
	"bytes"
	"testing"
)

func TestSignalsStateLayout(t *testing.T) {
	b := make([]byte, SignalsStateSize)
	PutSignalsState(b, SignalsState{Satisfied: SignalChannelReadable, Satisfiable: 0x07})

	want := []byte{0x01, 0, 0, 0, 0x07, 0, 0, 0}
	if !bytes.Equal(b, want) {
		t.Fatalf("encoded = % x, want % x", b, want)
	}
}

func TestWaitItemRoundTrip(t *testing.T) {
	in := WaitItem{Handle: 0x100001, WaitFor: SignalChannelPeerClosed, Pending: UserSignal7}
	b := make([]byte, WaitItemSize)
	PutWaitItem(b, in)
	if got := ReadWaitItem(b); got != in {
		t.Fatalf("ReadWaitItem = %+v, want %+v", got, in)
	}
}

func TestWaitSetResultLayout(t *testing.T) {
	b := make([]byte, WaitSetResultSize)
	PutWaitSetResult(b, WaitSetResult{Cookie: 0x0102030405060708, Status: ErrHandleClosed, Observed: 0})

	if b[0] != 0x08 || b[7] != 0x01 {
		t.Fatalf("cookie not little-endian: % x", b[:8])
	}
	got := ReadWaitSetResult(b)
	if got.Status != ErrHandleClosed {
		t.Fatalf("Status = %v, want %v", got.Status, ErrHandleClosed)
	}
}

func TestHandlesLayout(t *testing.T) {
	in := []Handle{1, 0x7fffffff, HandleInvalid}
	b := make([]byte, len(in)*HandleSize)
	PutHandles(b, in)
	got := ReadHandles(b, len(in))
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("handle %d = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{OK, "NO_ERROR"},
		{ErrBufferTooSmall, "ERR_BUFFER_TOO_SMALL"},
		{ErrRemoteClosed, "ERR_REMOTE_CLOSED"},
		{Status(7), "NO_ERROR"},
		{Status(-999), "ERR_UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
