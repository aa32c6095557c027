package magenta

import (
	"testing"
	"time"

	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

func TestHandle_CloseOnce(t *testing.T) {
	k, cc := newTestKernel(t)
	h := mustEvents(t, k, 1)[0]
	raw := h.Raw()

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if cc.of(raw) != 1 {
		t.Fatalf("closed %d times, want 1", cc.of(raw))
	}
	if h.IsValid() {
		t.Fatal("closed handle still valid")
	}
}

func TestHandle_IntoRaw(t *testing.T) {
	k, cc := newTestKernel(t)
	h := mustEvents(t, k, 1)[0]

	raw := h.IntoRaw()
	if raw == sys.HandleInvalid {
		t.Fatal("IntoRaw returned invalid value")
	}
	h.Close()
	if cc.count() != 0 {
		t.Fatal("Close after IntoRaw reached the kernel")
	}

	back := NewHandle(k, raw)
	back.Close()
	if cc.of(raw) != 1 {
		t.Fatalf("re-wrapped handle closed %d times", cc.of(raw))
	}
}

func TestHandle_InvalidOperations(t *testing.T) {
	k, _ := newTestKernel(t)
	h := mustEvents(t, k, 1)[0]
	h.Close()

	if _, err := h.Duplicate(sys.RightSameRights); !errors.Is(err, errors.ErrBadHandle) {
		t.Errorf("Duplicate = %v, want bad handle", err)
	}
	if _, err := h.Wait(sys.SignalEventSignaled, 0); !errors.Is(err, errors.ErrBadHandle) {
		t.Errorf("Wait = %v, want bad handle", err)
	}
	if err := h.Signal(0, sys.UserSignal0); !errors.Is(err, errors.ErrBadHandle) {
		t.Errorf("Signal = %v, want bad handle", err)
	}

	var nilHandle *Handle
	if nilHandle.IsValid() || nilHandle.Raw() != sys.HandleInvalid {
		t.Error("nil handle should be invalid")
	}
	if err := nilHandle.Close(); err != nil {
		t.Error("closing nil handle should be a no-op")
	}
}

func TestHandle_DuplicateReducedRights(t *testing.T) {
	k, _ := newTestKernel(t)
	vmo, err := CreateVmo(k, 16, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer vmo.Close()

	ro, err := DuplicateAs(vmo, sys.RightRead|sys.RightDuplicate)
	if err != nil {
		t.Fatalf("DuplicateAs: %v", err)
	}
	defer ro.Close()

	if _, err := vmo.Write([]byte("ok"), 0); err != nil {
		t.Fatalf("original Write: %v", err)
	}
	_, err = ro.Write([]byte("no"), 0)
	if !errors.Is(err, errors.ErrAccessDenied) {
		t.Fatalf("reduced Write = %v, want access denied", err)
	}
	if errors.StatusOf(err) != sys.ErrAccessDenied {
		t.Errorf("StatusOf = %v", errors.StatusOf(err))
	}

	buf := make([]byte, 2)
	if _, err := ro.Read(buf, 0); err != nil || string(buf) != "ok" {
		t.Fatalf("reduced Read = %q, %v", buf, err)
	}

	if _, err := ro.Duplicate(sys.RightWrite); !errors.Is(err, errors.ErrAccessDenied) {
		t.Fatalf("widening Duplicate = %v, want access denied", err)
	}
}

func TestHandle_DuplicateSameObject(t *testing.T) {
	k, _ := newTestKernel(t)
	ev := mustEvent(t, k)
	defer ev.Close()

	dup, err := ev.Duplicate(sys.RightSameRights)
	if err != nil {
		t.Fatal(err)
	}
	defer dup.Close()
	if dup.Raw() == ev.Raw() {
		t.Fatal("duplicate aliases the original raw value")
	}

	if err := ev.Signal(0, sys.SignalEventSignaled); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if _, err := dup.Wait(sys.SignalEventSignaled, 0); err != nil {
		t.Fatalf("duplicate does not observe signal: %v", err)
	}
}

func TestAs(t *testing.T) {
	k, _ := newTestKernel(t)
	a, b := mustChannel(t, k)
	defer b.Close()

	raw := a.Raw()
	h := a.IntoHandle()
	if a.IsValid() {
		t.Fatal("IntoHandle left source valid")
	}

	ch := As[Channel](h)
	if h.IsValid() {
		t.Fatal("As left source valid")
	}
	if ch.Raw() != raw {
		t.Fatalf("As changed raw value: %d != %d", ch.Raw(), raw)
	}
	if err := ch.Write([]byte("typed"), nil, 0); err != nil {
		t.Fatalf("Write through converted wrapper: %v", err)
	}
	ch.Close()

	defer func() {
		if recover() == nil {
			t.Error("As(nil) should panic")
		}
	}()
	As[Vmo](nil)
}

func TestAs_WrongType(t *testing.T) {
	k, _ := newTestKernel(t)
	ev := mustEvent(t, k)
	v := As[Vmo](ev.IntoHandle())
	defer v.Close()

	if _, err := v.Size(); !errors.Is(err, errors.ErrWrongType) {
		t.Fatalf("Size on event = %v, want wrong type", err)
	}
}

func TestHandleRef(t *testing.T) {
	k, cc := newTestKernel(t)
	ev := mustEvent(t, k)
	ref := ev.Ref()

	dup, err := ref.Duplicate(sys.RightSameRights)
	if err != nil {
		t.Fatal(err)
	}
	dup.Close()
	if cc.of(ref.Raw()) != 0 {
		t.Fatal("borrowed handle closed")
	}
	ev.Close()

	var zero HandleRef
	if _, err := zero.Wait(sys.SignalEventSignaled, 0); !errors.Is(err, errors.ErrBadHandle) {
		t.Fatalf("zero ref Wait = %v", err)
	}
}

func TestHandle_WaitTimeout(t *testing.T) {
	k, _ := newTestKernel(t)
	ev := mustEvent(t, k)
	defer ev.Close()

	_, err := ev.Wait(sys.SignalEventSignaled, Timeout(5*time.Millisecond))
	if !errors.Is(err, errors.ErrTimedOut) {
		t.Fatalf("Wait = %v, want timed out", err)
	}
}

func TestHandle_WaitWakesFromGoroutine(t *testing.T) {
	k, _ := newTestKernel(t)
	a, b := mustChannel(t, k)
	defer a.Close()
	defer b.Close()

	go func() {
		time.Sleep(5 * time.Millisecond)
		mustWrite(t, a, []byte("ping"), nil)
	}()

	st, err := b.Wait(sys.SignalChannelReadable, sys.TimeInfinite)
	if err != nil {
		t.Fatal(err)
	}
	if st.Satisfied&sys.SignalChannelReadable == 0 {
		t.Fatalf("satisfied = %#x", st.Satisfied)
	}
}

func TestHandle_WaitUnsatisfiable(t *testing.T) {
	k, _ := newTestKernel(t)
	a, b := mustChannel(t, k)
	defer b.Close()
	a.Close()

	st, err := b.Wait(sys.SignalChannelReadable, sys.TimeInfinite)
	if !errors.Is(err, errors.ErrBadState) {
		t.Fatalf("Wait = %v, want bad state", err)
	}
	if st.Satisfied&sys.SignalChannelPeerClosed == 0 {
		t.Fatalf("snapshot missing peer closed: %#x", st.Satisfied)
	}
}

func TestWaitMany(t *testing.T) {
	k, _ := newTestKernel(t)
	evs := mustEvents(t, k, 3)
	for _, ev := range evs {
		defer ev.Close()
	}
	if err := evs[2].Signal(0, sys.SignalEventSignaled); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	items := make([]sys.WaitItem, len(evs))
	for i, ev := range evs {
		items[i] = sys.WaitItem{Handle: ev.Raw(), WaitFor: sys.SignalEventSignaled}
	}
	if err := WaitMany(k, items, 0); err != nil {
		t.Fatal(err)
	}
	if items[2].Pending&sys.SignalEventSignaled == 0 || items[0].Pending != 0 {
		t.Fatalf("pending = %#x %#x", items[0].Pending, items[2].Pending)
	}
}

func TestPeered_SignalPeer(t *testing.T) {
	k, _ := newTestKernel(t)
	a, b, err := CreateEventPair(k, 0)
	if err != nil {
		t.Fatalf("CreateEventPair: %v", err)
	}
	defer a.Close()

	var p Peered = a
	if err := p.SignalPeer(0, sys.SignalEPairSignaled); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Wait(sys.SignalEPairSignaled, 0); err != nil {
		t.Fatalf("peer not signaled: %v", err)
	}

	b.Close()
	if err := p.SignalPeer(0, sys.UserSignal0); !errors.Is(err, errors.ErrPeerClosed) {
		t.Fatalf("SignalPeer after close = %v, want peer closed", err)
	}
	if _, err := a.Wait(sys.SignalEPairClosed, 0); err != nil {
		t.Fatalf("closed signal not asserted: %v", err)
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default should return one shared system")
	}
	ev, err := CreateEvent(Default(), 0)
	if err != nil {
		t.Fatal(err)
	}
	ev.Close()
}

func TestCreateEventPair_ErrorOp(t *testing.T) {
	k, _ := newTestKernel(t)
	_, _, err := CreateEventPair(k, 1)
	var e *errors.Error
	if !errors.As(err, &e) {
		t.Fatalf("CreateEventPair = %v, want *errors.Error", err)
	}
	if e.Op != errors.OpEventPairCreate {
		t.Fatalf("Op = %v, want %v", e.Op, errors.OpEventPairCreate)
	}
	if !errors.Is(err, errors.ErrInvalidArgs) {
		t.Fatalf("CreateEventPair = %v, want invalid args", err)
	}
}
