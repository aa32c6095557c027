package wasmhost

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
)

// memoryModule is a guest that only exports one page of memory.
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: min 1 page
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // export "memory"
}

// importingModule imports magenta.current_time and magenta.handle_close and
// re-exports them as "now" and "close".
var importingModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	// type section: () -> i64, (i32) -> i32
	0x01, 0x0a, 0x02, 0x60, 0x00, 0x01, 0x7e, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	// import section
	0x02, 0x2f, 0x02,
	0x07, 'm', 'a', 'g', 'e', 'n', 't', 'a',
	0x0c, 'c', 'u', 'r', 'r', 'e', 'n', 't', '_', 't', 'i', 'm', 'e', 0x00, 0x00,
	0x07, 'm', 'a', 'g', 'e', 'n', 't', 'a',
	0x0c, 'h', 'a', 'n', 'd', 'l', 'e', '_', 'c', 'l', 'o', 's', 'e', 0x00, 0x01,
	// function section
	0x03, 0x03, 0x02, 0x00, 0x01,
	// export section
	0x07, 0x0f, 0x02,
	0x03, 'n', 'o', 'w', 0x00, 0x02,
	0x05, 'c', 'l', 'o', 's', 'e', 0x00, 0x03,
	// code section
	0x0a, 0x0d, 0x02,
	0x04, 0x00, 0x10, 0x00, 0x0b, // call current_time
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b, // local.get 0; call handle_close
}

type fixture struct {
	ctx     context.Context
	runtime wazero.Runtime
	mem     api.Memory
	k       *kernel.Kernel
	host    *Host
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	mod, err := r.Instantiate(ctx, memoryModule)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	k := kernel.New()
	t.Cleanup(func() { k.Close() })
	return &fixture{ctx: ctx, runtime: r, mem: mod.Memory(), k: k, host: New(k)}
}

func (f *fixture) readHandle(t *testing.T, ptr uint32) sys.Handle {
	t.Helper()
	v, ok := f.mem.ReadUint32Le(ptr)
	if !ok {
		t.Fatalf("read handle at %d", ptr)
	}
	return sys.Handle(int32(v))
}

func TestHost_ChannelRoundTrip(t *testing.T) {
	f := newFixture(t)

	if s := f.host.channelCreate(f.mem, 0, 0, 4); s != sys.OK {
		t.Fatalf("channel_create: %v", s)
	}
	h0, h1 := f.readHandle(t, 0), f.readHandle(t, 4)
	if h0 <= 0 || h1 <= 0 || h0 == h1 {
		t.Fatalf("handles %d, %d", h0, h1)
	}

	var ev sys.Handle
	f.k.EventCreate(0, &ev)
	evInfo, _ := f.k.Info(ev)

	f.mem.Write(16, []byte("hello"))
	f.mem.WriteUint32Le(64, uint32(ev))
	if s := f.host.channelWrite(f.mem, int32(h0), 0, 16, 5, 64, 1); s != sys.OK {
		t.Fatalf("channel_write: %v", s)
	}
	if _, s := f.k.Info(ev); s != sys.ErrBadHandle {
		t.Fatal("written handle still owned by the guest")
	}

	if s := f.host.channelRead(f.mem, int32(h1), 0, 128, 0, 200, 256, 0, 204); s != sys.ErrBufferTooSmall {
		t.Fatalf("undersized read = %v, want ErrBufferTooSmall", s)
	}
	nb, _ := f.mem.ReadUint32Le(200)
	nh, _ := f.mem.ReadUint32Le(204)
	if nb != 5 || nh != 1 {
		t.Fatalf("reported %d bytes, %d handles", nb, nh)
	}

	if s := f.host.channelRead(f.mem, int32(h1), 0, 128, nb, 200, 256, nh, 204); s != sys.OK {
		t.Fatalf("channel_read: %v", s)
	}
	data, _ := f.mem.Read(128, 5)
	if string(data) != "hello" {
		t.Fatalf("guest received %q", data)
	}
	got, s := f.k.Info(f.readHandle(t, 256))
	if s != sys.OK || got.Koid != evInfo.Koid {
		t.Fatalf("received handle %+v (%v), want koid %d", got, s, evInfo.Koid)
	}
}

func TestHost_BadPointers(t *testing.T) {
	f := newFixture(t)
	end := f.mem.Size()

	if s := f.host.channelCreate(f.mem, 0, 0, end-2); s != sys.ErrInvalidArgs {
		t.Fatalf("channel_create = %v, want ErrInvalidArgs", s)
	}
	if f.k.Len() != 0 {
		t.Fatal("handles created despite unwritable output")
	}

	if s := f.host.channelWrite(f.mem, 1, 0, end-1, 2, 0, 0); s != sys.ErrInvalidArgs {
		t.Fatalf("channel_write = %v, want ErrInvalidArgs", s)
	}
	if s := f.host.vmoCreate(f.mem, 16, 0, end); s != sys.ErrInvalidArgs {
		t.Fatalf("vmo_create = %v, want ErrInvalidArgs", s)
	}
	if s := f.host.handleDuplicate(nil, 1, 0, 0); s != sys.ErrInvalidArgs {
		t.Fatalf("handle_duplicate without memory = %v", s)
	}
}

func TestHost_HandleWaitOne(t *testing.T) {
	f := newFixture(t)
	var ev sys.Handle
	f.k.EventCreate(0, &ev)
	f.k.ObjectSignal(ev, 0, sys.SignalEventSignaled)

	if s := f.host.handleWaitOne(f.mem, int32(ev), uint32(sys.SignalEventSignaled), 0, 32); s != sys.OK {
		t.Fatalf("handle_wait_one: %v", s)
	}
	satisfied, _ := f.mem.ReadUint32Le(32)
	satisfiable, _ := f.mem.ReadUint32Le(36)
	if sys.Signals(satisfied)&sys.SignalEventSignaled == 0 {
		t.Fatalf("satisfied = %#x", satisfied)
	}
	if sys.Signals(satisfiable)&sys.SignalEventSignaled == 0 {
		t.Fatalf("satisfiable = %#x", satisfiable)
	}

	if s := f.host.handleWaitOne(f.mem, int32(ev), uint32(sys.UserSignal0), 0, 0); s != sys.ErrTimedOut {
		t.Fatalf("poll without state = %v, want ErrTimedOut", s)
	}
}

func TestHost_Duplicate(t *testing.T) {
	f := newFixture(t)
	var ev sys.Handle
	f.k.EventCreate(0, &ev)

	if s := f.host.handleDuplicate(f.mem, int32(ev), uint32(sys.RightRead), 8); s != sys.OK {
		t.Fatalf("handle_duplicate: %v", s)
	}
	info, s := f.k.Info(f.readHandle(t, 8))
	if s != sys.OK || info.Rights != sys.RightRead {
		t.Fatalf("duplicate %+v (%v)", info, s)
	}
	if s := f.host.handleClose(int32(f.readHandle(t, 8))); s != sys.OK {
		t.Fatalf("handle_close: %v", s)
	}
}

func TestHost_Vmo(t *testing.T) {
	f := newFixture(t)

	if s := f.host.vmoCreate(f.mem, 16, 0, 0); s != sys.OK {
		t.Fatalf("vmo_create: %v", s)
	}
	v := int32(f.readHandle(t, 0))

	f.mem.Write(100, []byte("guest"))
	if s := f.host.vmoWrite(f.mem, v, 100, 3, 5, 8); s != sys.OK {
		t.Fatalf("vmo_write: %v", s)
	}
	if n, _ := f.mem.ReadUint64Le(8); n != 5 {
		t.Fatalf("wrote %d", n)
	}

	if s := f.host.vmoRead(f.mem, v, 200, 0, 16, 8); s != sys.OK {
		t.Fatalf("vmo_read: %v", s)
	}
	data, _ := f.mem.Read(200, 16)
	if string(data[3:8]) != "guest" || data[0] != 0 {
		t.Fatalf("read back %q", data)
	}

	if s := f.host.vmoGetSize(f.mem, v, 16); s != sys.OK {
		t.Fatalf("vmo_get_size: %v", s)
	}
	if size, _ := f.mem.ReadUint64Le(16); size != 16 {
		t.Fatalf("size %d", size)
	}
}

func TestHost_WaitSetWait(t *testing.T) {
	f := newFixture(t)

	if s := f.host.waitSetCreate(f.mem, 0); s != sys.OK {
		t.Fatalf("waitset_create: %v", s)
	}
	ws := f.readHandle(t, 0)

	var ev sys.Handle
	f.k.EventCreate(0, &ev)
	f.k.WaitSetAdd(ws, ev, sys.SignalEventSignaled, 0xdeadbeef01)
	f.k.ObjectSignal(ev, 0, sys.SignalEventSignaled)

	f.mem.WriteUint32Le(8, 4)
	if s := f.host.waitSetWait(f.mem, int32(ws), 0, 8, 64, 12); s != sys.OK {
		t.Fatalf("waitset_wait: %v", s)
	}
	n, _ := f.mem.ReadUint32Le(8)
	total, _ := f.mem.ReadUint32Le(12)
	if n != 1 || total != 1 {
		t.Fatalf("n=%d total=%d", n, total)
	}
	raw, _ := f.mem.Read(64, sys.WaitSetResultSize)
	r := sys.ReadWaitSetResult(raw)
	if r.Cookie != 0xdeadbeef01 || r.Status != sys.OK || r.Observed&sys.SignalEventSignaled == 0 {
		t.Fatalf("result %+v", r)
	}
}

func TestHost_Instantiate(t *testing.T) {
	f := newFixture(t)
	mod, err := f.host.Instantiate(f.ctx, f.runtime)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	defs := mod.ExportedFunctionDefinitions()
	for _, name := range []string{
		"handle_close", "handle_duplicate", "handle_wait_one", "object_signal",
		"channel_create", "channel_read", "channel_write",
		"vmo_create", "vmo_read", "vmo_write", "vmo_get_size", "vmo_set_size",
		"waitset_create", "waitset_add", "waitset_remove", "waitset_wait",
		"current_time", "nanosleep",
	} {
		if _, ok := defs[name]; !ok {
			t.Errorf("missing export %s", name)
		}
	}

	// Host module exports cannot be called directly; go through a guest
	// that imports them.
	guest, err := f.runtime.InstantiateWithConfig(f.ctx, importingModule, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		t.Fatalf("instantiate importing guest: %v", err)
	}

	res, err := guest.ExportedFunction("now").Call(f.ctx)
	if err != nil || res[0] == 0 {
		t.Fatalf("current_time = %v, %v", res, err)
	}

	var ev sys.Handle
	if s := f.k.EventCreate(0, &ev); s != sys.OK {
		t.Fatalf("EventCreate: %v", s)
	}
	closeFn := guest.ExportedFunction("close")
	res, err = closeFn.Call(f.ctx, api.EncodeI32(int32(ev)))
	if err != nil || api.DecodeI32(res[0]) != int32(sys.OK) {
		t.Fatalf("handle_close = %v, %v", res, err)
	}
	res, err = closeFn.Call(f.ctx, api.EncodeI32(int32(ev)))
	if err != nil || api.DecodeI32(res[0]) != int32(sys.ErrBadHandle) {
		t.Fatalf("second handle_close = %v, %v", res, err)
	}
}

func TestHost_FuncsOnStack(t *testing.T) {
	f := newFixture(t)
	byName := map[string]hostFunc{}
	for _, fn := range f.host.funcs() {
		byName[fn.name] = fn
	}

	stack := make([]uint64, 1)
	byName["current_time"].fn(f.ctx, nil, stack)
	if stack[0] == 0 {
		t.Fatal("current_time left zero on the stack")
	}

	var ev sys.Handle
	if s := f.k.EventCreate(0, &ev); s != sys.OK {
		t.Fatalf("EventCreate: %v", s)
	}
	stack[0] = api.EncodeI32(int32(ev))
	byName["handle_close"].fn(f.ctx, nil, stack)
	if got := api.DecodeI32(stack[0]); got != int32(sys.OK) {
		t.Fatalf("handle_close = %d", got)
	}
	if _, s := f.k.Info(ev); s != sys.ErrBadHandle {
		t.Fatalf("Info after close = %v, want ErrBadHandle", s)
	}
}
