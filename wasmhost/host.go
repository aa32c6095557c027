package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/magenta-go/sys"
)

// ModuleName is the import module name guests link against.
const ModuleName = "magenta"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Host binds a kernel to the magenta host module.
type Host struct {
	sys sys.System
}

// New creates a host for s.
func New(s sys.System) *Host {
	return &Host{sys: s}
}

// hostFunc describes one exported host function.
type hostFunc struct {
	fn      api.GoModuleFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// Instantiate registers the magenta module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range h.funcs() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	Logger().Debug("host module instantiated", zap.String("module", ModuleName))
	return mod, nil
}

func (h *Host) funcs() []hostFunc {
	return []hostFunc{
		{
			name:    "handle_close",
			params:  []api.ValueType{i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.handleClose(api.DecodeI32(stack[0])))
			},
		},
		{
			name:    "handle_duplicate",
			params:  []api.ValueType{i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.handleDuplicate(mod.Memory(),
					api.DecodeI32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
			},
		},
		{
			name:    "handle_wait_one",
			params:  []api.ValueType{i32, i32, i64, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.handleWaitOne(mod.Memory(),
					api.DecodeI32(stack[0]), api.DecodeU32(stack[1]), stack[2], api.DecodeU32(stack[3])))
			},
		},
		{
			name:    "object_signal",
			params:  []api.ValueType{i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.objectSignal(
					api.DecodeI32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
			},
		},
		{
			name:    "channel_create",
			params:  []api.ValueType{i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.channelCreate(mod.Memory(),
					api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
			},
		},
		{
			name:    "channel_read",
			params:  []api.ValueType{i32, i32, i32, i32, i32, i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.channelRead(mod.Memory(), api.DecodeI32(stack[0]), api.DecodeU32(stack[1]),
					api.DecodeU32(stack[2]), api.DecodeU32(stack[3]), api.DecodeU32(stack[4]),
					api.DecodeU32(stack[5]), api.DecodeU32(stack[6]), api.DecodeU32(stack[7])))
			},
		},
		{
			name:    "channel_write",
			params:  []api.ValueType{i32, i32, i32, i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.channelWrite(mod.Memory(), api.DecodeI32(stack[0]), api.DecodeU32(stack[1]),
					api.DecodeU32(stack[2]), api.DecodeU32(stack[3]),
					api.DecodeU32(stack[4]), api.DecodeU32(stack[5])))
			},
		},
		{
			name:    "vmo_create",
			params:  []api.ValueType{i64, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.vmoCreate(mod.Memory(), stack[0], api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
			},
		},
		{
			name:    "vmo_read",
			params:  []api.ValueType{i32, i32, i64, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.vmoRead(mod.Memory(), api.DecodeI32(stack[0]), api.DecodeU32(stack[1]),
					stack[2], api.DecodeU32(stack[3]), api.DecodeU32(stack[4])))
			},
		},
		{
			name:    "vmo_write",
			params:  []api.ValueType{i32, i32, i64, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.vmoWrite(mod.Memory(), api.DecodeI32(stack[0]), api.DecodeU32(stack[1]),
					stack[2], api.DecodeU32(stack[3]), api.DecodeU32(stack[4])))
			},
		},
		{
			name:    "vmo_get_size",
			params:  []api.ValueType{i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.vmoGetSize(mod.Memory(), api.DecodeI32(stack[0]), api.DecodeU32(stack[1])))
			},
		},
		{
			name:    "vmo_set_size",
			params:  []api.ValueType{i32, i64},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.sys.VmoSetSize(sys.Handle(api.DecodeI32(stack[0])), stack[1]))
			},
		},
		{
			name:    "waitset_create",
			params:  []api.ValueType{i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.waitSetCreate(mod.Memory(), api.DecodeU32(stack[0])))
			},
		},
		{
			name:    "waitset_add",
			params:  []api.ValueType{i32, i32, i32, i64},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.sys.WaitSetAdd(sys.Handle(api.DecodeI32(stack[0])),
					sys.Handle(api.DecodeI32(stack[1])), sys.Signals(api.DecodeU32(stack[2])), stack[3]))
			},
		},
		{
			name:    "waitset_remove",
			params:  []api.ValueType{i32, i64},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.sys.WaitSetRemove(sys.Handle(api.DecodeI32(stack[0])), stack[1]))
			},
		},
		{
			name:    "waitset_wait",
			params:  []api.ValueType{i32, i64, i32, i32, i32},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				stack[0] = status(h.waitSetWait(mod.Memory(), api.DecodeI32(stack[0]), stack[1],
					api.DecodeU32(stack[2]), api.DecodeU32(stack[3]), api.DecodeU32(stack[4])))
			},
		},
		{
			name:    "current_time",
			results: []api.ValueType{i64},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = uint64(h.sys.TimeGet(sys.ClockMonotonic))
			},
		},
		{
			name:    "nanosleep",
			params:  []api.ValueType{i64},
			results: []api.ValueType{i32},
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = status(h.sys.Nanosleep(sys.Time(stack[0])))
			},
		},
	}
}

func status(s sys.Status) uint64 {
	return api.EncodeI32(int32(s))
}

// fits reports whether [ptr, ptr+n) lies inside mem.
func fits(mem api.Memory, ptr, n uint32) bool {
	return mem != nil && uint64(ptr)+uint64(n) <= uint64(mem.Size())
}

func badPointer(fn string, ptr, n uint32) sys.Status {
	Logger().Debug("guest pointer out of range",
		zap.String("func", fn),
		zap.Uint32("ptr", ptr),
		zap.Uint32("len", n))
	return sys.ErrInvalidArgs
}

func (h *Host) handleClose(raw int32) sys.Status {
	return h.sys.HandleClose(sys.Handle(raw))
}

func (h *Host) handleDuplicate(mem api.Memory, raw int32, rights, outPtr uint32) sys.Status {
	if !fits(mem, outPtr, sys.HandleSize) {
		return badPointer("handle_duplicate", outPtr, sys.HandleSize)
	}
	var out sys.Handle
	if s := h.sys.HandleDuplicate(sys.Handle(raw), sys.Rights(rights), &out); s != sys.OK {
		return s
	}
	mem.WriteUint32Le(outPtr, uint32(out))
	return sys.OK
}

func (h *Host) handleWaitOne(mem api.Memory, raw int32, signals uint32, timeout uint64, statePtr uint32) sys.Status {
	var buf []byte
	if statePtr != 0 {
		if !fits(mem, statePtr, sys.SignalsStateSize) {
			return badPointer("handle_wait_one", statePtr, sys.SignalsStateSize)
		}
		buf, _ = mem.Read(statePtr, sys.SignalsStateSize)
	}
	var st sys.SignalsState
	s := h.sys.HandleWaitOne(sys.Handle(raw), sys.Signals(signals), sys.Time(timeout), &st)
	if buf != nil {
		sys.PutSignalsState(buf, st)
	}
	return s
}

func (h *Host) objectSignal(raw int32, clear, set uint32) sys.Status {
	return h.sys.ObjectSignal(sys.Handle(raw), sys.Signals(clear), sys.Signals(set))
}

func (h *Host) channelCreate(mem api.Memory, opts, out0Ptr, out1Ptr uint32) sys.Status {
	if !fits(mem, out0Ptr, sys.HandleSize) {
		return badPointer("channel_create", out0Ptr, sys.HandleSize)
	}
	if !fits(mem, out1Ptr, sys.HandleSize) {
		return badPointer("channel_create", out1Ptr, sys.HandleSize)
	}
	var h0, h1 sys.Handle
	if s := h.sys.ChannelCreate(opts, &h0, &h1); s != sys.OK {
		return s
	}
	mem.WriteUint32Le(out0Ptr, uint32(h0))
	mem.WriteUint32Le(out1Ptr, uint32(h1))
	return sys.OK
}

func (h *Host) channelRead(mem api.Memory, raw int32, opts, bytesPtr, numBytes, actualBytesPtr, handlesPtr, numHandles, actualHandlesPtr uint32) sys.Status {
	if !fits(mem, bytesPtr, numBytes) {
		return badPointer("channel_read", bytesPtr, numBytes)
	}
	if uint64(numHandles)*sys.HandleSize > uint64(^uint32(0)) || !fits(mem, handlesPtr, numHandles*sys.HandleSize) {
		return badPointer("channel_read", handlesPtr, numHandles)
	}
	if actualBytesPtr != 0 && !fits(mem, actualBytesPtr, 4) {
		return badPointer("channel_read", actualBytesPtr, 4)
	}
	if actualHandlesPtr != 0 && !fits(mem, actualHandlesPtr, 4) {
		return badPointer("channel_read", actualHandlesPtr, 4)
	}

	data, _ := mem.Read(bytesPtr, numBytes)
	handles := make([]sys.Handle, numHandles)
	var nb, nh uint32
	s := h.sys.ChannelRead(sys.Handle(raw), opts, data, &nb, handles, &nh)

	if s == sys.OK || s == sys.ErrBufferTooSmall {
		if actualBytesPtr != 0 {
			mem.WriteUint32Le(actualBytesPtr, nb)
		}
		if actualHandlesPtr != 0 {
			mem.WriteUint32Le(actualHandlesPtr, nh)
		}
	}
	if s == sys.OK && nh > 0 {
		out, _ := mem.Read(handlesPtr, nh*sys.HandleSize)
		sys.PutHandles(out, handles[:nh])
	}
	return s
}

func (h *Host) channelWrite(mem api.Memory, raw int32, opts, bytesPtr, numBytes, handlesPtr, numHandles uint32) sys.Status {
	if !fits(mem, bytesPtr, numBytes) {
		return badPointer("channel_write", bytesPtr, numBytes)
	}
	if uint64(numHandles)*sys.HandleSize > uint64(^uint32(0)) {
		return sys.ErrOutOfRange
	}
	if !fits(mem, handlesPtr, numHandles*sys.HandleSize) {
		return badPointer("channel_write", handlesPtr, numHandles)
	}
	data, _ := mem.Read(bytesPtr, numBytes)
	hb, _ := mem.Read(handlesPtr, numHandles*sys.HandleSize)
	return h.sys.ChannelWrite(sys.Handle(raw), opts, data, sys.ReadHandles(hb, int(numHandles)))
}

func (h *Host) vmoCreate(mem api.Memory, size uint64, opts, outPtr uint32) sys.Status {
	if !fits(mem, outPtr, sys.HandleSize) {
		return badPointer("vmo_create", outPtr, sys.HandleSize)
	}
	var out sys.Handle
	if s := h.sys.VmoCreate(size, opts, &out); s != sys.OK {
		return s
	}
	mem.WriteUint32Le(outPtr, uint32(out))
	return sys.OK
}

func (h *Host) vmoRead(mem api.Memory, raw int32, dataPtr uint32, offset uint64, length, actualPtr uint32) sys.Status {
	if !fits(mem, dataPtr, length) {
		return badPointer("vmo_read", dataPtr, length)
	}
	if !fits(mem, actualPtr, 8) {
		return badPointer("vmo_read", actualPtr, 8)
	}
	data, _ := mem.Read(dataPtr, length)
	var n uint64
	s := h.sys.VmoRead(sys.Handle(raw), data, offset, &n)
	if s == sys.OK {
		mem.WriteUint64Le(actualPtr, n)
	}
	return s
}

func (h *Host) vmoWrite(mem api.Memory, raw int32, dataPtr uint32, offset uint64, length, actualPtr uint32) sys.Status {
	if !fits(mem, dataPtr, length) {
		return badPointer("vmo_write", dataPtr, length)
	}
	if !fits(mem, actualPtr, 8) {
		return badPointer("vmo_write", actualPtr, 8)
	}
	data, _ := mem.Read(dataPtr, length)
	var n uint64
	s := h.sys.VmoWrite(sys.Handle(raw), data, offset, &n)
	if s == sys.OK {
		mem.WriteUint64Le(actualPtr, n)
	}
	return s
}

func (h *Host) vmoGetSize(mem api.Memory, raw int32, sizePtr uint32) sys.Status {
	if !fits(mem, sizePtr, 8) {
		return badPointer("vmo_get_size", sizePtr, 8)
	}
	var size uint64
	s := h.sys.VmoGetSize(sys.Handle(raw), &size)
	if s == sys.OK {
		mem.WriteUint64Le(sizePtr, size)
	}
	return s
}

func (h *Host) waitSetCreate(mem api.Memory, outPtr uint32) sys.Status {
	if !fits(mem, outPtr, sys.HandleSize) {
		return badPointer("waitset_create", outPtr, sys.HandleSize)
	}
	var out sys.Handle
	if s := h.sys.WaitSetCreate(&out); s != sys.OK {
		return s
	}
	mem.WriteUint32Le(outPtr, uint32(out))
	return sys.OK
}

// waitSetWait reads the result capacity from *numResultsPtr and writes back
// the number of results stored.
func (h *Host) waitSetWait(mem api.Memory, ws int32, timeout uint64, numResultsPtr, resultsPtr, maxResultsPtr uint32) sys.Status {
	if !fits(mem, numResultsPtr, 4) {
		return badPointer("waitset_wait", numResultsPtr, 4)
	}
	capacity, _ := mem.ReadUint32Le(numResultsPtr)
	if uint64(capacity)*sys.WaitSetResultSize > uint64(^uint32(0)) ||
		!fits(mem, resultsPtr, capacity*sys.WaitSetResultSize) {
		return badPointer("waitset_wait", resultsPtr, capacity)
	}
	if maxResultsPtr != 0 && !fits(mem, maxResultsPtr, 4) {
		return badPointer("waitset_wait", maxResultsPtr, 4)
	}

	results := make([]sys.WaitSetResult, capacity)
	var n, total uint32
	s := h.sys.WaitSetWait(sys.Handle(ws), sys.Time(timeout), results, &n, &total)

	mem.WriteUint32Le(numResultsPtr, n)
	if maxResultsPtr != 0 {
		mem.WriteUint32Le(maxResultsPtr, total)
	}
	if s != sys.OK {
		return s
	}
	out, _ := mem.Read(resultsPtr, n*sys.WaitSetResultSize)
	for i := range n {
		sys.PutWaitSetResult(out[i*sys.WaitSetResultSize:], results[i])
	}
	return sys.OK
}
