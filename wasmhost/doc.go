// Package wasmhost exposes a sys.System to WebAssembly guests.
//
// The host module is named "magenta". Every function returns an s32
// status. Pointer arguments refer to the calling module's exported memory
// and the structs behind them use the kernel's little-endian layouts:
//
//	signals_state   { u32 satisfied; u32 satisfiable }          8 bytes
//	waitset_result  { u64 cookie; s32 status; u32 observed }    16 bytes
//	handle          s32                                          4 bytes
//
// A pointer range that falls outside guest memory fails the call with
// ERR_INVALID_ARGS before the kernel is reached, so no handle is created
// or consumed by a call that cannot report its results.
//
// Usage:
//
//	r := wazero.NewRuntime(ctx)
//	host := wasmhost.New(kernel.New())
//	if _, err := host.Instantiate(ctx, r); err != nil {
//	    return err
//	}
//	mod, err := r.Instantiate(ctx, guestWasm)
package wasmhost
