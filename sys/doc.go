// Package sys defines the raw kernel ABI.
//
// It holds the integer types the kernel exchanges with callers (Handle,
// Status, Signals, Rights, Time), their constants, the little-endian layouts
// of the ABI structs, and the System interface listing every kernel entry
// point used by the rest of the module.
//
// Nothing here manages lifetime. A Handle is a bare integer and closing it,
// or not, is entirely up to the caller. See the root package for owning
// wrappers.
package sys
