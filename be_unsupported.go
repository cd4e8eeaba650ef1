//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// The interrupt beeper hands native float32 samples to a FormatFloat32LE
// player without conversion.
var _ = "axislave requires a little-endian architecture" + 1
