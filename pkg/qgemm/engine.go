// Package qgemm implements a block-quantized sub-byte GEMM engine: 4-bit
// weights in per-block scale/zero-point encoding multiplied against float32
// activations, with float32 or int8 accumulation, packed weight layout,
// caller-owned workspace, and batch scheduling across a worker pool.
//
// The engine holds no kernel code of its own; it drives a Dispatch table of
// hardware entry points (see pkg/kernels for the default set). Capability
// queries (IsAvailable, WorkspaceSize, PackedQuantBSize) report zero/false
// for unsupported configurations and never fail.
package qgemm

import "errors"

var (
	// ErrUnsupported is returned when an operation is invoked on a
	// configuration for which IsAvailable reports false.
	ErrUnsupported = errors.New("qgemm: unsupported configuration")
	// ErrWorkspaceTooSmall is returned when the caller-supplied workspace is
	// shorter than WorkspaceSize requires.
	ErrWorkspaceTooSmall = errors.New("qgemm: workspace too small")
)

// Engine is a quantized GEMM engine bound to one dispatch table. It is
// stateless across calls and safe for concurrent use.
type Engine struct {
	d *Dispatch
}

// New creates an engine over the given capability record. A nil table is
// allowed; every configuration is then unavailable.
func New(d *Dispatch) *Engine {
	if d == nil {
		d = &Dispatch{}
	}
	return &Engine{d: d}
}

// IsAvailable reports whether the configuration resolves to a supported
// variant and the dispatch table carries the entry points that variant
// needs. Callers must check availability before PackQuantB or GemmBatch.
func (e *Engine) IsAvailable(blkBitWidth, blkLen int, compute ComputeType) bool {
	switch resolveVariant(blkBitWidth, blkLen, compute) {
	case variant4BitFp32:
		return e.d.Q4GemmM1Fp32 != nil && e.d.Q4DequantBFp32 != nil && e.d.GemmFloat != nil
	case variant4BitInt8:
		return e.int8SoA() || e.int8Interleaved()
	default:
		return false
	}
}

// int8SoA reports whether the table carries the row-batched int8 kernel
// pairing (struct-of-arrays activation encoding, block-sum correction).
func (e *Engine) int8SoA() bool {
	return e.d.Q4GemmInt8 != nil && e.d.QuantizeARowInt8SoA != nil && e.d.GemmFloat != nil
}

// int8Interleaved reports whether the table carries the single-row kernel
// pairing (interleaved activation encoding, zero points applied in-kernel).
func (e *Engine) int8Interleaved() bool {
	return e.d.Q4GemmM1Int8 != nil && e.d.QuantizeARowInt8 != nil
}
