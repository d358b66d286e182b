package qgemm

import "unsafe"

func workspaceAlignment(v variant) int {
	if v == variant4BitInt8 {
		return Q8BlkAlignment
	}
	return 1
}

// perGemmWorkspaceSize returns the scratch bytes one GEMM of the batch needs
// for activation quantization: quantized data plus scale plus block sum per
// (row, block). The fp32 variant quantizes nothing and needs none.
func perGemmWorkspaceSize(v variant, m, k, blkLen int) int {
	if v == variant4BitInt8 {
		blockCountK := BlockCountK(k, blkLen)
		return m * blockCountK * (Q8BlkSize(blkLen) + 4)
	}
	return 0
}

func perGemmWorkspaceStride(v variant, m, k, blkLen int) int {
	size := perGemmWorkspaceSize(v, m, k, blkLen)
	align := workspaceAlignment(v)
	return divRoundUp(size, align) * align
}

// WorkspaceSize returns the bytes of caller-allocated scratch GemmBatch
// needs for the given configuration, or 0 when the configuration needs none
// (including every unsupported configuration). The size includes alignment
// slack; the engine realigns the base internally.
func (e *Engine) WorkspaceSize(m, n, k, batchN, blkBitWidth, blkLen int, compute ComputeType) int {
	_ = n
	v := resolveVariant(blkBitWidth, blkLen, compute)
	stride := perGemmWorkspaceStride(v, m, k, blkLen)
	if stride == 0 {
		return 0
	}
	return batchN*stride + workspaceAlignment(v) - 1
}

// alignSlice advances the slice base to the next multiple of align,
// discarding at most align-1 leading bytes.
func alignSlice(b []byte, align int) []byte {
	if align <= 1 || len(b) == 0 {
		return b
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	pad := int((uintptr(align) - addr%uintptr(align)) % uintptr(align))
	return b[pad:]
}

// floatView reinterprets the head of an aligned byte region as float32s.
// Alignment is validated once here so downstream code never deals with raw
// pointer arithmetic.
func floatView(b []byte, count int) []float32 {
	if count == 0 {
		return nil
	}
	if uintptr(unsafe.Pointer(&b[0]))%4 != 0 {
		panic("qgemm: misaligned float32 view")
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), count)
}

func int8View(b []byte, count int) []int8 {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), count)
}

// quantAWorkspace is the per-GEMM view into the workspace arena holding the
// quantized activations, in whichever encoding the dispatch table's
// quantization entry point produces.
type quantAWorkspace struct {
	soa bool

	// struct-of-arrays encoding
	data   []int8    // m * blockCountK * blkLen
	scales []float32 // m * blockCountK
	blkSum []float32 // m * blockCountK

	// interleaved encoding: m rows of blockCountK blocks of Q8BlkSize bytes
	blob []byte

	m, blockCountK, blkLen int
}

func newQuantAWorkspace(ws []byte, m, blockCountK, blkLen int, soa bool) quantAWorkspace {
	qa := quantAWorkspace{soa: soa, m: m, blockCountK: blockCountK, blkLen: blkLen}
	if !soa {
		qa.blob = ws[:m*blockCountK*Q8BlkSize(blkLen)]
		return qa
	}
	dataLen := m * blockCountK * blkLen
	scaleLen := m * blockCountK * 4
	qa.data = int8View(ws, dataLen)
	qa.scales = floatView(ws[dataLen:], m*blockCountK)
	qa.blkSum = floatView(ws[dataLen+scaleLen:], m*blockCountK)
	return qa
}

// ldaElems returns the stride between quantized rows: elements for the
// struct-of-arrays encoding, bytes for the interleaved one.
func (qa *quantAWorkspace) ldaElems() int {
	if qa.soa {
		return qa.blockCountK * qa.blkLen
	}
	return qa.blockCountK * Q8BlkSize(qa.blkLen)
}
