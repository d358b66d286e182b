package qgemm

import "github.com/samcharles93/qgemm/pkg/parallel"

// Dispatch is the hardware capability record: the set of kernel entry points
// a platform layer supplies to the engine. It is resolved once at startup
// (see pkg/kernels.Detect) and injected into New. Every entry is
// independently optional; the engine reports a variant unavailable when the
// entries that variant needs are missing.
//
// Buffer layout contracts shared by all entries:
//
//   - Packed weight payload: per column, per block, BlkLen/2 bytes; byte j
//     holds element j in its low nibble and element j+BlkLen/2 in its high
//     nibble, values offset-binary around 8.
//   - Weight scales: one float32 per (column, block), column-major.
//   - Zero points: optional, 4-bit, two per byte, one run of
//     ceil(blockCountK/2) bytes per column.
//   - Block sums: blockCountK x N row-major float32, holding
//     -scale x (zeroPoint - 8) per (column, block).
type Dispatch struct {
	// Q4PackSize returns the bytes needed for the packed representation of
	// an N x K 4-bit weight matrix, including the trailing block-sum region
	// when the compute type requires one.
	Q4PackSize func(n, k, blkLen int, compute ComputeType) int

	// Q4Pack copies a raw quantized weight buffer into the packed layout.
	// Scales and zero points are not consulted and no block sums are
	// produced.
	Q4Pack func(n, k, blkLen int, compute ComputeType, quantB, packed []byte, pool *parallel.Pool)

	// Q4PackWithBlkSum packs the payload and additionally computes the
	// per-(column, block) sums into blkSum. zeroPoints may be nil for
	// symmetric quantization.
	Q4PackWithBlkSum func(n, k, blkLen int, compute ComputeType, quantB, packed []byte, scales []float32, zeroPoints []byte, blkSum []float32, pool *parallel.Pool)

	// Q4GemmM1Fp32 computes one output row: c[j] = dot(a, dequant(column j))
	// for countN columns, adding bias when non-nil.
	Q4GemmM1Fp32 func(blkLen int, a []float32, quantB []byte, scales []float32, zeroPoints []byte, c []float32, countN, countK, blockCountK int, bias []float32)

	// Q4DequantBFp32 dequantizes countN packed columns into dst as a dense
	// countK x countN row-major tile (row stride countN).
	Q4DequantBFp32 func(blkLen int, dst []float32, quantB []byte, scales []float32, zeroPoints []byte, countN, countK, blockCountK int)

	// Q4GemmM1Int8 computes one output row from an interleaved quantized
	// activation row (scale embedded per block), applying zero points
	// directly. Writes c, does not accumulate.
	Q4GemmM1Int8 func(blkLen int, quantA, quantB []byte, scales []float32, zeroPoints []byte, c []float32, countN, countK, blockCountK int, bias []float32)

	// Q4GemmInt8 is the row-batched int8 kernel over struct-of-arrays
	// quantized activations. It accumulates onto c, whose tile must already
	// hold the block-sum correction term, and adds bias when non-nil.
	// lda is in activation elements, ldc in output elements.
	Q4GemmInt8 func(blkLen int, quantA []int8, quantAScale []float32, quantB []byte, scalesB []float32, c []float32, countM, countN, countK, blockCountK int, bias []float32, lda, ldc int)

	// QuantizeARowInt8 quantizes one activation row into interleaved blocks
	// (scale followed by BlkLen int8 values per block).
	QuantizeARowInt8 func(blkLen int, a []float32, countK int, quantA []byte)

	// QuantizeARowInt8SoA quantizes one activation row into separate data,
	// scale, and block-sum arrays (block sum = scale x sum of quantized
	// values).
	QuantizeARowInt8SoA func(blkLen int, a []float32, countK int, quantA []int8, scales, blkSum []float32)

	// GemmFloat is the dense float32 kernel used for the fp32 path's
	// dequantized tiles and for the int8 path's block-sum correction
	// product: C = A*B, accumulating unless zeroMode is set.
	GemmFloat func(a []float32, lda int, b []float32, ldb int, c []float32, ldc int, countM, countN, countK int, zeroMode bool)
}
