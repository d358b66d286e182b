package kernels

import "github.com/samcharles93/qgemm/pkg/qgemm"

// Detect builds the dispatch table for the current CPU. Every entry is
// populated; the SIMD paths select themselves inside the kernels, so the
// table shape is the same on every architecture.
func Detect() *qgemm.Dispatch {
	return &qgemm.Dispatch{
		Q4PackSize:       q4PackSize,
		Q4Pack:           q4Pack,
		Q4PackWithBlkSum: q4PackWithBlkSum,

		Q4GemmM1Fp32:   q4GemmM1Fp32,
		Q4DequantBFp32: q4DequantBFp32,

		Q4GemmM1Int8:        q4GemmM1Int8,
		Q4GemmInt8:          q4GemmInt8,
		QuantizeARowInt8:    quantizeARowInt8,
		QuantizeARowInt8SoA: quantizeARowInt8SoA,

		GemmFloat: gemmFloat,
	}
}

// HasAVX2 reports whether the SIMD kernel paths are active.
func HasAVX2() bool {
	return hasAVX2
}
