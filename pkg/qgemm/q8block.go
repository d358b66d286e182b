package qgemm

import (
	"encoding/binary"
	"math"
)

// An interleaved int8 quantization block is a float32 scale followed by
// BlkLen quantized values. The alternative struct-of-arrays encoding keeps
// quantized data, scales, and block sums in separate parallel regions; which
// encoding a workspace uses must match the activation quantization entry
// point the dispatch table advertises.

// Q8BlkAlignment is the base alignment required of workspace memory holding
// quantized activation blocks.
const Q8BlkAlignment = 64

// Q8BlkSize returns the byte size of one interleaved quantization block.
func Q8BlkSize(blkLen int) int {
	return 4 + blkLen
}

// Q8BlkScale reads the scale of an interleaved block.
func Q8BlkScale(blk []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(blk))
}

// PutQ8BlkScale writes the scale of an interleaved block.
func PutQ8BlkScale(blk []byte, scale float32) {
	binary.LittleEndian.PutUint32(blk, math.Float32bits(scale))
}

// Q8BlkData returns the quantized value bytes of an interleaved block.
func Q8BlkData(blk []byte, blkLen int) []byte {
	return blk[4 : 4+blkLen]
}

// BlockCountK returns the number of quantization blocks covering a reduction
// dimension of length k.
func BlockCountK(k, blkLen int) int {
	return (k + blkLen - 1) / blkLen
}

// BlkDataSize returns the packed payload bytes of one quantized weight block.
func BlkDataSize(blkBitWidth, blkLen int) int {
	return blkLen * blkBitWidth / 8
}

// ZeroPointsSize returns the bytes holding per-block 4-bit zero points for
// one column run of blockCountK blocks (two zero points per byte).
func ZeroPointsSize(blockCountK int) int {
	return (blockCountK + 1) / 2
}

func divRoundUp(a, b int) int {
	return (a + b - 1) / b
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
