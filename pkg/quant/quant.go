// Package quant turns float32 weight matrices into the blocked 4-bit
// format consumed by qgemm: per-column blocks of blkLen values, each with a
// float32 scale and, for asymmetric quantization, a 4-bit zero point.
package quant

import (
	"errors"
	"fmt"
	"math"
)

// Q4Tensor holds an N x K weight matrix quantized to 4 bits per value.
// Data is column-major: for each of the N columns, BlockCountK blocks of
// BlkLen/2 bytes, two values per byte with the even element in the low
// nibble. Scales has one entry per block, column-major. ZeroPoints is nil
// for symmetric tensors, otherwise packed two blocks per byte with
// (BlockCountK+1)/2 bytes per column.
type Q4Tensor struct {
	N, K   int
	BlkLen int

	Data       []byte
	Scales     []float32
	ZeroPoints []byte
}

var errBadShape = errors.New("quant: weights length does not match shape")

func validBlkLen(blkLen int) bool {
	switch blkLen {
	case 16, 32, 64, 128, 256:
		return true
	}
	return false
}

// QuantizeQ4 quantizes a K x N row-major weight matrix to 4 bits with
// per-column blocks of blkLen values along K. Symmetric mode stores codes
// centered at 8 with no zero points; asymmetric mode picks a per-block zero
// point from the value range. Partial final blocks pad with the midpoint
// code so dequantized padding is exactly zero.
func QuantizeQ4(weights []float32, n, k, blkLen int, symmetric bool) (*Q4Tensor, error) {
	if n <= 0 || k <= 0 {
		return nil, fmt.Errorf("quant: invalid shape n=%d k=%d", n, k)
	}
	if !validBlkLen(blkLen) {
		return nil, fmt.Errorf("quant: invalid block length %d", blkLen)
	}
	if len(weights) != n*k {
		return nil, errBadShape
	}

	blockCountK := (k + blkLen - 1) / blkLen
	blkBytes := blkLen / 2
	zpColBytes := (blockCountK + 1) / 2

	t := &Q4Tensor{
		N:      n,
		K:      k,
		BlkLen: blkLen,
		Data:   make([]byte, n*blockCountK*blkBytes),
		Scales: make([]float32, n*blockCountK),
	}
	if !symmetric {
		t.ZeroPoints = make([]byte, n*zpColBytes)
	}

	codes := make([]int, blkLen)
	for col := 0; col < n; col++ {
		colData := t.Data[col*blockCountK*blkBytes:]

		for blk := 0; blk < blockCountK; blk++ {
			kb := min(k-blk*blkLen, blkLen)

			var scale float32
			zp := 8
			if symmetric {
				maxAbs := float32(0)
				for i := 0; i < kb; i++ {
					v := weights[(blk*blkLen+i)*n+col]
					if v < 0 {
						v = -v
					}
					if v > maxAbs {
						maxAbs = v
					}
				}
				scale = maxAbs / 7.0
			} else {
				lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
				for i := 0; i < kb; i++ {
					v := weights[(blk*blkLen+i)*n+col]
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
				// The range must bracket zero so the zero point is
				// representable.
				if lo > 0 {
					lo = 0
				}
				if hi < 0 {
					hi = 0
				}
				scale = (hi - lo) / 15.0
				if scale > 0 {
					zp = clampCode(int(math.Round(float64(-lo / scale))))
				}
			}

			t.Scales[col*blockCountK+blk] = scale
			if t.ZeroPoints != nil {
				putZpNibble(t.ZeroPoints[col*zpColBytes:], blk, zp)
			}

			for i := 0; i < blkLen; i++ {
				code := zp
				if i < kb && scale > 0 {
					v := weights[(blk*blkLen+i)*n+col]
					code = clampCode(zp + int(math.Round(float64(v/scale))))
				}
				codes[i] = code
			}

			blkData := colData[blk*blkBytes : (blk+1)*blkBytes]
			for j := 0; j < blkBytes; j++ {
				blkData[j] = byte(codes[2*j]) | byte(codes[2*j+1])<<4
			}
		}
	}
	return t, nil
}

// Dequantize expands the tensor back to a K x N row-major float32 matrix.
func (t *Q4Tensor) Dequantize() []float32 {
	blockCountK := (t.K + t.BlkLen - 1) / t.BlkLen
	blkBytes := t.BlkLen / 2
	zpColBytes := (blockCountK + 1) / 2

	out := make([]float32, t.K*t.N)
	for col := 0; col < t.N; col++ {
		colData := t.Data[col*blockCountK*blkBytes:]

		for blk := 0; blk < blockCountK; blk++ {
			kb := min(t.K-blk*t.BlkLen, t.BlkLen)
			scale := t.Scales[col*blockCountK+blk]

			zp := 8
			if t.ZeroPoints != nil {
				zp = getZpNibble(t.ZeroPoints[col*zpColBytes:], blk)
			}

			blkData := colData[blk*blkBytes:]
			for i := 0; i < kb; i++ {
				code := int((blkData[i/2] >> (4 * uint(i&1))) & 0x0F)
				out[(blk*t.BlkLen+i)*t.N+col] = scale * float32(code-zp)
			}
		}
	}
	return out
}

func clampCode(c int) int {
	if c < 0 {
		return 0
	}
	if c > 15 {
		return 15
	}
	return c
}

func putZpNibble(dst []byte, blk, zp int) {
	if blk&1 == 1 {
		dst[blk/2] |= byte(zp) << 4
	} else {
		dst[blk/2] |= byte(zp)
	}
}

func getZpNibble(src []byte, blk int) int {
	if blk&1 == 1 {
		return int(src[blk/2] >> 4)
	}
	return int(src[blk/2] & 0x0F)
}
