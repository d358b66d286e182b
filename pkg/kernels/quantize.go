package kernels

import (
	"math"

	"github.com/samcharles93/qgemm/pkg/qgemm"
)

// quantizeBlockInt8 quantizes up to blkLen activations into q, returning the
// scale. Elements past countK are written as zero so full-block dot products
// stay correct.
func quantizeBlockInt8(a []float32, countK, blkLen int, q []int8) float32 {
	maxAbs := float32(0)
	for i := 0; i < countK; i++ {
		v := a[i]
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}

	if maxAbs == 0 {
		for i := 0; i < blkLen; i++ {
			q[i] = 0
		}
		return 0
	}

	scale := maxAbs / 127.0
	inv := 1.0 / scale
	for i := 0; i < countK; i++ {
		qv := int32(math.Round(float64(a[i] * inv)))
		if qv > 127 {
			qv = 127
		} else if qv < -127 {
			qv = -127
		}
		q[i] = int8(qv)
	}
	for i := countK; i < blkLen; i++ {
		q[i] = 0
	}
	return scale
}

// quantizeARowInt8SoA quantizes one activation row into the planar workspace
// layout: quantA holds blockCountK*blkLen values, scales and blkSum one entry
// per block. blkSum is scale times the integer block sum, the A side of the
// zero-point correction term.
func quantizeARowInt8SoA(blkLen int, a []float32, countK int, quantA []int8, scales, blkSum []float32) {
	blockCountK := qgemm.BlockCountK(countK, blkLen)
	for blk := 0; blk < blockCountK; blk++ {
		kb := min(countK-blk*blkLen, blkLen)
		q := quantA[blk*blkLen : (blk+1)*blkLen]
		scale := quantizeBlockInt8(a[blk*blkLen:], kb, blkLen, q)
		scales[blk] = scale

		var sum int32
		for _, v := range q {
			sum += int32(v)
		}
		blkSum[blk] = scale * float32(sum)
	}
}

// quantizeARowInt8 quantizes one activation row into the interleaved layout:
// per block, a little-endian float32 scale followed by blkLen int8 values.
func quantizeARowInt8(blkLen int, a []float32, countK int, quantA []byte) {
	blkSize := qgemm.Q8BlkSize(blkLen)
	blockCountK := qgemm.BlockCountK(countK, blkLen)
	var q [256]int8
	for blk := 0; blk < blockCountK; blk++ {
		kb := min(countK-blk*blkLen, blkLen)
		dst := quantA[blk*blkSize:]
		scale := quantizeBlockInt8(a[blk*blkLen:], kb, blkLen, q[:blkLen])
		qgemm.PutQ8BlkScale(dst, scale)

		data := qgemm.Q8BlkData(dst, blkLen)
		for i := 0; i < blkLen; i++ {
			data[i] = byte(q[i])
		}
	}
}
