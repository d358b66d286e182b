package kernels

import (
	"github.com/samcharles93/qgemm/pkg/parallel"
	"github.com/samcharles93/qgemm/pkg/qgemm"
)

// q4PackSize returns the packed buffer size for an N x K 4-bit weight
// matrix. Int8 compute appends a block sum plane after the payload, aligned
// so the plane starts on a 64-byte boundary within the buffer.
func q4PackSize(n, k, blkLen int, compute qgemm.ComputeType) int {
	blockCountK := qgemm.BlockCountK(k, blkLen)
	payload := n * blockCountK * qgemm.BlkDataSize(4, blkLen)
	if compute != qgemm.ComputeInt8 {
		return payload
	}
	return alignUp(payload, 64) + n*blockCountK*4
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

// repackColumn rewrites one column from the adjacent-pair nibble layout into
// the half-split layout the compute kernels read: packed byte j of a block
// holds element j low and element j+blkLen/2 high.
func repackColumn(dst, src []byte, blockCountK, blkLen int) {
	blkBytes := blkLen / 2
	for blk := 0; blk < blockCountK; blk++ {
		srcBlk := src[blk*blkBytes:]
		dstBlk := dst[blk*blkBytes : (blk+1)*blkBytes]
		half := blkLen / 2
		for j := 0; j < half; j++ {
			lo := rawNibble(srcBlk, j)
			hi := rawNibble(srcBlk, half+j)
			dstBlk[j] = lo | hi<<4
		}
	}
}

// q4Pack repacks raw column-major quantized weights into the compute layout,
// one column per task.
func q4Pack(n, k, blkLen int, compute qgemm.ComputeType, quantB, packed []byte, pool *parallel.Pool) {
	blockCountK := qgemm.BlockCountK(k, blkLen)
	colBytes := blockCountK * qgemm.BlkDataSize(4, blkLen)

	pool.Do(n, func(col int) {
		repackColumn(packed[col*colBytes:], quantB[col*colBytes:], blockCountK, blkLen)
	})
}

// q4PackWithBlkSum repacks the payload and fills the block sum plane used to
// initialize int8-compute outputs. Entry [blk*n+col] is -scale*(zp-8), the B
// side of the zero-point correction, which is zero for symmetric weights.
func q4PackWithBlkSum(n, k, blkLen int, compute qgemm.ComputeType, quantB, packed []byte, scales []float32, zeroPoints []byte, blkSum []float32, pool *parallel.Pool) {
	blockCountK := qgemm.BlockCountK(k, blkLen)
	colBytes := blockCountK * qgemm.BlkDataSize(4, blkLen)

	pool.Do(n, func(col int) {
		repackColumn(packed[col*colBytes:], quantB[col*colBytes:], blockCountK, blkLen)

		for blk := 0; blk < blockCountK; blk++ {
			zp := 8
			if zeroPoints != nil {
				zp = zpNibble(zeroPoints, col, blk, blockCountK)
			}
			blkSum[blk*n+col] = -scales[col*blockCountK+blk] * float32(zp-8)
		}
	})
}
