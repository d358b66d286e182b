package qgemm

import (
	"errors"

	"github.com/samcharles93/qgemm/pkg/parallel"
)

// blkSumAlignment is the boundary the packed block-sum region is aligned to
// after the weight payload, suitable for vector loads.
const blkSumAlignment = 64

// packedQuantB is the view into a packed weight buffer: the payload for all
// columns followed, when the int8 pairing is active, by the per-(column,
// block) sum region realigned to blkSumAlignment. Offsets are relative to
// the start of the buffer, so a packed buffer remains valid when copied.
type packedQuantB struct {
	data   []byte
	blkSum []float32 // blockCountK x n row-major; nil without block sums
	n      int
}

func newPackedQuantB(packed []byte, n, blockCountK, blkLen int, withBlkSum bool) packedQuantB {
	payload := n * blockCountK * BlkDataSize(4, blkLen)
	pb := packedQuantB{data: packed[:payload], n: n}
	if withBlkSum {
		off := alignUp(payload, blkSumAlignment)
		pb.blkSum = floatView(packed[off:], blockCountK*n)
	}
	return pb
}

// PackedQuantBSize returns the bytes needed for the packed representation of
// an N x K quantized weight matrix, or 0 when the configuration is
// unsupported or the dispatch table cannot size it.
func (e *Engine) PackedQuantBSize(n, k, blkBitWidth, blkLen int, compute ComputeType) int {
	if blkBitWidth != 4 || e.d.Q4PackSize == nil {
		return 0
	}
	if resolveVariant(blkBitWidth, blkLen, compute) == variantInvalid {
		return 0
	}
	return e.d.Q4PackSize(n, k, blkLen, compute)
}

// PackQuantB fills packed with the cache-friendly layout of a raw quantized
// weight buffer. It must be called once per weight matrix, before any
// GemmBatch; the packed buffer is read-only afterwards.
//
// Exactly one packing mode applies per dispatch table: when the table
// carries Q4PackWithBlkSum and the compute type is int8, scales (and
// optionally zeroPoints) must be supplied so per-block sums can be folded
// into the trailing region; otherwise plain packing is used and scales and
// zeroPoints must be nil.
func (e *Engine) PackQuantB(n, k, blkBitWidth, blkLen int, compute ComputeType, quantB, packed []byte, scales []float32, zeroPoints []byte, pool *parallel.Pool) error {
	if blkBitWidth != 4 || resolveVariant(blkBitWidth, blkLen, compute) == variantInvalid {
		return ErrUnsupported
	}
	blockCountK := BlockCountK(k, blkLen)
	rawLen := n * blockCountK * BlkDataSize(4, blkLen)
	if len(quantB) < rawLen {
		return errors.New("qgemm: raw quantized weight buffer too small")
	}
	if need := e.PackedQuantBSize(n, k, blkBitWidth, blkLen, compute); need == 0 || len(packed) < need {
		return errors.New("qgemm: packed weight buffer too small")
	}

	if compute == ComputeInt8 && e.d.Q4PackWithBlkSum != nil {
		if scales == nil {
			return errors.New("qgemm: pack with block sums requires scales")
		}
		if len(scales) < n*blockCountK {
			return errors.New("qgemm: scales buffer too small")
		}
		pb := newPackedQuantB(packed, n, blockCountK, blkLen, true)
		e.d.Q4PackWithBlkSum(n, k, blkLen, compute, quantB, pb.data, scales, zeroPoints, pb.blkSum, pool)
		return nil
	}

	if e.d.Q4Pack == nil {
		return ErrUnsupported
	}
	if scales != nil || zeroPoints != nil {
		return errors.New("qgemm: plain pack does not take scales or zero points")
	}
	pb := newPackedQuantB(packed, n, blockCountK, blkLen, false)
	e.d.Q4Pack(n, k, blkLen, compute, quantB, pb.data, pool)
	return nil
}
