package qgemm

import "sync"

const (
	// nChunk is the column chunk width the compute paths step through;
	// fixed tuning constant, not derived from the problem size.
	nChunk = 128
	// dequantStrideN is the column width of the dequantized B tile the
	// fp32 M>1 path materializes per step.
	dequantStrideN = 32
)

var dequantBufPool sync.Pool

func getDequantBuf(need int) []float32 {
	buf, _ := dequantBufPool.Get().([]float32)
	if cap(buf) < need {
		buf = make([]float32, need)
	}
	return buf[:need]
}

func putDequantBuf(buf []float32) {
	dequantBufPool.Put(buf)
}

// addBias adds bias into a countM x countN tile of c, four columns at a time
// with a scalar remainder tail.
func addBias(bias []float32, c []float32, countM, countN, ldc int) {
	for m := 0; m < countM; m++ {
		row := c[m*ldc : m*ldc+countN]
		j := 0
		for ; j+3 < countN; j += 4 {
			row[j+0] += bias[j+0]
			row[j+1] += bias[j+1]
			row[j+2] += bias[j+2]
			row[j+3] += bias[j+3]
		}
		for ; j < countN; j++ {
			row[j] += bias[j]
		}
	}
}

// gemmFp32 computes one (countM x countN) tile of the fp32-accumulation
// variant. With a single output row it drives the single-row kernel straight
// against the packed columns; with more rows it dequantizes B into a dense
// scratch tile once per N-chunk and reuses the wide float kernel across all
// rows, amortizing the dequantization over M.
func (e *Engine) gemmFp32(blkLen, k int, data *DataParams, startM, countM, startN, countN int) {
	blockCountK := BlockCountK(k, blkLen)
	ldb := blockCountK * BlkDataSize(4, blkLen)
	zpColBytes := ZeroPointsSize(blockCountK)

	lda := data.LDA
	ldc := data.LDC

	a := data.A[startM*lda:]
	quantB := data.PackedQuantB[startN*ldb:]
	scales := data.QuantBScale[startN*blockCountK:]
	var zeroPoints []byte
	if data.QuantBZeroPoint != nil {
		zeroPoints = data.QuantBZeroPoint[startN*zpColBytes:]
	}
	c := data.C[startM*ldc+startN:]
	var bias []float32
	if data.Bias != nil {
		bias = data.Bias[startN:]
	}

	if countM == 1 {
		for n := 0; n < countN; n += nChunk {
			cn := min(countN-n, nChunk)

			var colZp []byte
			if zeroPoints != nil {
				colZp = zeroPoints[n*zpColBytes:]
			}
			var biasChunk []float32
			if bias != nil {
				biasChunk = bias[n:]
			}

			e.d.Q4GemmM1Fp32(blkLen, a[:k], quantB[n*ldb:], scales[n*blockCountK:], colZp, c[n:], cn, k, blockCountK, biasChunk)

			if data.PostProcessor != nil {
				data.PostProcessor(data.C, startM, startN+n, 1, cn, ldc)
			}
		}
		return
	}

	dequantB := getDequantBuf(blockCountK * blkLen * dequantStrideN)
	defer putDequantBuf(dequantB)

	for n := 0; n < countN; n += dequantStrideN {
		cn := min(countN-n, dequantStrideN)

		var colZp []byte
		if zeroPoints != nil {
			colZp = zeroPoints[n*zpColBytes:]
		}

		e.d.Q4DequantBFp32(blkLen, dequantB, quantB[n*ldb:], scales[n*blockCountK:], colZp, cn, k, blockCountK)

		e.d.GemmFloat(a, lda, dequantB, cn, c[n:], ldc, countM, cn, k, true)

		if bias != nil {
			addBias(bias[n:], c[n:], countM, cn, ldc)
		}
		if data.PostProcessor != nil {
			data.PostProcessor(data.C, startM, startN+n, countM, cn, ldc)
		}
	}
}

// gemmInt8 computes one tile of the int8-accumulation variant. The
// block-sum contraction ABlockSum x BBlockSum is written into the output
// tile first (it carries the zero-point correction and replaces the
// memset), then the row-batched quantized kernel accumulates on top and
// folds in the bias. Without a row-batched kernel the interleaved
// single-row kernel runs once per row and handles zero points itself.
func (e *Engine) gemmInt8(blkLen, k int, data *DataParams, qa *quantAWorkspace, pb *packedQuantB, startM, countM, startN, countN int) {
	blockCountK := BlockCountK(k, blkLen)
	ldb := blockCountK * BlkDataSize(4, blkLen)
	zpColBytes := ZeroPointsSize(blockCountK)
	ldc := data.LDC

	quantB := data.PackedQuantB[startN*ldb:]
	scalesB := data.QuantBScale[startN*blockCountK:]
	c := data.C[startM*ldc+startN:]
	var bias []float32
	if data.Bias != nil {
		bias = data.Bias[startN:]
	}

	lda := qa.ldaElems()

	if qa.soa {
		quantA := qa.data[startM*lda:]
		quantAScale := qa.scales[startM*blockCountK:]
		aBlkSum := qa.blkSum[startM*blockCountK:]

		for n := 0; n < countN; n += nChunk {
			cn := min(countN-n, nChunk)

			var biasChunk []float32
			if bias != nil {
				biasChunk = bias[n:]
			}
			cBlk := c[n:]

			// Zero-point correction term, written as initialization.
			bBlkSum := pb.blkSum[startN+n:]
			e.d.GemmFloat(aBlkSum, blockCountK, bBlkSum, pb.n, cBlk, ldc, countM, cn, blockCountK, true)

			e.d.Q4GemmInt8(blkLen, quantA, quantAScale, quantB[n*ldb:], scalesB[n*blockCountK:], cBlk, countM, cn, k, blockCountK, biasChunk, lda, ldc)

			if data.PostProcessor != nil {
				data.PostProcessor(data.C, startM, startN+n, countM, cn, ldc)
			}
		}
		return
	}

	// Single-row fallback: one kernel call per output row per N-chunk.
	blob := qa.blob[startM*lda:]
	var zeroPoints []byte
	if data.QuantBZeroPoint != nil {
		zeroPoints = data.QuantBZeroPoint[startN*zpColBytes:]
	}

	for n := 0; n < countN; n += nChunk {
		cn := min(countN-n, nChunk)

		var colZp []byte
		if zeroPoints != nil {
			colZp = zeroPoints[n*zpColBytes:]
		}
		var biasChunk []float32
		if bias != nil {
			biasChunk = bias[n:]
		}

		for m := 0; m < countM; m++ {
			e.d.Q4GemmM1Int8(blkLen, blob[m*lda:], quantB[n*ldb:], scalesB[n*blockCountK:], colZp, c[m*ldc+n:], cn, k, blockCountK, biasChunk)
		}

		if data.PostProcessor != nil {
			data.PostProcessor(data.C, startM, startN+n, countM, cn, ldc)
		}
	}
}
