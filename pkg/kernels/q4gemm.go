package kernels

import "github.com/samcharles93/qgemm/pkg/qgemm"

// q4GemmM1Fp32 computes one output row against countN packed columns,
// dequantizing each block into registers-adjacent scratch and accumulating
// in float32. The zero point folds into the centered codes before the dot.
func q4GemmM1Fp32(blkLen int, a []float32, quantB []byte, scales []float32, zeroPoints []byte, c []float32, countN, countK, blockCountK int, bias []float32) {
	blkBytes := qgemm.BlkDataSize(4, blkLen)
	ldb := blockCountK * blkBytes

	var decoded [256]int8
	for n := 0; n < countN; n++ {
		col := quantB[n*ldb:]
		var sum float32

		for blk := 0; blk < blockCountK; blk++ {
			kb := min(countK-blk*blkLen, blkLen)
			decodePackedBlock(decoded[:blkLen], col[blk*blkBytes:], blkLen)

			if zeroPoints != nil {
				zpOff := int8(zpNibble(zeroPoints, n, blk, blockCountK) - 8)
				for i := 0; i < kb; i++ {
					decoded[i] -= zpOff
				}
			}

			scale := scales[n*blockCountK+blk]
			sum += scale * dotInt8Float32(decoded[:kb], a[blk*blkLen:], kb)
		}

		if bias != nil {
			sum += bias[n]
		}
		c[n] = sum
	}
}

// q4DequantBFp32 expands countN packed columns into a dense countK x countN
// float32 tile with row stride countN.
func q4DequantBFp32(blkLen int, dst []float32, quantB []byte, scales []float32, zeroPoints []byte, countN, countK, blockCountK int) {
	blkBytes := qgemm.BlkDataSize(4, blkLen)
	ldb := blockCountK * blkBytes

	var decoded [256]int8
	for n := 0; n < countN; n++ {
		col := quantB[n*ldb:]

		for blk := 0; blk < blockCountK; blk++ {
			kb := min(countK-blk*blkLen, blkLen)
			decodePackedBlock(decoded[:blkLen], col[blk*blkBytes:], blkLen)

			zpOff := int8(0)
			if zeroPoints != nil {
				zpOff = int8(zpNibble(zeroPoints, n, blk, blockCountK) - 8)
			}

			scale := scales[n*blockCountK+blk]
			base := blk * blkLen
			for i := 0; i < kb; i++ {
				dst[(base+i)*countN+n] = scale * float32(decoded[i]-zpOff)
			}
		}
	}
}

// q4GemmM1Int8 computes one output row from an interleaved quantized
// activation row. Zero points are applied here via the integer block sum of
// the activations, so no separate correction pass is needed.
func q4GemmM1Int8(blkLen int, quantA, quantB []byte, scales []float32, zeroPoints []byte, c []float32, countN, countK, blockCountK int, bias []float32) {
	blkBytes := qgemm.BlkDataSize(4, blkLen)
	ldb := blockCountK * blkBytes
	blkSize := qgemm.Q8BlkSize(blkLen)

	var decoded [256]int8
	for n := 0; n < countN; n++ {
		col := quantB[n*ldb:]
		var sum float32

		for blk := 0; blk < blockCountK; blk++ {
			aBlk := quantA[blk*blkSize:]
			aScale := qgemm.Q8BlkScale(aBlk)
			aData := int8Slice(qgemm.Q8BlkData(aBlk, blkLen))

			decodePackedBlock(decoded[:blkLen], col[blk*blkBytes:], blkLen)
			dot := dotInt8Int8(aData, decoded[:blkLen], blkLen)

			if zeroPoints != nil {
				zpOff := int32(zpNibble(zeroPoints, n, blk, blockCountK) - 8)
				if zpOff != 0 {
					var sumA int32
					for _, v := range aData {
						sumA += int32(v)
					}
					dot -= zpOff * sumA
				}
			}

			sum += aScale * scales[n*blockCountK+blk] * float32(dot)
		}

		if bias != nil {
			sum += bias[n]
		}
		c[n] = sum
	}
}

// q4GemmInt8 accumulates a countM x countN tile from planar quantized
// activations on top of an already initialized output. The caller has seeded
// c with the block-sum correction term, so the centered codes are dotted
// directly without zero-point handling.
func q4GemmInt8(blkLen int, quantA []int8, quantAScale []float32, quantB []byte, scalesB []float32, c []float32, countM, countN, countK, blockCountK int, bias []float32, lda, ldc int) {
	blkBytes := qgemm.BlkDataSize(4, blkLen)
	ldb := blockCountK * blkBytes

	var decoded [256]int8
	for n := 0; n < countN; n++ {
		col := quantB[n*ldb:]

		for blk := 0; blk < blockCountK; blk++ {
			decodePackedBlock(decoded[:blkLen], col[blk*blkBytes:], blkLen)
			bScale := scalesB[n*blockCountK+blk]

			for m := 0; m < countM; m++ {
				aBlk := quantA[m*lda+blk*blkLen:]
				dot := dotInt8Int8(aBlk[:blkLen], decoded[:blkLen], blkLen)
				c[m*ldc+n] += quantAScale[m*blockCountK+blk] * bScale * float32(dot)
			}
		}

		if bias != nil {
			for m := 0; m < countM; m++ {
				c[m*ldc+n] += bias[n]
			}
		}
	}
}
