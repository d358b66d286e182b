package kernels

// gemmFloat computes C += A*B (or C = A*B when zeroMode) for row-major
// float32 operands. It backs both the dense tail of the fp32 compute path
// and the block-sum contraction of the int8 path.
func gemmFloat(a []float32, lda int, b []float32, ldb int, c []float32, ldc int, countM, countN, countK int, zeroMode bool) {
	if zeroMode {
		for m := 0; m < countM; m++ {
			row := c[m*ldc : m*ldc+countN]
			for j := range row {
				row[j] = 0
			}
		}
	}
	if hasAVX2 && countN >= 8 {
		gemmFloatAVX2(a, lda, b, ldb, c, ldc, countM, countN, countK)
		return
	}
	gemmFloatScalar(a, lda, b, ldb, c, ldc, countM, countN, countK)
}

func gemmFloatScalar(a []float32, lda int, b []float32, ldb int, c []float32, ldc int, countM, countN, countK int) {
	for m := 0; m < countM; m++ {
		aRow := a[m*lda:]
		cRow := c[m*ldc : m*ldc+countN]

		for kk := 0; kk < countK; kk++ {
			aik := aRow[kk]
			if aik == 0 {
				continue
			}
			bRow := b[kk*ldb : kk*ldb+countN]

			j := 0
			for ; j+3 < countN; j += 4 {
				cRow[j+0] += aik * bRow[j+0]
				cRow[j+1] += aik * bRow[j+1]
				cRow[j+2] += aik * bRow[j+2]
				cRow[j+3] += aik * bRow[j+3]
			}
			for ; j < countN; j++ {
				cRow[j] += aik * bRow[j]
			}
		}
	}
}

func dotInt8Float32(q []int8, x []float32, n int) float32 {
	if hasAVX2 && n >= 16 {
		return dotInt8Float32SIMD(q, x, n)
	}
	return dotInt8Float32Scalar(q, x, n)
}

func dotInt8Int8(a, b []int8, n int) int32 {
	if hasAVX2 && n >= 16 {
		return dotInt8Int8SIMD(a, b, n)
	}
	return dotInt8Int8Scalar(a, b, n)
}

func dotInt8Float32Scalar(q []int8, x []float32, n int) float32 {
	var sum float32
	for i := 0; i < n; i++ {
		sum += float32(q[i]) * x[i]
	}
	return sum
}

func dotInt8Int8Scalar(a, b []int8, n int) int32 {
	var sum int32
	for i := 0; i < n; i++ {
		sum += int32(a[i]) * int32(b[i])
	}
	return sum
}
