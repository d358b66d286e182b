//go:build !amd64

package kernels

var hasAVX2 = false

func gemmFloatAVX2(a []float32, lda int, b []float32, ldb int, c []float32, ldc int, countM, countN, countK int) {
	gemmFloatScalar(a, lda, b, ldb, c, ldc, countM, countN, countK)
}

func dotInt8Float32SIMD(q []int8, x []float32, n int) float32 {
	return dotInt8Float32Scalar(q, x, n)
}

func dotInt8Int8SIMD(a, b []int8, n int) int32 {
	return dotInt8Int8Scalar(a, b, n)
}
