//go:build amd64

package kernels

import "simd/archsimd"

var hasAVX2 = archsimd.X86.AVX2()

// gemmFloatAVX2 accumulates C += A*B with register-resident accumulators
// across the k loop, 32 columns at a time, narrowing to 8 and then scalar
// for the remainder.
func gemmFloatAVX2(a []float32, lda int, b []float32, ldb int, c []float32, ldc int, countM, countN, countK int) {
	for m := 0; m < countM; m++ {
		aRow := a[m*lda:]
		cRow := c[m*ldc : m*ldc+countN]

		j := 0
		for ; j+32 <= countN; j += 32 {
			acc0 := archsimd.LoadFloat32x8Slice(cRow[j:])
			acc1 := archsimd.LoadFloat32x8Slice(cRow[j+8:])
			acc2 := archsimd.LoadFloat32x8Slice(cRow[j+16:])
			acc3 := archsimd.LoadFloat32x8Slice(cRow[j+24:])

			for kk := 0; kk < countK; kk++ {
				vaik := archsimd.BroadcastFloat32x8(aRow[kk])
				bRow := b[kk*ldb+j : kk*ldb+j+32]

				acc0 = acc0.Add(archsimd.LoadFloat32x8Slice(bRow[0:]).Mul(vaik))
				acc1 = acc1.Add(archsimd.LoadFloat32x8Slice(bRow[8:]).Mul(vaik))
				acc2 = acc2.Add(archsimd.LoadFloat32x8Slice(bRow[16:]).Mul(vaik))
				acc3 = acc3.Add(archsimd.LoadFloat32x8Slice(bRow[24:]).Mul(vaik))
			}

			acc0.StoreSlice(cRow[j:])
			acc1.StoreSlice(cRow[j+8:])
			acc2.StoreSlice(cRow[j+16:])
			acc3.StoreSlice(cRow[j+24:])
		}

		for ; j+8 <= countN; j += 8 {
			acc := archsimd.LoadFloat32x8Slice(cRow[j:])
			for kk := 0; kk < countK; kk++ {
				vaik := archsimd.BroadcastFloat32x8(aRow[kk])
				vb := archsimd.LoadFloat32x8Slice(b[kk*ldb+j:])
				acc = acc.Add(vb.Mul(vaik))
			}
			acc.StoreSlice(cRow[j:])
		}

		for ; j < countN; j++ {
			var sum float32
			for kk := 0; kk < countK; kk++ {
				sum += aRow[kk] * b[kk*ldb+j]
			}
			cRow[j] += sum
		}
	}
}

func dotInt8Float32SIMD(q []int8, x []float32, n int) float32 {
	var acc archsimd.Float32x8
	i := 0
	for ; i+16 <= n; i += 16 {
		vq := archsimd.LoadInt8x16Slice(q[i:])
		v16 := vq.ExtendToInt16()

		lo := v16.GetLo().ExtendToInt32().ConvertToFloat32()
		hi := v16.GetHi().ExtendToInt32().ConvertToFloat32()

		vxLo := archsimd.LoadFloat32x8Slice(x[i:])
		vxHi := archsimd.LoadFloat32x8Slice(x[i+8:])

		acc = acc.Add(lo.Mul(vxLo))
		acc = acc.Add(hi.Mul(vxHi))
	}

	var tmp [8]float32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]

	for ; i < n; i++ {
		sum += float32(q[i]) * x[i]
	}
	return sum
}

func dotInt8Int8SIMD(a, b []int8, n int) int32 {
	var acc archsimd.Int32x8
	i := 0
	for ; i+16 <= n; i += 16 {
		va := archsimd.LoadInt8x16Slice(a[i:]).ExtendToInt16()
		vb := archsimd.LoadInt8x16Slice(b[i:]).ExtendToInt16()
		acc = acc.Add(va.DotProductPairs(vb))
	}

	var tmp [8]int32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]

	for ; i < n; i++ {
		sum += int32(a[i]) * int32(b[i])
	}
	return sum
}
