package quant

import (
	"math"
	"math/rand"
	"testing"
)

func TestQuantizeQ4RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	n, k, blkLen := 7, 90, 32
	blockCountK := (k + blkLen - 1) / blkLen

	weights := make([]float32, k*n)
	for i := range weights {
		weights[i] = rng.Float32()*4 - 2
	}

	for _, symmetric := range []bool{true, false} {
		tensor, err := QuantizeQ4(weights, n, k, blkLen, symmetric)
		if err != nil {
			t.Fatal(err)
		}
		if symmetric && tensor.ZeroPoints != nil {
			t.Fatal("symmetric tensor carries zero points")
		}
		if !symmetric && tensor.ZeroPoints == nil {
			t.Fatal("asymmetric tensor missing zero points")
		}

		back := tensor.Dequantize()
		for col := 0; col < n; col++ {
			for row := 0; row < k; row++ {
				blk := row / blkLen
				scale := float64(tensor.Scales[col*blockCountK+blk])
				diff := math.Abs(float64(back[row*n+col] - weights[row*n+col]))
				if diff > scale*0.5+1e-6 {
					t.Fatalf("symmetric=%v col %d row %d: %v reconstructs to %v (scale %v)",
						symmetric, col, row, weights[row*n+col], back[row*n+col], scale)
				}
			}
		}
	}
}

func TestQuantizeQ4PartialBlockPadsToZero(t *testing.T) {
	n, k, blkLen := 2, 40, 32 // second block holds 8 of 32 values
	weights := make([]float32, k*n)
	for i := range weights {
		weights[i] = 1
	}

	tensor, err := QuantizeQ4(weights, n, k, blkLen, false)
	if err != nil {
		t.Fatal(err)
	}

	// Padding decodes to the zero point, so a dequantize of the padded
	// region through raw nibble access must give zero.
	blockCountK := 2
	blkBytes := blkLen / 2
	zpColBytes := (blockCountK + 1) / 2
	for col := 0; col < n; col++ {
		zp := int(tensor.ZeroPoints[col*zpColBytes] >> 4) // block 1
		blkData := tensor.Data[col*blockCountK*blkBytes+blkBytes:]
		for i := 8; i < blkLen; i++ {
			code := int((blkData[i/2] >> (4 * uint(i&1))) & 0x0F)
			if code != zp {
				t.Fatalf("col %d pad element %d: code %d, zero point %d", col, i, code, zp)
			}
		}
	}
}

func TestQuantizeQ4Errors(t *testing.T) {
	if _, err := QuantizeQ4(make([]float32, 10), 2, 4, 32, true); err == nil {
		t.Fatal("length mismatch accepted")
	}
	if _, err := QuantizeQ4(make([]float32, 64), 2, 32, 24, true); err == nil {
		t.Fatal("invalid block length accepted")
	}
	if _, err := QuantizeQ4(nil, 0, 32, 32, true); err == nil {
		t.Fatal("zero n accepted")
	}
}

func TestQuantizeQ4ZeroBlock(t *testing.T) {
	n, k, blkLen := 1, 32, 32
	tensor, err := QuantizeQ4(make([]float32, k*n), n, k, blkLen, true)
	if err != nil {
		t.Fatal(err)
	}
	if tensor.Scales[0] != 0 {
		t.Fatalf("zero block scale = %v", tensor.Scales[0])
	}
	for _, v := range tensor.Dequantize() {
		if v != 0 {
			t.Fatalf("zero block dequantized to %v", v)
		}
	}
}
