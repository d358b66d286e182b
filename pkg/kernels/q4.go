// Package kernels provides the portable compute kernels behind the qgemm
// dispatch table, with SIMD paths on amd64 and scalar fallbacks elsewhere.
package kernels

import "unsafe"

// q4Table maps a stored 4-bit weight code to its centered signed value.
// Codes are offset-binary with a midpoint of 8, so code 8 decodes to 0.
var q4Table = [16]int8{
	-8, -7, -6, -5, -4, -3, -2, -1,
	0, 1, 2, 3, 4, 5, 6, 7,
}

// decodePackedBlock expands one packed block of blkLen weights into centered
// int8 values. Packed byte j carries element j in its low nibble and element
// j+blkLen/2 in its high nibble.
func decodePackedBlock(dst []int8, src []byte, blkLen int) {
	half := blkLen / 2
	for j := 0; j < half; j++ {
		b := src[j]
		dst[j] = q4Table[b&0x0F]
		dst[j+half] = q4Table[b>>4]
	}
}

// rawNibble reads element e from a column of unpacked quantized data, where
// byte j holds elements 2j (low nibble) and 2j+1 (high nibble).
func rawNibble(src []byte, e int) byte {
	return (src[e/2] >> (4 * uint(e&1))) & 0x0F
}

// zpNibble reads the zero point code for one block of one column. Zero
// points pack two blocks per byte, (blockCountK+1)/2 bytes per column.
func zpNibble(zeroPoints []byte, col, blk, blockCountK int) int {
	base := col * ((blockCountK + 1) / 2)
	b := zeroPoints[base+blk/2]
	if blk&1 == 1 {
		return int(b >> 4)
	}
	return int(b & 0x0F)
}

func int8Slice(b []byte) []int8 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), len(b))
}
