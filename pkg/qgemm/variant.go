package qgemm

// ComputeType selects the numeric domain the GEMM accumulation runs in.
type ComputeType int

const (
	// ComputeUndef lets the engine pick; it is treated as ComputeFp32.
	ComputeUndef ComputeType = iota
	// ComputeFp32 dequantizes weights and accumulates in float32.
	ComputeFp32
	// ComputeInt8 quantizes activations to int8 blocks and accumulates
	// quantized dot products, folding zero-point correction through
	// per-block sums.
	ComputeInt8
)

func (ct ComputeType) String() string {
	switch ct {
	case ComputeUndef:
		return "undef"
	case ComputeFp32:
		return "fp32"
	case ComputeInt8:
		return "int8"
	default:
		return "unknown"
	}
}

// variant is one of the closed set of (bit width, compute type) combinations
// the engine supports. Resolution is a pure function of the configuration;
// unsupported combinations map to variantInvalid and make every downstream
// query report zero/false instead of failing.
type variant int

const (
	variantInvalid variant = -1

	variant4BitFp32 variant = 0
	variant4BitInt8 variant = 1
)

func resolveVariant(blkBitWidth, blkLen int, compute ComputeType) variant {
	if blkBitWidth == 4 &&
		(blkLen == 16 || blkLen == 32 || blkLen == 64 || blkLen == 128 || blkLen == 256) {
		switch compute {
		case ComputeFp32, ComputeUndef:
			return variant4BitFp32
		case ComputeInt8:
			return variant4BitInt8
		}
	}
	return variantInvalid
}
