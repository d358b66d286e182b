package qgemm

// PostProcessor is invoked once per completed output tile with the full
// output buffer and the tile's bounds. Tiles scheduled to different workers
// are disjoint, so implementations may write to their own tile without
// synchronization but must not touch the rest of c.
type PostProcessor func(c []float32, startM, startN, countM, countN, ldc int)

// DataParams describes one GEMM of a batch: dense row-major float32
// activations A (M x K), a packed quantized weight matrix B (K x N, built by
// Engine.PackQuantB), an optional bias of length N, and the float32 output
// C (M x N). All GEMMs of one batch share (M, N, K, BlkLen, ComputeType) but
// own their buffers.
type DataParams struct {
	A   []float32
	LDA int // row stride of A in elements; 0 means K

	PackedQuantB    []byte
	QuantBScale     []float32 // N * BlockCountK, column-major
	QuantBZeroPoint []byte    // optional, N * ceil(BlockCountK/2)

	Bias []float32 // optional, length N

	C   []float32
	LDC int // row stride of C in elements; 0 means N

	PostProcessor PostProcessor
}
