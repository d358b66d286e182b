package qgemm

import (
	"fmt"

	"github.com/samcharles93/qgemm/pkg/parallel"
)

const (
	// strideM is the output-row granularity of work partitioning.
	strideM = 128
	// strideNAlign keeps per-task column extents on a 16-column boundary.
	strideNAlign = 16
	// gemmThreadComplexity is the amount of multiply-accumulate work one
	// thread is worth; the task count grows with total complexity / this.
	gemmThreadComplexity = 65536
	// maxThreadOversubscribe caps the task target at a multiple of the
	// pool size so tiny tiles do not drown the pool in dispatch overhead.
	maxThreadOversubscribe = 8
)

// GemmBatch runs batchN independent quantized GEMMs that share the shape
// (M x K) x (K x N). Each params entry supplies its own buffers. The
// compute type selects the accumulation variant; callers should have
// checked IsAvailable first, unsupported configurations return
// ErrUnsupported. For int8 compute, workspace must hold at least
// WorkspaceSize bytes; it is realigned internally, so any allocation
// works. A nil pool runs everything on the calling goroutine.
func (e *Engine) GemmBatch(m, n, k, batchN, blkBitWidth, blkLen int, compute ComputeType, params []DataParams, workspace []byte, pool *parallel.Pool) error {
	if m <= 0 || n <= 0 || k <= 0 || batchN <= 0 {
		return fmt.Errorf("qgemm: invalid shape m=%d n=%d k=%d batch=%d", m, n, k, batchN)
	}
	v := resolveVariant(blkBitWidth, blkLen, compute)
	if v == variantInvalid || !e.IsAvailable(blkBitWidth, blkLen, compute) {
		return ErrUnsupported
	}
	if len(params) < batchN {
		return fmt.Errorf("qgemm: %d gemms but only %d params", batchN, len(params))
	}

	blockCountK := BlockCountK(k, blkLen)
	for i := range params[:batchN] {
		p := &params[i]
		if p.LDA == 0 {
			p.LDA = k
		}
		if p.LDC == 0 {
			p.LDC = n
		}
		if p.LDA < k || p.LDC < n {
			return fmt.Errorf("qgemm: gemm %d: lda=%d ldc=%d below k=%d n=%d", i, p.LDA, p.LDC, k, n)
		}
		if len(p.A) < (m-1)*p.LDA+k {
			return fmt.Errorf("qgemm: gemm %d: A is %d elements, need %d", i, len(p.A), (m-1)*p.LDA+k)
		}
		if len(p.C) < (m-1)*p.LDC+n {
			return fmt.Errorf("qgemm: gemm %d: C is %d elements, need %d", i, len(p.C), (m-1)*p.LDC+n)
		}
		if need := e.PackedQuantBSize(n, k, blkBitWidth, blkLen, compute); need > 0 && len(p.PackedQuantB) < need {
			return fmt.Errorf("qgemm: gemm %d: packed B is %d bytes, need %d", i, len(p.PackedQuantB), need)
		}
		if len(p.QuantBScale) < n*blockCountK {
			return fmt.Errorf("qgemm: gemm %d: %d B scales, need %d", i, len(p.QuantBScale), n*blockCountK)
		}
		if p.QuantBZeroPoint != nil && len(p.QuantBZeroPoint) < n*ZeroPointsSize(blockCountK) {
			return fmt.Errorf("qgemm: gemm %d: %d zero point bytes, need %d", i, len(p.QuantBZeroPoint), n*ZeroPointsSize(blockCountK))
		}
		if p.Bias != nil && len(p.Bias) < n {
			return fmt.Errorf("qgemm: gemm %d: %d bias elements, need %d", i, len(p.Bias), n)
		}
	}

	var (
		ws  []byte
		soa bool
	)
	if v == variant4BitInt8 {
		if need := e.WorkspaceSize(m, n, k, batchN, blkBitWidth, blkLen, compute); len(workspace) < need {
			return ErrWorkspaceTooSmall
		}
		ws = alignSlice(workspace, Q8BlkAlignment)
		soa = e.int8SoA()
		e.initializeWorkspaceInt8(m, k, batchN, blkLen, blockCountK, soa, params, ws, pool)
	}

	perGemmStride := perGemmWorkspaceStride(v, m, k, blkLen)

	runTile := func(gemmIdx, startM, countM, startN, countN int) {
		data := &params[gemmIdx]
		switch v {
		case variant4BitFp32:
			e.gemmFp32(blkLen, k, data, startM, countM, startN, countN)
		case variant4BitInt8:
			pb := newPackedQuantB(data.PackedQuantB, n, blockCountK, blkLen, soa)
			qa := newQuantAWorkspace(ws[gemmIdx*perGemmStride:], m, blockCountK, blkLen, soa)
			e.gemmInt8(blkLen, k, data, &qa, &pb, startM, countM, startN, countN)
		}
	}

	if pool == nil || pool.Size() <= 1 {
		for gi := 0; gi < batchN; gi++ {
			runTile(gi, 0, m, 0, n)
		}
		return nil
	}

	// Pick a task count proportional to the arithmetic work, then carve
	// each gemm into (threadCountM x threadCountN) tiles of rows x columns.
	complexity := float64(m) * float64(n) * float64(k) * float64(batchN)
	targetTasks := int(complexity/gemmThreadComplexity) + 1
	if limit := pool.Size() * maxThreadOversubscribe; targetTasks > limit {
		targetTasks = limit
	}
	tasksPerGemm := targetTasks / batchN
	if tasksPerGemm < 1 {
		tasksPerGemm = 1
	}

	strideN := n
	if tasksPerGemm > 1 {
		blockedM := divRoundUp(m, strideM)
		maxNC := divRoundUp(n*blockedM, tasksPerGemm)
		if maxNC < strideN {
			strideN = divRoundUp(maxNC, strideNAlign) * strideNAlign
		}
	}

	threadCountM := divRoundUp(m, strideM)
	threadCountN := divRoundUp(n, strideN)
	tasksPerGemm = threadCountM * threadCountN

	pool.Do(tasksPerGemm*batchN, func(tid int) {
		gemmIdx := tid / tasksPerGemm
		blkIdx := tid % tasksPerGemm

		tileN := blkIdx / threadCountM
		tileM := blkIdx % threadCountM

		startM := tileM * strideM
		countM := min(m-startM, strideM)
		startN := tileN * strideN
		countN := min(n-startN, strideN)

		runTile(gemmIdx, startM, countM, startN, countN)
	})
	return nil
}

// initializeWorkspaceInt8 quantizes every A row of every gemm into the
// workspace ahead of the compute pass, parallelized over rows.
func (e *Engine) initializeWorkspaceInt8(m, k, batchN, blkLen, blockCountK int, soa bool, params []DataParams, ws []byte, pool *parallel.Pool) {
	perGemmStride := perGemmWorkspaceStride(variant4BitInt8, m, k, blkLen)

	pool.Do(batchN*m, func(tid int) {
		gemmIdx := tid / m
		row := tid % m

		data := &params[gemmIdx]
		qa := newQuantAWorkspace(ws[gemmIdx*perGemmStride:], m, blockCountK, blkLen, soa)
		aRow := data.A[row*data.LDA : row*data.LDA+k]

		if soa {
			off := row * blockCountK
			e.d.QuantizeARowInt8SoA(blkLen, aRow, k,
				qa.data[row*qa.ldaElems():(row+1)*qa.ldaElems()],
				qa.scales[off:off+blockCountK],
				qa.blkSum[off:off+blockCountK])
		} else {
			lda := qa.ldaElems()
			e.d.QuantizeARowInt8(blkLen, aRow, k, qa.blob[row*lda:(row+1)*lda])
		}
	})
}
