package qgemm

import (
	"testing"

	"github.com/samcharles93/qgemm/pkg/parallel"
)

// stubPackTable records which packing entry ran, with a size function that
// mirrors the payload-plus-sums layout.
func stubPackTable(ranPlain, ranBlkSum *bool) *Dispatch {
	return &Dispatch{
		Q4PackSize: func(n, k, blkLen int, compute ComputeType) int {
			payload := n * BlockCountK(k, blkLen) * BlkDataSize(4, blkLen)
			if compute == ComputeInt8 {
				return alignUp(payload, blkSumAlignment) + n*BlockCountK(k, blkLen)*4
			}
			return payload
		},
		Q4Pack: func(n, k, blkLen int, compute ComputeType, quantB, packed []byte, pool *parallel.Pool) {
			*ranPlain = true
		},
		Q4PackWithBlkSum: func(n, k, blkLen int, compute ComputeType, quantB, packed []byte, scales []float32, zeroPoints []byte, blkSum []float32, pool *parallel.Pool) {
			*ranBlkSum = true
			for i := range blkSum {
				blkSum[i] = float32(i)
			}
		},
	}
}

func TestPackQuantBSelectsMode(t *testing.T) {
	var ranPlain, ranBlkSum bool
	e := New(stubPackTable(&ranPlain, &ranBlkSum))

	n, k, blkLen := 8, 64, 32
	blockCountK := BlockCountK(k, blkLen)
	raw := make([]byte, n*blockCountK*BlkDataSize(4, blkLen))

	packed := make([]byte, e.PackedQuantBSize(n, k, 4, blkLen, ComputeFp32))
	if err := e.PackQuantB(n, k, 4, blkLen, ComputeFp32, raw, packed, nil, nil, nil); err != nil {
		t.Fatalf("fp32 pack: %v", err)
	}
	if !ranPlain || ranBlkSum {
		t.Fatalf("fp32 pack ran plain=%v blkSum=%v", ranPlain, ranBlkSum)
	}

	ranPlain, ranBlkSum = false, false
	scales := make([]float32, n*blockCountK)
	packed = make([]byte, e.PackedQuantBSize(n, k, 4, blkLen, ComputeInt8))
	if err := e.PackQuantB(n, k, 4, blkLen, ComputeInt8, raw, packed, scales, nil, nil); err != nil {
		t.Fatalf("int8 pack: %v", err)
	}
	if ranPlain || !ranBlkSum {
		t.Fatalf("int8 pack ran plain=%v blkSum=%v", ranPlain, ranBlkSum)
	}

	// The sums written through the view land after the aligned payload.
	pb := newPackedQuantB(packed, n, blockCountK, blkLen, true)
	if pb.blkSum[1] != 1 || pb.blkSum[n*blockCountK-1] != float32(n*blockCountK-1) {
		t.Fatal("block sums did not land in the trailing region")
	}
}

func TestPackQuantBArgumentErrors(t *testing.T) {
	var ranPlain, ranBlkSum bool
	e := New(stubPackTable(&ranPlain, &ranBlkSum))

	n, k, blkLen := 4, 64, 32
	blockCountK := BlockCountK(k, blkLen)
	raw := make([]byte, n*blockCountK*BlkDataSize(4, blkLen))
	scales := make([]float32, n*blockCountK)

	if err := e.PackQuantB(n, k, 3, blkLen, ComputeFp32, raw, nil, nil, nil, nil); err != ErrUnsupported {
		t.Fatalf("3-bit pack: %v", err)
	}

	packed := make([]byte, e.PackedQuantBSize(n, k, 4, blkLen, ComputeInt8))
	if err := e.PackQuantB(n, k, 4, blkLen, ComputeInt8, raw, packed, nil, nil, nil); err == nil {
		t.Fatal("int8 pack without scales succeeded")
	}

	if err := e.PackQuantB(n, k, 4, blkLen, ComputeFp32, raw, packed, scales, nil, nil); err == nil {
		t.Fatal("fp32 pack with scales succeeded")
	}

	short := make([]byte, 8)
	if err := e.PackQuantB(n, k, 4, blkLen, ComputeInt8, raw, short, scales, nil, nil); err == nil {
		t.Fatal("short packed buffer succeeded")
	}

	if err := e.PackQuantB(n, k, 4, blkLen, ComputeInt8, raw[:4], packed, scales, nil, nil); err == nil {
		t.Fatal("short raw buffer succeeded")
	}
}

func TestPackQuantBNoEntriesUnsupported(t *testing.T) {
	e := New(&Dispatch{})
	if got := e.PackedQuantBSize(4, 64, 4, 32, ComputeFp32); got != 0 {
		t.Fatalf("size with empty table = %d", got)
	}
	err := e.PackQuantB(4, 64, 4, 32, ComputeFp32, make([]byte, 128), make([]byte, 128), nil, nil, nil)
	if err == nil {
		t.Fatal("pack with empty table succeeded")
	}
}
