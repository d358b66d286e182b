package qgemm

import (
	"testing"
	"unsafe"
)

func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestWorkspaceSizeFp32IsZero(t *testing.T) {
	e := New(nil)
	if got := e.WorkspaceSize(8, 16, 128, 2, 4, 32, ComputeFp32); got != 0 {
		t.Fatalf("fp32 workspace = %d, want 0", got)
	}
	if got := e.WorkspaceSize(8, 16, 128, 2, 4, 32, ComputeUndef); got != 0 {
		t.Fatalf("undef workspace = %d, want 0", got)
	}
}

func TestWorkspaceSizeInt8(t *testing.T) {
	e := New(nil)

	m, k, blkLen := 4, 128, 32
	blockCountK := BlockCountK(k, blkLen)
	perGemm := m * blockCountK * (Q8BlkSize(blkLen) + 4)

	got := e.WorkspaceSize(m, 16, k, 1, 4, blkLen, ComputeInt8)
	want := divRoundUp(perGemm, Q8BlkAlignment)*Q8BlkAlignment + Q8BlkAlignment - 1
	if got != want {
		t.Fatalf("workspace = %d, want %d", got, want)
	}

	// Growing any dimension never shrinks the requirement.
	if e.WorkspaceSize(m+1, 16, k, 1, 4, blkLen, ComputeInt8) < got {
		t.Error("workspace shrank when m grew")
	}
	if e.WorkspaceSize(m, 16, k+blkLen, 1, 4, blkLen, ComputeInt8) < got {
		t.Error("workspace shrank when k grew")
	}
	if e.WorkspaceSize(m, 16, k, 2, 4, blkLen, ComputeInt8) < got {
		t.Error("workspace shrank when batch grew")
	}
}

func TestAlignSlice(t *testing.T) {
	raw := make([]byte, 256)
	for off := 0; off < 8; off++ {
		got := alignSlice(raw[off:], 64)
		if addr := sliceAddr(got); addr%64 != 0 {
			t.Fatalf("offset %d: base %#x not 64-byte aligned", off, addr)
		}
		if len(raw[off:])-len(got) >= 64 {
			t.Fatalf("offset %d: discarded a full alignment quantum", off)
		}
	}
}

func TestQuantAWorkspaceLayouts(t *testing.T) {
	m, blockCountK, blkLen := 3, 4, 32
	size := perGemmWorkspaceSize(variant4BitInt8, m, blockCountK*blkLen, blkLen)
	ws := alignSlice(make([]byte, size+Q8BlkAlignment), Q8BlkAlignment)

	soa := newQuantAWorkspace(ws, m, blockCountK, blkLen, true)
	if len(soa.data) != m*blockCountK*blkLen {
		t.Fatalf("soa data len = %d", len(soa.data))
	}
	if len(soa.scales) != m*blockCountK || len(soa.blkSum) != m*blockCountK {
		t.Fatalf("soa scale/blkSum lens = %d/%d", len(soa.scales), len(soa.blkSum))
	}
	if got, want := soa.ldaElems(), blockCountK*blkLen; got != want {
		t.Fatalf("soa lda = %d, want %d", got, want)
	}

	il := newQuantAWorkspace(ws, m, blockCountK, blkLen, false)
	if len(il.blob) != m*blockCountK*Q8BlkSize(blkLen) {
		t.Fatalf("interleaved blob len = %d", len(il.blob))
	}
	if got, want := il.ldaElems(), blockCountK*Q8BlkSize(blkLen); got != want {
		t.Fatalf("interleaved lda = %d, want %d", got, want)
	}
}

func TestQ8BlkScaleRoundTrip(t *testing.T) {
	blk := make([]byte, Q8BlkSize(32))
	PutQ8BlkScale(blk, 0.03125)
	if got := Q8BlkScale(blk); got != 0.03125 {
		t.Fatalf("scale round trip = %v", got)
	}
	if len(Q8BlkData(blk, 32)) != 32 {
		t.Fatalf("data segment len = %d", len(Q8BlkData(blk, 32)))
	}
}
