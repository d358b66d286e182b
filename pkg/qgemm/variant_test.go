package qgemm

import "testing"

func TestResolveVariant(t *testing.T) {
	cases := []struct {
		bw, blkLen int
		compute    ComputeType
		want       variant
	}{
		{4, 16, ComputeFp32, variant4BitFp32},
		{4, 32, ComputeFp32, variant4BitFp32},
		{4, 256, ComputeInt8, variant4BitInt8},
		{4, 64, ComputeUndef, variant4BitFp32},
		{4, 48, ComputeFp32, variantInvalid},
		{4, 8, ComputeInt8, variantInvalid},
		{3, 32, ComputeFp32, variantInvalid},
		{8, 32, ComputeInt8, variantInvalid},
	}
	for _, c := range cases {
		if got := resolveVariant(c.bw, c.blkLen, c.compute); got != c.want {
			t.Errorf("resolveVariant(%d, %d, %v) = %v, want %v",
				c.bw, c.blkLen, c.compute, got, c.want)
		}
	}
}

func TestUnsupportedConfigIsInert(t *testing.T) {
	e := New(nil)
	if e.IsAvailable(3, 32, ComputeFp32) {
		t.Fatal("3-bit config reported available")
	}
	if got := e.PackedQuantBSize(16, 64, 3, 32, ComputeFp32); got != 0 {
		t.Fatalf("PackedQuantBSize = %d, want 0", got)
	}
	if got := e.WorkspaceSize(4, 16, 64, 1, 3, 32, ComputeInt8); got != 0 {
		t.Fatalf("WorkspaceSize = %d, want 0", got)
	}
}

func TestEmptyDispatchNotAvailable(t *testing.T) {
	e := New(&Dispatch{})
	for _, ct := range []ComputeType{ComputeFp32, ComputeInt8} {
		if e.IsAvailable(4, 32, ct) {
			t.Errorf("empty dispatch reported %v available", ct)
		}
	}
}

func TestComputeTypeString(t *testing.T) {
	if ComputeFp32.String() != "fp32" || ComputeInt8.String() != "int8" {
		t.Fatalf("unexpected names %q %q", ComputeFp32, ComputeInt8)
	}
}
