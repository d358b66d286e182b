package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/qgemm/pkg/kernels"
	"github.com/samcharles93/qgemm/pkg/qgemm"
)

type probeReport struct {
	AVX2     bool          `json:"avx2"`
	Variants []probeEntry  `json:"variants"`
	Sample   probeSample   `json:"sample"`
	Entries  probeDispatch `json:"dispatch"`
}

type probeEntry struct {
	BlkLen    int    `json:"blklen"`
	Compute   string `json:"compute"`
	Available bool   `json:"available"`
}

type probeSample struct {
	M, N, K       int    `json:"-"`
	Shape         string `json:"shape"`
	PackedSize    int    `json:"packed_bytes"`
	WorkspaceSize int    `json:"workspace_bytes"`
}

type probeDispatch struct {
	Pack        bool `json:"pack"`
	PackBlkSum  bool `json:"pack_blksum"`
	GemmM1Fp32  bool `json:"gemm_m1_fp32"`
	DequantFp32 bool `json:"dequant_fp32"`
	GemmM1Int8  bool `json:"gemm_m1_int8"`
	GemmInt8    bool `json:"gemm_int8"`
	QuantizeA   bool `json:"quantize_a"`
	QuantizeASA bool `json:"quantize_a_soa"`
	GemmFloat   bool `json:"gemm_float"`
}

func probeCmd() *cli.Command {
	var asJSON bool

	flags := append(loggingFlags(),
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "emit the report as JSON",
			Destination: &asJSON,
		},
	)

	return &cli.Command{
		Name:  "probe",
		Usage: "Report kernel availability and buffer sizes on this machine",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			d := kernels.Detect()
			e := qgemm.New(d)

			report := probeReport{
				AVX2: kernels.HasAVX2(),
				Entries: probeDispatch{
					Pack:        d.Q4Pack != nil,
					PackBlkSum:  d.Q4PackWithBlkSum != nil,
					GemmM1Fp32:  d.Q4GemmM1Fp32 != nil,
					DequantFp32: d.Q4DequantBFp32 != nil,
					GemmM1Int8:  d.Q4GemmM1Int8 != nil,
					GemmInt8:    d.Q4GemmInt8 != nil,
					QuantizeA:   d.QuantizeARowInt8 != nil,
					QuantizeASA: d.QuantizeARowInt8SoA != nil,
					GemmFloat:   d.GemmFloat != nil,
				},
			}

			for _, bl := range []int{16, 32, 64, 128, 256} {
				for _, ct := range []qgemm.ComputeType{qgemm.ComputeFp32, qgemm.ComputeInt8} {
					report.Variants = append(report.Variants, probeEntry{
						BlkLen:    bl,
						Compute:   ct.String(),
						Available: e.IsAvailable(4, bl, ct),
					})
				}
			}

			m, n, k := 1, 4096, 4096
			report.Sample = probeSample{
				M: m, N: n, K: k,
				Shape:         fmt.Sprintf("%dx%dx%d blklen 32 int8", m, n, k),
				PackedSize:    e.PackedQuantBSize(n, k, 4, 32, qgemm.ComputeInt8),
				WorkspaceSize: e.WorkspaceSize(m, n, k, 1, 4, 32, qgemm.ComputeInt8),
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Printf("AVX2: %v\n\n", report.AVX2)
			fmt.Printf("%-8s %-8s %s\n", "blklen", "compute", "available")
			for _, v := range report.Variants {
				fmt.Printf("%-8d %-8s %v\n", v.BlkLen, v.Compute, v.Available)
			}
			fmt.Printf("\nSample %s:\n", report.Sample.Shape)
			fmt.Printf("  packed weights: %s\n", humanize.IBytes(uint64(report.Sample.PackedSize)))
			fmt.Printf("  workspace:      %s\n", humanize.IBytes(uint64(report.Sample.WorkspaceSize)))
			return nil
		},
	}
}
