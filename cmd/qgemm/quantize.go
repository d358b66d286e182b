package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/qgemm/internal/logger"
	"github.com/samcharles93/qgemm/pkg/quant"
)

// q4Magic identifies quantized tensor files written by this command.
const q4Magic = 0x34544751 // "QGT4" little-endian

func quantizeCmd() *cli.Command {
	var (
		n, k      int64
		symmetric bool
		inPath    string
		outPath   string
	)

	flags := append(commonGemmFlags(), loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "raw little-endian float32 weights, K*N values row-major", Required: true, Destination: &inPath},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path for the quantized tensor", Required: true, Destination: &outPath},
		&cli.Int64Flag{Name: "n", Usage: "weight matrix columns", Required: true, Destination: &n},
		&cli.Int64Flag{Name: "k", Usage: "weight matrix rows", Required: true, Destination: &k},
		&cli.BoolFlag{Name: "symmetric", Usage: "quantize without zero points", Destination: &symmetric},
	)

	return &cli.Command{
		Name:  "quantize",
		Usage: "Quantize a raw float32 weight matrix to blocked 4-bit",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			raw, err := os.ReadFile(inPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read weights: %v", err), 1)
			}
			want := int(n) * int(k) * 4
			if len(raw) != want {
				return cli.Exit(fmt.Sprintf("error: %s holds %d bytes, want %d for %dx%d float32", inPath, len(raw), want, k, n), 1)
			}

			weights := make([]float32, int(n)*int(k))
			for i := range weights {
				weights[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
			}

			tensor, err := quant.QuantizeQ4(weights, int(n), int(k), int(blkLen), symmetric)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: quantize: %v", err), 1)
			}

			if err := writeQ4Tensor(outPath, tensor); err != nil {
				return cli.Exit(fmt.Sprintf("error: write output: %v", err), 1)
			}

			outSize := 4*6 + len(tensor.Data) + 4*len(tensor.Scales) + len(tensor.ZeroPoints)
			log.Info("quantized",
				"in", humanize.IBytes(uint64(len(raw))),
				"out", humanize.IBytes(uint64(outSize)),
				"ratio", fmt.Sprintf("%.2fx", float64(len(raw))/float64(outSize)),
				"blklen", blkLen, "symmetric", symmetric)
			return nil
		},
	}
}

func writeQ4Tensor(path string, t *quant.Q4Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	flags := uint32(0)
	if t.ZeroPoints == nil {
		flags |= 1
	}
	for _, v := range []uint32{q4Magic, uint32(t.N), uint32(t.K), uint32(t.BlkLen), flags, uint32(len(t.Data))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, t.Scales); err != nil {
		return err
	}
	if len(t.ZeroPoints) > 0 {
		if _, err := w.Write(t.ZeroPoints); err != nil {
			return err
		}
	}
	if _, err := w.Write(t.Data); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
