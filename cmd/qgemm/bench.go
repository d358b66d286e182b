package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/qgemm/internal/logger"
	"github.com/samcharles93/qgemm/pkg/kernels"
	"github.com/samcharles93/qgemm/pkg/parallel"
	"github.com/samcharles93/qgemm/pkg/qgemm"
	"github.com/samcharles93/qgemm/pkg/quant"
)

type benchShape struct {
	M       int    `yaml:"m" json:"m"`
	N       int    `yaml:"n" json:"n"`
	K       int    `yaml:"k" json:"k"`
	Batch   int    `yaml:"batch" json:"batch"`
	BlkLen  int    `yaml:"blklen" json:"blklen"`
	Compute string `yaml:"compute" json:"compute"`
}

type benchSuite struct {
	Shapes []benchShape `yaml:"shapes"`
}

type benchResult struct {
	benchShape
	GFLOPS    float64 `json:"gflops"`
	WallMs    float64 `json:"wall_ms"`
	CPUMs     float64 `json:"cpu_ms"`
	PackBytes uint64  `json:"pack_bytes"`
}

func benchCmd() *cli.Command {
	var (
		m, n, k, batch int64
		warmup, runs   int64
		suitePath      string
		asJSON         bool
	)

	flags := append(commonGemmFlags(), loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{Name: "m", Value: 1, Usage: "output rows", Destination: &m},
		&cli.Int64Flag{Name: "n", Value: 4096, Usage: "output columns", Destination: &n},
		&cli.Int64Flag{Name: "k", Value: 4096, Usage: "reduction length", Destination: &k},
		&cli.Int64Flag{Name: "batch", Value: 1, Usage: "independent gemms per call", Destination: &batch},
		&cli.Int64Flag{Name: "warmup", Value: 2, Usage: "warmup iterations per shape", Destination: &warmup},
		&cli.Int64Flag{Name: "runs", Value: 10, Usage: "timed iterations per shape", Destination: &runs},
		&cli.StringFlag{Name: "suite", Usage: "YAML file with a list of shapes to sweep", Destination: &suitePath},
		&cli.BoolFlag{Name: "json", Usage: "emit results as JSON", Destination: &asJSON},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark quantized GEMM throughput",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyBenchConfig(cmd, LoadConfig(), &warmup, &runs)
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			shapes := []benchShape{{
				M: int(m), N: int(n), K: int(k), Batch: int(batch),
				BlkLen: int(blkLen), Compute: compute,
			}}
			if suitePath != "" {
				data, err := os.ReadFile(suitePath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read suite: %v", err), 1)
				}
				var suite benchSuite
				if err := yaml.Unmarshal(data, &suite); err != nil {
					return cli.Exit(fmt.Sprintf("error: parse suite: %v", err), 1)
				}
				if len(suite.Shapes) == 0 {
					return cli.Exit("error: suite lists no shapes", 1)
				}
				shapes = suite.Shapes
			}

			engine := qgemm.New(kernels.Detect())
			pool := parallel.New(int(threads))
			log.Info("benchmark starting",
				"shapes", len(shapes), "threads", pool.Size(),
				"gomaxprocs", runtime.GOMAXPROCS(0), "avx2", kernels.HasAVX2())

			results := make([]benchResult, 0, len(shapes))
			for _, s := range shapes {
				if s.Batch == 0 {
					s.Batch = 1
				}
				if s.BlkLen == 0 {
					s.BlkLen = int(blkLen)
				}
				if s.Compute == "" {
					s.Compute = compute
				}
				r, err := benchOne(engine, pool, s, int(warmup), int(runs), asJSON)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: shape %+v: %v", s, err), 1)
				}
				results = append(results, r)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			fmt.Printf("\n%-24s %-6s %10s %10s %10s %10s\n",
				"shape", "ct", "gflop/s", "wall ms", "cpu ms", "packed")
			for _, r := range results {
				fmt.Printf("%-24s %-6s %10.2f %10.3f %10.3f %10s\n",
					fmt.Sprintf("%dx%dx%dx%d/%d", r.Batch, r.M, r.N, r.K, r.BlkLen),
					r.Compute, r.GFLOPS, r.WallMs, r.CPUMs,
					humanize.IBytes(r.PackBytes))
			}
			return nil
		},
	}
}

func benchOne(engine *qgemm.Engine, pool *parallel.Pool, s benchShape, warmup, runs int, quiet bool) (benchResult, error) {
	ct, err := parseCompute(s.Compute)
	if err != nil {
		return benchResult{}, err
	}
	if !engine.IsAvailable(4, s.BlkLen, ct) {
		return benchResult{}, fmt.Errorf("configuration unavailable")
	}

	rng := rand.New(rand.NewSource(1))
	weights := make([]float32, s.K*s.N)
	for i := range weights {
		weights[i] = rng.Float32()*2 - 1
	}
	tensor, err := quant.QuantizeQ4(weights, s.N, s.K, s.BlkLen, false)
	if err != nil {
		return benchResult{}, err
	}

	packed := make([]byte, engine.PackedQuantBSize(s.N, s.K, 4, s.BlkLen, ct))
	var scales []float32
	var zp []byte
	if ct == qgemm.ComputeInt8 {
		scales, zp = tensor.Scales, tensor.ZeroPoints
	}
	if err := engine.PackQuantB(s.N, s.K, 4, s.BlkLen, ct, tensor.Data, packed, scales, zp, pool); err != nil {
		return benchResult{}, err
	}

	a := make([]float32, s.M*s.K)
	for i := range a {
		a[i] = rng.Float32()*2 - 1
	}
	params := make([]qgemm.DataParams, s.Batch)
	for i := range params {
		params[i] = qgemm.DataParams{
			A:               a,
			PackedQuantB:    packed,
			QuantBScale:     tensor.Scales,
			QuantBZeroPoint: tensor.ZeroPoints,
			C:               make([]float32, s.M*s.N),
		}
	}
	var ws []byte
	if size := engine.WorkspaceSize(s.M, s.N, s.K, s.Batch, 4, s.BlkLen, ct); size > 0 {
		ws = make([]byte, size)
	}

	run := func() error {
		return engine.GemmBatch(s.M, s.N, s.K, s.Batch, 4, s.BlkLen, ct, params, ws, pool)
	}

	for i := 0; i < warmup; i++ {
		if err := run(); err != nil {
			return benchResult{}, err
		}
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.Default(int64(runs), fmt.Sprintf("%dx%dx%d %s", s.M, s.N, s.K, s.Compute))
	}

	wallStart := time.Now()
	cpuStart := cpuTimeNow()
	for i := 0; i < runs; i++ {
		if err := run(); err != nil {
			return benchResult{}, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	wall := time.Since(wallStart)
	cpu := cpuTimeNow() - cpuStart

	flops := 2 * float64(s.M) * float64(s.N) * float64(s.K) * float64(s.Batch) * float64(runs)
	return benchResult{
		benchShape: s,
		GFLOPS:     flops / wall.Seconds() / 1e9,
		WallMs:     float64(wall.Microseconds()) / 1000 / float64(runs),
		CPUMs:      float64(cpu.Microseconds()) / 1000 / float64(runs),
		PackBytes:  uint64(len(packed)),
	}, nil
}
