package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/qgemm/internal/logger"
	"github.com/samcharles93/qgemm/pkg/qgemm"
)

var (
	blkLen    int64
	compute   string
	threads   int64
	logLevel  string
	logFormat string
)

func commonGemmFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "blklen",
			Aliases:     []string{"b"},
			Usage:       "quantization block length (16, 32, 64, 128, 256)",
			Value:       32,
			Destination: &blkLen,
		},
		&cli.StringFlag{
			Name:        "compute",
			Usage:       "accumulation type (fp32, int8)",
			Value:       "int8",
			Destination: &compute,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Aliases:     []string{"t"},
			Usage:       "worker pool size (0 = GOMAXPROCS)",
			Destination: &threads,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}

func withLogger(ctx context.Context) context.Context {
	level := logger.ParseLevel(logLevel)
	var log logger.Logger
	switch logFormat {
	case "json":
		log = logger.JSON(os.Stderr, level)
	case "text":
		log = logger.Default()
	default:
		log = logger.Pretty(os.Stderr, level)
	}
	return logger.WithContext(ctx, log)
}

func parseCompute(s string) (qgemm.ComputeType, error) {
	switch s {
	case "fp32":
		return qgemm.ComputeFp32, nil
	case "int8":
		return qgemm.ComputeInt8, nil
	default:
		return qgemm.ComputeUndef, fmt.Errorf("unknown compute type %q", s)
	}
}
