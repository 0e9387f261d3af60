// Command durationz-plot renders durationz logs as an SVG timeline.
package main

import (
	"errors"
	"flag"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/durationz"
	"github.com/zoobzio/durationz/plot"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := ParseOptions(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	logger := newLogger(stderr, opts.Verbose)
	defer func() { _ = logger.Sync() }()
	if err != nil {
		logger.Error("invalid arguments", zap.Error(err))
		return 2
	}

	trace, err := durationz.LoadFiles(opts.Inputs...)
	if err != nil {
		logger.Error("load durations", zap.Error(err))
		return 1
	}
	logger.Debug("loaded durations",
		zap.Strings("inputs", opts.Inputs),
		zap.Int("intervals", trace.Len()),
		zap.Int("instances", len(trace.Instances)),
	)
	if trace.Len() == 0 {
		logger.Warn("no spans recorded, writing an empty plot", zap.Strings("inputs", opts.Inputs))
	}

	if err := plot.WriteFile(opts.Output, trace, opts.Plot, plot.DefaultLayout()); err != nil {
		logger.Error("write plot", zap.String("output", opts.Output), zap.Error(err))
		return 1
	}
	logger.Info("wrote plot", zap.String("output", opts.Output), zap.Int("intervals", trace.Len()))
	return 0
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	level := zapcore.InfoLevel
	if verbose {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}
