package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/durationz/plot"
)

// FileConfig is the YAML form of the plot options. Empty values keep the
// defaults.
type FileConfig struct {
	MultiLane             bool     `yaml:"multi_lane"`
	OutputPath            string   `yaml:"output_path"`
	InlineField           bool     `yaml:"inline_field"`
	ColorMainActive       string   `yaml:"color_main_active"`
	ColorWorkerPoolActive string   `yaml:"color_worker_pool_active"`
	ColorIdleBackground   string   `yaml:"color_idle_background"`
	MinLength             float64  `yaml:"min_length"`
	Remove                []string `yaml:"remove"`
	Saturation            int      `yaml:"saturation"`
}

// LoadFileConfig reads the YAML file at path. A missing file yields an empty
// configuration.
func LoadFileConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

// apply overlays the non-empty values of fc onto opts.
func (fc FileConfig) apply(opts *Options) error {
	if fc.MultiLane {
		opts.Plot.MultiLane = true
	}
	if fc.InlineField {
		opts.Plot.InlineField = true
	}
	if fc.OutputPath != "" {
		opts.Output = fc.OutputPath
	}
	if fc.MinLength < 0 {
		return errors.New("min_length must not be negative")
	}
	if fc.MinLength > 0 {
		opts.Plot.MinLength = secondsToDuration(fc.MinLength)
	}
	if len(fc.Remove) > 0 {
		opts.Plot.Remove = append([]string(nil), fc.Remove...)
	}
	if fc.Saturation < 0 {
		return errors.New("saturation must not be negative")
	}
	if fc.Saturation > 0 {
		opts.Plot.Saturation = fc.Saturation
	}
	colors := []struct {
		value string
		into  *colorFlag
	}{
		{fc.ColorMainActive, &colorFlag{c: &opts.Plot.ColorMainActive}},
		{fc.ColorWorkerPoolActive, &colorFlag{c: &opts.Plot.ColorWorkerPoolActive}},
		{fc.ColorIdleBackground, &colorFlag{c: &opts.Plot.ColorIdleBackground}},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if err := c.into.Set(c.value); err != nil {
			return err
		}
	}
	return nil
}

// Options is everything a run needs.
type Options struct {
	Inputs  []string
	Output  string
	Verbose bool
	Plot    plot.Config
}

// ParseOptions reads the command line. The config file is applied first and
// explicitly set flags override it.
func ParseOptions(args []string, output io.Writer) (Options, error) {
	fs := flag.NewFlagSet("durationz-plot", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: durationz-plot [flags] <durations.ndjson>...\n")
		fs.PrintDefaults()
	}

	defaults := plot.DefaultConfig()
	var (
		configPath  = fs.String("config", "", "path to configuration file (YAML)")
		outputPath  = fs.String("output", "", "svg file to write (default: first input with .svg extension)")
		multiLane   = fs.Bool("multi-lane", false, "one lane per span instance instead of per name")
		inlineField = fs.Bool("inline-field", false, "draw the value of single-field spans inline")
		minLength   = fs.Float64("min-length", 0, "remove spans shorter than this, in seconds")
		saturation  = fs.Int("saturation", defaults.Saturation, "concurrency at which colors stop darkening")
		verbose     = fs.Bool("verbose", false, "log debug output")
		remove      stringList
		colorMain   = colorFlag{c: &defaults.ColorMainActive}
		colorWorker = colorFlag{c: &defaults.ColorWorkerPoolActive}
		colorIdle   = colorFlag{c: &defaults.ColorIdleBackground}
	)
	fs.Var(&remove, "remove", "remove spans with this name (repeatable)")
	fs.Var(&colorMain, "color-main-active", "active region color on the main task, #RRGGBB[AA]")
	fs.Var(&colorWorker, "color-worker-pool-active", "active region color of offloaded work, #RRGGBB[AA]")
	fs.Var(&colorIdle, "color-idle-background", "open lifetime color, #RRGGBB[AA]")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return Options{}, errors.New("no input file given")
	}

	opts := Options{
		Inputs: fs.Args(),
		Plot:   plot.DefaultConfig(),
	}
	fc, err := LoadFileConfig(*configPath)
	if err != nil {
		return Options{}, err
	}
	if err := fc.apply(&opts); err != nil {
		return Options{}, fmt.Errorf("config %s: %w", *configPath, err)
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			opts.Output = *outputPath
		case "multi-lane":
			opts.Plot.MultiLane = *multiLane
		case "inline-field":
			opts.Plot.InlineField = *inlineField
		case "min-length":
			if *minLength < 0 {
				flagErr = errors.New("-min-length must not be negative")
			}
			opts.Plot.MinLength = secondsToDuration(*minLength)
		case "saturation":
			opts.Plot.Saturation = *saturation
		case "verbose":
			opts.Verbose = *verbose
		case "remove":
			opts.Plot.Remove = []string(remove)
		case "color-main-active":
			opts.Plot.ColorMainActive = *colorMain.c
		case "color-worker-pool-active":
			opts.Plot.ColorWorkerPoolActive = *colorWorker.c
		case "color-idle-background":
			opts.Plot.ColorIdleBackground = *colorIdle.c
		}
	})
	if flagErr != nil {
		return Options{}, flagErr
	}

	if opts.Output == "" {
		first := opts.Inputs[0]
		opts.Output = strings.TrimSuffix(first, filepath.Ext(first)) + ".svg"
	}
	return opts, nil
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
