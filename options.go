package durationz

import (
	"io"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// config collects what the options set. Registry reads the clock, logger
// and metrics; Session reads everything.
type config struct {
	clock         clockz.Clock
	logger        *zap.Logger
	metrics       *Metrics
	writer        io.Writer
	durationsFile string
	recorderOpts  []RecorderOption
	collect       bool
	counterBits   uint
	onClose       []func(*Trace) error
}

func newConfig(opts []Option) config {
	cfg := config{
		clock:       clockz.RealClock,
		logger:      zap.NewNop(),
		counterBits: defaultCounterBits,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Registry or a Session.
type Option func(*config)

// WithClock sets the clock used for all timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics reports capture statistics to m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithCounterBits sets how many low bits of a SpanID count spans within one
// task; the rest number the task. A narrow counter wraps sooner, bumping the
// generation of reused ids. Widths outside 1..48 keep the default of 40.
func WithCounterBits(bits uint) Option {
	return func(c *config) {
		if bits >= 1 && bits <= maxCounterBits {
			c.counterBits = bits
		}
	}
}

// WithDurationsFile records every interval to the ndjson file at path.
// The file is flushed and closed by Session.Close.
func WithDurationsFile(path string) Option {
	return func(c *config) {
		c.durationsFile = path
	}
}

// WithWriter records every interval to w as ndjson.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// WithRecorderOptions passes opts to the session's recorder.
func WithRecorderOptions(opts ...RecorderOption) Option {
	return func(c *config) {
		c.recorderOpts = append(c.recorderOpts, opts...)
	}
}

// WithCollector keeps every interval in memory, see Session.Intervals.
func WithCollector() Option {
	return func(c *config) {
		c.collect = true
	}
}

// WithOnClose runs fn with the collected trace when the session closes,
// after the recorder has been flushed. It implies WithCollector.
func WithOnClose(fn func(*Trace) error) Option {
	return func(c *config) {
		if fn != nil {
			c.onClose = append(c.onClose, fn)
			c.collect = true
		}
	}
}
