package lexgo

import (
	"log/slog"

	"github.com/hupe1980/lexgo/intern"
	"github.com/hupe1980/lexgo/resource"
)

const (
	// defaultOOVMinLength: strings shorter than this are always stored in the
	// permanent table, even for scratch-arena lookups.
	defaultOOVMinLength = 3
	// defaultOOVWarmup: until the permanent table holds this many entries,
	// every lookup is stored permanently.
	defaultOOVWarmup = 10000
)

type options struct {
	logger         *Logger
	metrics        MetricsCollector
	strings        intern.StringStore
	controller     *resource.Controller
	arenaChunkSize int
	oovMinLength   int
	oovWarmup      int
}

// Option configures Vocab construction.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithStringStore supplies an external string store. The vocabulary interns
// its reserved symbols into it at construction time. The default is a fresh
// in-memory intern.Table.
func WithStringStore(ss intern.StringStore) Option {
	return func(o *options) {
		o.strings = ss
	}
}

// WithResourceController attaches a memory/IO budget. The permanent arena
// reserves chunks against the memory budget; bulk loads respect the IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithArenaChunkSize sets the chunk size of the permanent arena.
func WithArenaChunkSize(size int) Option {
	return func(o *options) {
		o.arenaChunkSize = size
	}
}

// WithOOVMinLength overrides the minimum string length for out-of-vocabulary
// placement during scratch-arena lookups.
func WithOOVMinLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.oovMinLength = n
		}
	}
}

// WithOOVWarmupSize overrides the permanent-table size below which every
// lookup is stored permanently.
func WithOOVWarmupSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.oovWarmup = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:       NoopLogger(),
		metrics:      NoopMetricsCollector{},
		oovMinLength: defaultOOVMinLength,
		oovWarmup:    defaultOOVWarmup,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.strings == nil {
		o.strings = intern.NewTable()
	}
	return o
}
