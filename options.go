package ledgercol

import (
	"github.com/hupe1980/ledgercol/exit"
	"github.com/hupe1980/ledgercol/internal/fs"
	"github.com/hupe1980/ledgercol/internal/pagecache"
	"github.com/hupe1980/ledgercol/resource"
)

const (
	// DefaultPageWindowBytes is the default ceiling of mapped bytes per column.
	DefaultPageWindowBytes = 64 << 20
	// DefaultParallelEncodeThreshold is the buffer size, in records, above
	// which flush encodes chunks concurrently.
	DefaultParallelEncodeThreshold = 1 << 16
)

type options struct {
	mode                    Mode
	logger                  *Logger
	metricsCollector        MetricsCollector
	resources               *resource.Controller
	pageWindowBytes         int64
	pageBytes               int
	syncOnFlush             bool
	guard                   *exit.Guard
	parallelEncodeThreshold int
	fs                      fs.FileSystem
}

func defaultOptions() options {
	return options{
		mode:                    ModeCached,
		logger:                  NoopLogger(),
		metricsCollector:        NoopMetricsCollector{},
		pageWindowBytes:         DefaultPageWindowBytes,
		pageBytes:               pagecache.DefaultPageTarget,
		parallelEncodeThreshold: DefaultParallelEncodeThreshold,
		fs:                      fs.Default,
	}
}

// Option configures a Group or a Column. Options given to OpenGroup are
// inherited by every column imported through it; options given to Import
// override them for that column only.
type Option func(*options)

// WithMode selects the read path of a column. Defaults to ModeCached.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := ledgercol.NewJSONLogger(slog.LevelInfo)
//	g, _ := ledgercol.OpenGroup("./data", ledgercol.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetrics configures a metrics collector.
// Pass nil to disable metrics collection.
//
//	metrics := &ledgercol.BasicMetricsCollector{}
//	g, _ := ledgercol.OpenGroup(dir, ledgercol.WithMetrics(metrics))
//	// ...
//	fmt.Println(metrics.GetStats().FlushRecords)
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController shares memory, worker and IO limits. Mapped pages
// of every column are charged against its memory limit, flushes against its
// IO limit, and Group.FlushAll runs at most its worker count in parallel.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithPageWindowBytes sets the ceiling of mapped bytes per cached column.
// It must hold at least one page.
func WithPageWindowBytes(n int64) Option {
	return func(o *options) {
		o.pageWindowBytes = n
	}
}

// WithPageBytes sets the requested page size. The effective size is rounded
// up to a multiple of the OS page size and the record width.
func WithPageBytes(n int) Option {
	return func(o *options) {
		o.pageBytes = n
	}
}

// WithSyncOnFlush makes every flush fsync the data file before returning.
func WithSyncOnFlush(enabled bool) Option {
	return func(o *options) {
		o.syncOnFlush = enabled
	}
}

// WithExitGuard makes Flush and TruncateIfNeeded refuse to start once g
// requested exit, and makes g.Exit wait for running ones.
func WithExitGuard(g *exit.Guard) Option {
	return func(o *options) {
		o.guard = g
	}
}

// WithParallelEncodeThreshold sets the buffer size, in records, above which
// flush encodes in parallel chunks. Zero or negative disables parallel encoding.
func WithParallelEncodeThreshold(n int) Option {
	return func(o *options) {
		o.parallelEncodeThreshold = n
	}
}

// WithFileSystem replaces the file system. Used for fault injection in tests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}
