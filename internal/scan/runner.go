package scan

import (
	"log/slog"

	"github.com/san-kum/ringoptics/internal/optics"
	"github.com/san-kum/ringoptics/internal/tracking"
)

// AnalyzerFactory returns a fresh analyzer with its own tracker.
type AnalyzerFactory func(s optics.Settings) *optics.Analyzer

// TrackingFactory builds analyzers on the bundled element tracker.
func TrackingFactory(logger *slog.Logger) AnalyzerFactory {
	return func(s optics.Settings) *optics.Analyzer {
		return optics.NewAnalyzer(
			tracking.New(tracking.WithLogger(logger)),
			optics.WithSettings(s),
			optics.WithLogger(logger),
		)
	}
}

type Runner struct {
	newAnalyzer AnalyzerFactory
	logger      *slog.Logger
	workers     int
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithWorkers bounds the number of concurrent tasks of a sweep.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func NewRunner(f AnalyzerFactory, opts ...Option) *Runner {
	r := &Runner{
		newAnalyzer: f,
		logger:      slog.Default(),
		workers:     4,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "scan"))
	return r
}
