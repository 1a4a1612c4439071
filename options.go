package ngstate

import "github.com/goliatone/go-ngstate/pkg/activity"

// Option configures a Syncer, Reducer or Store.
type Option func(*config)

type config struct {
	source   LiveSource
	syncer   *Syncer
	logger   EventLogger
	metrics  Metrics
	defaults *Document
	emitter  *activity.Emitter
	actor    string
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = loggerOrNoop(cfg.logger)
	cfg.metrics = metricsOrNoop(cfg.metrics)
	return cfg
}

// WithLiveSource sets the accessor used to read the viewer's live state.
func WithLiveSource(source LiveSource) Option {
	return func(cfg *config) {
		cfg.source = source
	}
}

// WithSyncer shares an existing Syncer instead of building one. The live
// source option is ignored when a Syncer is supplied.
func WithSyncer(syncer *Syncer) Option {
	return func(cfg *config) {
		cfg.syncer = syncer
	}
}

// WithLogger attaches an event logger. nil restores the no-op logger.
func WithLogger(logger EventLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = metrics
	}
}

// WithDefaults replaces the document used on start and on reset.
func WithDefaults(doc Document) Option {
	return func(cfg *config) {
		copied := doc.Clone()
		cfg.defaults = &copied
	}
}

// WithActivity emits an activity event for every dispatch that changed the
// document. actor is recorded as the event's actor id.
func WithActivity(emitter *activity.Emitter, actor string) Option {
	return func(cfg *config) {
		cfg.emitter = emitter
		cfg.actor = actor
	}
}

func (cfg config) defaultDocument() Document {
	if cfg.defaults != nil {
		return cfg.defaults.Clone()
	}
	return DefaultDocument()
}
