package ngstate

import (
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-ngstate/internal/hydrate"
)

// LiveSource reads the viewer's current document. The viewer is mutated by
// direct user interaction, so its state drifts from the canonical tree.
type LiveSource interface {
	LiveState() (map[string]any, error)
}

// LiveSourceFunc adapts a function to LiveSource.
type LiveSourceFunc func() (map[string]any, error)

// LiveState implements LiveSource.
func (f LiveSourceFunc) LiveState() (map[string]any, error) {
	if f == nil {
		return nil, ErrNoLiveSource
	}
	return f()
}

// Syncer absorbs viewer drift into the canonical state. It owns the dirty
// flag: collaborators call MarkDirty(true) when the viewer changed on its
// own, and the next ImportIfNeeded pulls the live document exactly once.
// A Syncer is safe for concurrent use.
type Syncer struct {
	dirty   atomic.Bool
	source  LiveSource
	decoder *hydrate.Decoder[Document]
	logger  EventLogger
	metrics Metrics
}

// NewSyncer builds a Syncer from WithLiveSource, WithLogger and WithMetrics.
func NewSyncer(opts ...Option) *Syncer {
	cfg := applyOptions(opts)
	return newSyncer(cfg)
}

func newSyncer(cfg config) *Syncer {
	return &Syncer{
		source:  cfg.source,
		decoder: hydrate.NewDecoder(hydrate.WithPreHook[Document](hydrate.DropNullEntries("selection", "layers"))),
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

// MarkDirty records whether the viewer's live state has diverged.
func (s *Syncer) MarkDirty(needed bool) {
	if s == nil {
		return
	}
	s.dirty.Store(needed)
}

// Dirty reports whether an import is pending.
func (s *Syncer) Dirty() bool {
	return s != nil && s.dirty.Load()
}

// ImportIfNeeded returns state unchanged unless the dirty flag is set. When
// set, the flag is cleared before the live document is read, repaired and
// swapped in. A failed read leaves state untouched and re-arms the flag.
func (s *Syncer) ImportIfNeeded(state ViewerState) ViewerState {
	if s == nil || !s.dirty.CompareAndSwap(true, false) {
		return state
	}

	doc, err := s.fetch()
	if err != nil {
		s.dirty.Store(true)
		s.metrics.ImportFailed()
		s.logger.LogEvent(LogEvent{Kind: EventImportFailed, Err: err})
		return state
	}

	doc, report := RepairDocument(doc, state.NgState)
	if report.Repaired() {
		s.logger.LogEvent(LogEvent{Kind: EventRepaired, Detail: describeRepair(report)})
	}
	s.metrics.Imported(report.Repaired())
	s.logger.LogEvent(LogEvent{Kind: EventImported, Detail: "layers=" + layerNames(doc.Layers)})
	return ViewerState{NgState: doc}
}

func (s *Syncer) fetch() (Document, error) {
	if s.source == nil {
		return Document{}, ErrNoLiveSource
	}
	raw, err := s.source.LiveState()
	if err != nil {
		return Document{}, err
	}
	return s.decoder.Decode(hydrate.Context{Origin: "viewer"}, raw)
}

func describeRepair(report RepairReport) string {
	var parts []string
	if report.RestoredDimensions {
		parts = append(parts, "restored dimensions")
	}
	if len(report.DroppedScales) > 0 {
		parts = append(parts, "dropped "+strings.Join(report.DroppedScales, ","))
	}
	if len(report.DroppedSelections) > 0 {
		parts = append(parts, "dropped selection for "+strings.Join(report.DroppedSelections, ","))
	}
	return strings.Join(parts, "; ")
}

func layerNames(layers []Layer) string {
	names := make([]string, len(layers))
	for i := range layers {
		names[i] = layers[i].Name
	}
	return strings.Join(names, ",")
}
