package ngstate

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestImportIfNeededCleanReturnsState(t *testing.T) {
	source := &countingSource{state: loadLiveState(t, "live_complete.json")}
	syncer := NewSyncer(WithLiveSource(source))
	state := DefaultViewerState()

	got := syncer.ImportIfNeeded(state)
	if source.calls.Load() != 0 {
		t.Fatalf("clean syncer must not read the viewer")
	}
	if !reflect.DeepEqual(got, state) {
		t.Fatalf("clean import changed the state")
	}
}

func TestImportIfNeededReadsOnce(t *testing.T) {
	source := &countingSource{state: loadLiveState(t, "live_complete.json")}
	metrics := newRecordingMetrics()
	syncer := NewSyncer(WithLiveSource(source), WithMetrics(metrics))
	syncer.MarkDirty(true)

	first := syncer.ImportIfNeeded(DefaultViewerState())
	if syncer.Dirty() {
		t.Fatalf("flag must be cleared after import")
	}
	second := syncer.ImportIfNeeded(first)

	if source.calls.Load() != 1 {
		t.Fatalf("expected one read, got %d", source.calls.Load())
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second import must be a no-op")
	}
	if first.NgState.Dimensions["x"].Scale != 4e-9 {
		t.Fatalf("expected live dimensions, got %+v", first.NgState.Dimensions)
	}
	if *first.NgState.ProjectionScale != 4096 {
		t.Fatalf("complete documents keep their scales")
	}
	if metrics.imports != 1 || metrics.repaired != 0 {
		t.Fatalf("unexpected import metrics %+v", metrics)
	}
}

func TestImportRepairsMissingDimensions(t *testing.T) {
	source := &countingSource{state: loadLiveState(t, "live_missing_dimensions.json")}
	logger := &recordingLogger{}
	metrics := newRecordingMetrics()
	syncer := NewSyncer(WithLiveSource(source), WithLogger(logger), WithMetrics(metrics))
	syncer.MarkDirty(true)

	previous := DefaultViewerState()
	got := syncer.ImportIfNeeded(previous).NgState

	if !reflect.DeepEqual(got.Dimensions, previous.NgState.Dimensions) {
		t.Fatalf("expected previous dimensions, got %+v", got.Dimensions)
	}
	if got.CrossSectionScale != nil || got.ProjectionScale != nil {
		t.Fatalf("scales must be dropped with restored dimensions")
	}
	if !reflect.DeepEqual(got.Position, []float64{100, 200, 300}) {
		t.Fatalf("expected live position, got %v", got.Position)
	}
	if _, ok := got.Selection.Layers["segmentation"]; ok {
		t.Fatalf("null selection entry must be removed")
	}
	if got.Selection.Layers["annotations"].AnnotationID != "ann-1" {
		t.Fatalf("valid selection entry lost")
	}
	if got.Selection.Extra["visible"] != true {
		t.Fatalf("unknown selection keys must survive")
	}
	if got.Extra["crossSectionBackgroundColor"] != "#000000" {
		t.Fatalf("unknown document keys must survive")
	}
	if got.Layers[0].Extra["opacity"] != 0.8 {
		t.Fatalf("unknown layer keys must survive")
	}
	if !reflect.DeepEqual(got.Layers[1].Segments, []SegmentID{7, 9}) {
		t.Fatalf("unexpected segments %v", got.Layers[1].Segments)
	}

	event, ok := logger.find(EventRepaired)
	if !ok || event.Detail == "" {
		t.Fatalf("expected repair event, got %v", logger.kinds())
	}
	if metrics.repaired != 1 {
		t.Fatalf("expected repaired import metric")
	}
	if previous.NgState.CrossSectionScale == nil {
		t.Fatalf("previous state was modified")
	}
}

func TestImportFailureKeepsStateAndRearms(t *testing.T) {
	source := &countingSource{err: errors.New("viewer detached")}
	logger := &recordingLogger{}
	metrics := newRecordingMetrics()
	syncer := NewSyncer(WithLiveSource(source), WithLogger(logger), WithMetrics(metrics))
	syncer.MarkDirty(true)

	state := DefaultViewerState()
	got := syncer.ImportIfNeeded(state)
	if !reflect.DeepEqual(got, state) {
		t.Fatalf("failed import must keep the state")
	}
	if !syncer.Dirty() {
		t.Fatalf("failed import must re-arm the flag")
	}
	if metrics.importErrors != 1 {
		t.Fatalf("expected import error metric")
	}
	if event, ok := logger.find(EventImportFailed); !ok || event.Err == nil {
		t.Fatalf("expected failure event, got %v", logger.kinds())
	}

	source.err = nil
	source.state = loadLiveState(t, "live_complete.json")
	if got := syncer.ImportIfNeeded(state); got.NgState.Layout != "4panel" || len(got.NgState.Layers) != 2 {
		t.Fatalf("retry should import, got %+v", got.NgState)
	}
	if source.calls.Load() != 2 {
		t.Fatalf("expected retry read, got %d", source.calls.Load())
	}
}

func TestImportWithoutSource(t *testing.T) {
	logger := &recordingLogger{}
	syncer := NewSyncer(WithLogger(logger))
	syncer.MarkDirty(true)

	syncer.ImportIfNeeded(DefaultViewerState())
	event, ok := logger.find(EventImportFailed)
	if !ok || !errors.Is(event.Err, ErrNoLiveSource) {
		t.Fatalf("expected ErrNoLiveSource, got %+v", event)
	}
}

func TestImportConcurrentReadsOnce(t *testing.T) {
	source := &countingSource{state: loadLiveState(t, "live_complete.json")}
	syncer := NewSyncer(WithLiveSource(source))
	syncer.MarkDirty(true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.ImportIfNeeded(DefaultViewerState())
		}()
	}
	wg.Wait()

	if source.calls.Load() != 1 {
		t.Fatalf("expected exactly one read, got %d", source.calls.Load())
	}
}

func TestNilSyncer(t *testing.T) {
	var syncer *Syncer
	syncer.MarkDirty(true)
	if syncer.Dirty() {
		t.Fatalf("nil syncer is never dirty")
	}
	state := DefaultViewerState()
	if got := syncer.ImportIfNeeded(state); !reflect.DeepEqual(got, state) {
		t.Fatalf("nil syncer must return the state")
	}
}

func TestLiveSourceFuncNil(t *testing.T) {
	var fn LiveSourceFunc
	if _, err := fn.LiveState(); !errors.Is(err, ErrNoLiveSource) {
		t.Fatalf("expected ErrNoLiveSource, got %v", err)
	}
}

func TestImportKeepsNestedViewerFields(t *testing.T) {
	live := loadLiveState(t, "live_nested_fields.json")
	source := &countingSource{state: live}
	syncer := NewSyncer(WithLiveSource(source))
	syncer.MarkDirty(true)

	got := syncer.ImportIfNeeded(DefaultViewerState()).NgState
	if syncer.Dirty() {
		t.Fatalf("import of a layout tree must succeed and clear the flag")
	}
	if got.Layers[0].Name != "grayscale" || got.Layers[1].Name != "seg" {
		t.Fatalf("expected live layers, got %s", layerNames(got.Layers))
	}
	if _, ok := got.Layout.(map[string]any); !ok {
		t.Fatalf("expected layout tree, got %T", got.Layout)
	}
	if got.SelectedLayer.Extra["size"] != float64(350) {
		t.Fatalf("selectedLayer extras lost: %+v", got.SelectedLayer)
	}

	encoded, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(encoded, &roundTrip); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(roundTrip, live) {
		t.Fatalf("re-encoded document differs from the viewer's\nwant %s\ngot  %s", mustJSON(t, live), encoded)
	}
}
