package ngstate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		name string
		json string
		want Action
	}{
		{name: "reset", json: `{"type": "VIEWER_RESET"}`, want: Reset{}},
		{name: "sync", json: `{"type": "SYNC_VIEWER"}`, want: SyncViewer{}},
		{
			name: "init",
			json: `{"type": "INIT_VIEWER", "payload": {"layout": "xy", "layers": [{"name": "mb20", "type": "image"}]}}`,
			want: InitViewer{Document: Document{Layout: "xy", Layers: []Layer{{Name: "mb20", Type: "image"}}}},
		},
		{name: "grayscale string", json: `{"type": "SET_VIEWER_GRAYSCALE_SOURCE", "payload": "precomputed://em"}`, want: SetGrayscaleSource{Source: "precomputed://em"}},
		{
			name: "segmentation object",
			json: `{"type": "SET_VIEWER_SEGMENTATION_SOURCE", "payload": {"url": "precomputed://seg", "subsources": {"mesh": true}}}`,
			want: SetSegmentationSource{Source: map[string]any{"url": "precomputed://seg", "subsources": map[string]any{"mesh": true}}},
		},
		{name: "todos source", json: `{"type": "SET_VIEWER_TODOS_SOURCE", "payload": "clio://todos"}`, want: SetTodosSource{Source: "clio://todos"}},
		{name: "layer source", json: `{"type": "SET_VIEWER_LAYER_SOURCE", "payload": {"layerName": "todos", "source": "clio://x"}}`, want: SetLayerSource{LayerName: "todos", Source: "clio://x"}},
		{name: "segmentation name", json: `{"type": "SET_VIEWER_SEGMENTATION_LAYER_NAME", "payload": "bodies"}`, want: SetSegmentationLayerName{Name: "bodies"}},
		{name: "segment query", json: `{"type": "SET_VIEWER_SEGMENT_QUERY", "payload": "1234"}`, want: SetSegmentQuery{Query: "1234"}},
		{name: "todos type", json: `{"type": "SET_VIEWER_TODOS_TYPE", "payload": "merge"}`, want: SetTodosType{Type: "merge"}},
		{name: "todos hint", json: `{"type": "SET_VIEWER_TODOS_HINT", "payload": "look"}`, want: SetTodosHint{Hint: "look"}},
		{
			name: "annotation selection",
			json: `{"type": "SET_VIEWER_ANNOTATION_SELECTION", "payload": {"host": "viewer", "layerName": "annotations", "annotationId": "a1"}}`,
			want: SetAnnotationSelection{Host: HostViewer, LayerName: "annotations", AnnotationID: "a1"},
		},
		{
			name: "annotation tool",
			json: `{"type": "SET_VIEWER_ANNOTATION_TOOL", "payload": {"layerName": "todos", "annotationTool": "annotatePoint"}}`,
			want: SetAnnotationTool{LayerName: "todos", Tool: "annotatePoint"},
		},
		{name: "segments bare", json: `{"type": "SET_VIEWER_SEGMENTS", "payload": [1, "2", 3.0]}`, want: SetSegments{Segments: []SegmentID{1, 2, 3}}},
		{
			name: "segments envelope",
			json: `{"type": "SET_VIEWER_SEGMENTS", "payload": {"layerName": "bodies", "segments": ["18446744073709551615"]}}`,
			want: SetSegments{LayerName: "bodies", Segments: []SegmentID{18446744073709551615}},
		},
		{name: "colors bare", json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": {"1": "#ff0000"}}`, want: SetSegmentColors{Colors: SegmentColors{"1": "#ff0000"}, Mode: ColorModeReplace}},
		{
			name: "colors bare with options",
			json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": {"layerName": "bodies", "mode": "append", "1": "#ff0000"}}`,
			want: SetSegmentColors{LayerName: "bodies", Colors: SegmentColors{"1": "#ff0000"}, Mode: ColorModeAppend},
		},
		{
			name: "colors envelope",
			json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": {"segmentColors": {"2": "#00ff00"}, "mode": "append"}}`,
			want: SetSegmentColors{Colors: SegmentColors{"2": "#00ff00"}, Mode: ColorModeAppend},
		},
		{name: "colors null", json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": null}`, want: SetSegmentColors{Mode: ColorModeReplace}},
		{name: "colors unknown mode", json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": {"mode": "merge", "segmentColors": {}}}`, want: SetSegmentColors{Colors: SegmentColors{}, Mode: ColorModeReplace}},
		{name: "equivalences bare", json: `{"type": "SET_VIEWER_SEGMENT_EQUIVALENCES", "payload": [[1, 2], ["3", "4"]]}`, want: SetSegmentEquivalences{Equivalences: Equivalences{{1, 2}, {3, 4}}}},
		{
			name: "equivalences envelope",
			json: `{"type": "SET_VIEWER_SEGMENT_EQUIVALENCES", "payload": {"layerName": "bodies", "equivalences": [[5, 6]]}}`,
			want: SetSegmentEquivalences{LayerName: "bodies", Equivalences: Equivalences{{5, 6}}},
		},
		{name: "cross section", json: `{"type": "SET_VIEWER_CROSS_SECTION_SCALE", "payload": 1.5}`, want: SetCrossSectionScale{Scale: 1.5}},
		{name: "position", json: `{"type": "SET_VIEWER_CAMERA_POSITION", "payload": [1, 2, 3]}`, want: SetCameraPosition{Position: []float64{1, 2, 3}}},
		{name: "projection scale", json: `{"type": "SET_VIEWER_CAMERA_PROJECTION_SCALE", "payload": 4096}`, want: SetProjectionScale{Scale: 4096}},
		{name: "orientation", json: `{"type": "SET_VIEWER_CAMERA_PROJECTION_ORIENTATION", "payload": [0, 0, 0, 1]}`, want: SetProjectionOrientation{Orientation: []float64{0, 0, 0, 1}}},
		{name: "add layer", json: `{"type": "ADD_VIEWER_LAYER", "payload": {"name": "synapses", "type": "annotation"}}`, want: AddLayer{Layer: Layer{Name: "synapses", Type: "annotation"}}},
		{name: "select layer", json: `{"type": "SELECT_VIEWER_LAYER", "payload": "todos"}`, want: SelectLayer{Layer: "todos"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tc.json))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("decoded %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestDecodeUnknownAction(t *testing.T) {
	got, err := DecodeAction([]byte(`{"type": "SET_VIEWER_SOMETHING", "payload": {"a": 1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	unknown, ok := got.(UnknownAction)
	if !ok {
		t.Fatalf("expected UnknownAction, got %T", got)
	}
	if unknown.ActionType() != "SET_VIEWER_SOMETHING" || string(unknown.Payload) != `{"a": 1}` {
		t.Fatalf("unexpected unknown action %+v", unknown)
	}
}

func TestDecodeActionErrors(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{name: "malformed", json: `{"type": `, want: "decode action"},
		{name: "segments string", json: `{"type": "SET_VIEWER_SEGMENTS", "payload": "nope"}`, want: "decode SET_VIEWER_SEGMENTS"},
		{name: "bad segment id", json: `{"type": "SET_VIEWER_SEGMENTS", "payload": [-1]}`, want: "invalid segment id"},
		{name: "color not string", json: `{"type": "SET_VIEWER_SEGMENT_COLORS", "payload": {"1": 5}}`, want: "segment 1"},
		{name: "scale not number", json: `{"type": "SET_VIEWER_CROSS_SECTION_SCALE", "payload": "big"}`, want: "decode SET_VIEWER_CROSS_SECTION_SCALE"},
		{
			name: "unknown engine",
			json: `{"type": "SET_VIEWER_LAYER_SOURCE", "payload": {"layerName": "todos", "transform": {"engine": "lua", "expr": "x"}}}`,
			want: "unknown transform engine",
		},
		{
			name: "transform compile error",
			json: `{"type": "SET_VIEWER_LAYER_SOURCE", "payload": {"layerName": "todos", "transform": {"engine": "expr", "expr": "source +"}}}`,
			want: "expr transform",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tc.json))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestDecodeLayerSourceTransform(t *testing.T) {
	cache := NewMemoryProgramCache()
	decoder := NewActionDecoder(TransformWithProgramCache(cache))
	raw := []byte(`{"type": "SET_VIEWER_LAYER_SOURCE", "payload": {"layerName": "todos", "transform": {"engine": "cel", "expr": "source + '&kind=atlas'"}}}`)

	action, err := decoder.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	set, ok := action.(SetLayerSource)
	if !ok || set.Transform == nil {
		t.Fatalf("expected transform, got %#v", action)
	}
	if _, err := decoder.Decode(raw); err != nil {
		t.Fatalf("decode again: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}

	next := NewReducer().Reduce(editableState(), set)
	if got := next.NgState.Layers[2].Source; got != "clio://todos&kind=atlas" {
		t.Fatalf("unexpected source %v", got)
	}
}

func TestDecodeJSTransformUnavailable(t *testing.T) {
	if jsTransformAvailable() {
		t.Skip("built with js_eval")
	}
	_, err := DecodeAction([]byte(`{"type": "SET_VIEWER_LAYER_SOURCE", "payload": {"layerName": "todos", "transform": {"engine": "js", "expr": "source"}}}`))
	if !errors.Is(err, ErrEvaluatorUnavailable) {
		t.Fatalf("expected ErrEvaluatorUnavailable, got %v", err)
	}
}
