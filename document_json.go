package ngstate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type documentWire struct {
	Dimensions            Dimensions     `json:"dimensions,omitempty"`
	Position              []float64      `json:"position,omitempty"`
	CrossSectionScale     *float64       `json:"crossSectionScale,omitempty"`
	ProjectionScale       *float64       `json:"projectionScale,omitempty"`
	ProjectionOrientation []float64      `json:"projectionOrientation,omitempty"`
	Layers                []Layer        `json:"layers"`
	Selection             *Selection     `json:"selection,omitempty"`
	SelectedLayer         *SelectedLayer `json:"selectedLayer,omitempty"`
	Layout                any            `json:"layout,omitempty"`
	ShowSlices            *bool          `json:"showSlices,omitempty"`
}

// MarshalJSON writes the document using the viewer's key names.
func (d Document) MarshalJSON() ([]byte, error) {
	layers := d.Layers
	if layers == nil {
		layers = []Layer{}
	}
	return marshalWithExtra(documentWire{
		Dimensions:            d.Dimensions,
		Position:              d.Position,
		CrossSectionScale:     d.CrossSectionScale,
		ProjectionScale:       d.ProjectionScale,
		ProjectionOrientation: d.ProjectionOrientation,
		Layers:                layers,
		Selection:             d.Selection,
		SelectedLayer:         d.SelectedLayer,
		Layout:                d.Layout,
		ShowSlices:            d.ShowSlices,
	}, d.Extra)
}

// UnmarshalJSON reads a viewer document, keeping unmodelled keys in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var wire documentWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*d = Document{
		Dimensions:            wire.Dimensions,
		Position:              wire.Position,
		CrossSectionScale:     wire.CrossSectionScale,
		ProjectionScale:       wire.ProjectionScale,
		ProjectionOrientation: wire.ProjectionOrientation,
		Layers:                wire.Layers,
		Selection:             wire.Selection,
		SelectedLayer:         wire.SelectedLayer,
		Layout:                wire.Layout,
		ShowSlices:            wire.ShowSlices,
		Extra:                 extra,
	}
	return nil
}

type layerWire struct {
	Name                        string              `json:"name"`
	Type                        string              `json:"type"`
	Source                      any                 `json:"source,omitempty"`
	Segments                    *[]SegmentID        `json:"segments,omitempty"`
	SegmentColors               *SegmentColors      `json:"segmentColors,omitempty"`
	Equivalences                *Equivalences       `json:"equivalences,omitempty"`
	SegmentQuery                string              `json:"segmentQuery,omitempty"`
	SelectedAnnotation          *AnnotationRef      `json:"selectedAnnotation,omitempty"`
	Tool                        string              `json:"tool,omitempty"`
	DefaultAnnotationProperties *AnnotationDefaults `json:"defaultAnnotationProperties,omitempty"`
}

// MarshalJSON keeps empty-but-present collections (for example
// "segmentColors": {}) distinct from absent ones.
func (l Layer) MarshalJSON() ([]byte, error) {
	wire := layerWire{
		Name:                        l.Name,
		Type:                        l.Type,
		Source:                      l.Source,
		SegmentQuery:                l.SegmentQuery,
		SelectedAnnotation:          l.SelectedAnnotation,
		Tool:                        l.Tool,
		DefaultAnnotationProperties: l.DefaultAnnotationProperties,
	}
	if l.Segments != nil {
		wire.Segments = &l.Segments
	}
	if l.SegmentColors != nil {
		wire.SegmentColors = &l.SegmentColors
	}
	if l.Equivalences != nil {
		wire.Equivalences = &l.Equivalences
	}
	return marshalWithExtra(wire, l.Extra)
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	var wire layerWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*l = Layer{
		Name:                        wire.Name,
		Type:                        wire.Type,
		Source:                      wire.Source,
		SegmentQuery:                wire.SegmentQuery,
		SelectedAnnotation:          wire.SelectedAnnotation,
		Tool:                        wire.Tool,
		DefaultAnnotationProperties: wire.DefaultAnnotationProperties,
		Extra:                       extra,
	}
	if wire.Segments != nil {
		l.Segments = *wire.Segments
	}
	if wire.SegmentColors != nil {
		l.SegmentColors = *wire.SegmentColors
	}
	if wire.Equivalences != nil {
		l.Equivalences = *wire.Equivalences
	}
	return nil
}

type selectionWire struct {
	Layers map[string]*SelectionEntry `json:"layers,omitempty"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(selectionWire{Layers: s.Layers}, s.Extra)
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var wire selectionWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*s = Selection{Layers: wire.Layers, Extra: extra}
	return nil
}

type selectionEntryWire struct {
	AnnotationID string `json:"annotationId"`
}

func (e SelectionEntry) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(selectionEntryWire{AnnotationID: e.AnnotationID}, e.Extra)
}

func (e *SelectionEntry) UnmarshalJSON(data []byte) error {
	var wire selectionEntryWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*e = SelectionEntry{AnnotationID: wire.AnnotationID, Extra: extra}
	return nil
}

type selectedLayerWire struct {
	Layer string `json:"layer"`
}

func (s SelectedLayer) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(selectedLayerWire{Layer: s.Layer}, s.Extra)
}

func (s *SelectedLayer) UnmarshalJSON(data []byte) error {
	var wire selectedLayerWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*s = SelectedLayer{Layer: wire.Layer, Extra: extra}
	return nil
}

type annotationRefWire struct {
	ID string `json:"id"`
}

func (a AnnotationRef) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(annotationRefWire{ID: a.ID}, a.Extra)
}

func (a *AnnotationRef) UnmarshalJSON(data []byte) error {
	var wire annotationRefWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*a = AnnotationRef{ID: wire.ID, Extra: extra}
	return nil
}

type annotationDefaultsWire struct {
	Point *PointDefaults `json:"point,omitempty"`
}

// MarshalJSON keeps property defaults other than point (line, sphere, ...)
// in Extra.
func (a AnnotationDefaults) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(annotationDefaultsWire{Point: a.Point}, a.Extra)
}

func (a *AnnotationDefaults) UnmarshalJSON(data []byte) error {
	var wire annotationDefaultsWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*a = AnnotationDefaults{Point: wire.Point, Extra: extra}
	return nil
}

type pointDefaultsWire struct {
	Type string `json:"type,omitempty"`
	Hint string `json:"hint,omitempty"`
}

func (p PointDefaults) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(pointDefaultsWire{Type: p.Type, Hint: p.Hint}, p.Extra)
}

func (p *PointDefaults) UnmarshalJSON(data []byte) error {
	var wire pointDefaultsWire
	extra, err := unmarshalWithExtra(data, &wire)
	if err != nil {
		return err
	}
	*p = PointDefaults{Type: wire.Type, Hint: wire.Hint, Extra: extra}
	return nil
}

// MarshalJSON encodes the dimension as [scale, unit].
func (d Dimension) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{d.Scale, d.Unit})
}

func (d *Dimension) UnmarshalJSON(data []byte) error {
	var pair []any
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("ngstate: dimension: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("ngstate: dimension: expected [scale, unit], got %d elements", len(pair))
	}
	scale, ok := pair[0].(float64)
	if !ok {
		return fmt.Errorf("ngstate: dimension: scale must be a number, got %T", pair[0])
	}
	unit, ok := pair[1].(string)
	if !ok {
		return fmt.Errorf("ngstate: dimension: unit must be a string, got %T", pair[1])
	}
	*d = Dimension{Scale: scale, Unit: unit}
	return nil
}

// MarshalJSON writes the id as a decimal string, the form the viewer uses for
// 64-bit ids.
func (id SegmentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *SegmentID) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	parsed, err := ParseSegmentID(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSegmentID reads a decimal id. Integral floats such as "12.0" or
// "1e3" are accepted because JSON numbers may arrive in that form.
func ParseSegmentID(text string) (SegmentID, error) {
	if v, err := strconv.ParseUint(text, 10, 64); err == nil {
		return SegmentID(v), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("ngstate: invalid segment id %q", text)
	}
	return SegmentID(uint64(f)), nil
}

func marshalWithExtra(known any, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return base, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if isWireKey(known, key) {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("ngstate: marshal %q: %w", key, err)
		}
		fields[key] = raw
	}
	return json.Marshal(fields)
}

func unmarshalWithExtra(data []byte, known any) (map[string]any, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, key := range wireKeys(known) {
		delete(fields, key)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func isWireKey(known any, key string) bool {
	for _, k := range wireKeys(known) {
		if k == key {
			return true
		}
	}
	return false
}

func wireKeys(known any) []string {
	t := reflect.TypeOf(known)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	return keys
}
