package ngstate

import (
	"strconv"

	"github.com/goliatone/go-ngstate/layering"
)

// ViewerState is the root record held by the application. The reducer treats
// it as immutable and always returns a fresh value.
type ViewerState struct {
	NgState Document
}

// Document is the viewer-state document consumed by the embedded volumetric
// viewer. JSON key names match the viewer's own schema; keys the engine does
// not model are kept in Extra and written back unchanged.
type Document struct {
	Dimensions            Dimensions
	Position              []float64
	CrossSectionScale     *float64
	ProjectionScale       *float64
	ProjectionOrientation []float64
	Layers                []Layer
	Selection             *Selection
	SelectedLayer         *SelectedLayer
	// Layout is a preset name such as "xy", or the viewer's layout tree
	// ({"type": "row", "children": [...]}) kept as decoded JSON.
	Layout                any
	ShowSlices            *bool
	Extra                 map[string]any
}

// Dimensions maps an axis name (x, y, z) to its scale and unit.
type Dimensions map[string]Dimension

// Dimension is encoded as the two element array [scale, unit].
type Dimension struct {
	Scale float64
	Unit  string
}

// Layer is one addressable channel of the document (image, segmentation,
// annotation, ...).
type Layer struct {
	Name                        string
	Type                        string
	Source                      any
	Segments                    []SegmentID
	SegmentColors               SegmentColors
	Equivalences                Equivalences
	SegmentQuery                string
	SelectedAnnotation          *AnnotationRef
	Tool                        string
	DefaultAnnotationProperties *AnnotationDefaults
	Extra                       map[string]any
}

// SegmentID is a body identifier. The viewer writes ids as decimal strings,
// the application as numbers; both decode to the same value.
type SegmentID uint64

func (id SegmentID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// SegmentColors maps a segment id (decimal string) to a CSS color.
type SegmentColors map[string]string

// Equivalences groups segment ids merged into one body. Groups are disjoint.
type Equivalences [][]SegmentID

// AnnotationRef is the per-layer selected annotation.
type AnnotationRef struct {
	ID    string
	Extra map[string]any
}

// AnnotationDefaults carries default properties applied to new annotations.
type AnnotationDefaults struct {
	Point *PointDefaults
	Extra map[string]any
}

// PointDefaults are the defaults for point annotations.
type PointDefaults struct {
	Type  string
	Hint  string
	Extra map[string]any
}

// Selection is the viewer-wide selection cross reference.
type Selection struct {
	Layers map[string]*SelectionEntry
	Extra  map[string]any
}

// SelectionEntry is a selected annotation within a layer. A nil entry is a
// defect emitted by the viewer and is removed on import.
type SelectionEntry struct {
	AnnotationID string
	Extra        map[string]any
}

// SelectedLayer names the layer whose side panel is open.
type SelectedLayer struct {
	Layer string
	Extra map[string]any
}

// Well known layer names targeted by the reducer.
const (
	GrayscaleLayer    = "grayscale"
	SegmentationLayer = "segmentation"
	TodosLayer        = "todos"
)

// DefaultDocument returns a fresh copy of the document the application starts
// with: 8nm isotropic dimensions, a zoomed-out camera and two placeholder
// layers.
func DefaultDocument() Document {
	return Document{
		Dimensions: Dimensions{
			"x": {Scale: 8e-9, Unit: "m"},
			"y": {Scale: 8e-9, Unit: "m"},
			"z": {Scale: 8e-9, Unit: "m"},
		},
		CrossSectionScale: float64Ptr(100),
		Position:          []float64{17000, 20175, 21000},
		Layers: []Layer{
			{Name: GrayscaleLayer, Type: "image", Source: ""},
			{Name: SegmentationLayer, Type: "segmentation", Source: "", SegmentColors: SegmentColors{}},
		},
		ProjectionScale: float64Ptr(2600),
		ShowSlices:      boolPtr(false),
		Layout:          "4panel",
	}
}

// DefaultViewerState wraps DefaultDocument.
func DefaultViewerState() ViewerState {
	return ViewerState{NgState: DefaultDocument()}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return layering.Clone(d)
}

func float64Ptr(v float64) *float64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
