package ngstate

import "encoding/json"

// Action is a reducer input. ActionType returns the wire name.
type Action interface {
	ActionType() string
}

// Wire names of the actions accepted by the reducer.
const (
	TypeReset                    = "VIEWER_RESET"
	TypeInitViewer               = "INIT_VIEWER"
	TypeSyncViewer               = "SYNC_VIEWER"
	TypeSetGrayscaleSource       = "SET_VIEWER_GRAYSCALE_SOURCE"
	TypeSetLayerSource           = "SET_VIEWER_LAYER_SOURCE"
	TypeSetSegmentationSource    = "SET_VIEWER_SEGMENTATION_SOURCE"
	TypeSetSegmentationLayerName = "SET_VIEWER_SEGMENTATION_LAYER_NAME"
	TypeSetSegmentQuery          = "SET_VIEWER_SEGMENT_QUERY"
	TypeSetTodosSource           = "SET_VIEWER_TODOS_SOURCE"
	TypeSetTodosType             = "SET_VIEWER_TODOS_TYPE"
	TypeSetTodosHint             = "SET_VIEWER_TODOS_HINT"
	TypeSetAnnotationSelection   = "SET_VIEWER_ANNOTATION_SELECTION"
	TypeSetAnnotationTool        = "SET_VIEWER_ANNOTATION_TOOL"
	TypeSetSegments              = "SET_VIEWER_SEGMENTS"
	TypeSetSegmentColors         = "SET_VIEWER_SEGMENT_COLORS"
	TypeSetSegmentEquivalences   = "SET_VIEWER_SEGMENT_EQUIVALENCES"
	TypeSetCrossSectionScale     = "SET_VIEWER_CROSS_SECTION_SCALE"
	TypeSetCameraPosition        = "SET_VIEWER_CAMERA_POSITION"
	TypeSetProjectionScale       = "SET_VIEWER_CAMERA_PROJECTION_SCALE"
	TypeSetProjectionOrientation = "SET_VIEWER_CAMERA_PROJECTION_ORIENTATION"
	TypeAddLayer                 = "ADD_VIEWER_LAYER"
	TypeSelectLayer              = "SELECT_VIEWER_LAYER"
)

// HostViewer tags an annotation selection made inside the viewer.
const HostViewer = "viewer"

// ColorMode selects how SetSegmentColors combines with the current map.
type ColorMode string

const (
	ColorModeReplace ColorMode = "replace"
	ColorModeAppend  ColorMode = "append"
)

// Reset restores the default document.
type Reset struct{}

// InitViewer replaces the document wholesale, e.g. when a saved session is
// loaded.
type InitViewer struct {
	Document Document
}

// SyncViewer only absorbs pending viewer drift.
type SyncViewer struct{}

type SetGrayscaleSource struct {
	Source any
}

// SetLayerSource sets the source of an existing layer. When Transform is set
// it receives the previous source and its result is stored instead of Source.
type SetLayerSource struct {
	LayerName string
	Source    any
	Transform SourceTransform
}

type SetSegmentationSource struct {
	Source any
}

type SetSegmentationLayerName struct {
	Name string
}

type SetSegmentQuery struct {
	Query string
}

type SetTodosSource struct {
	Source any
}

type SetTodosType struct {
	Type string
}

type SetTodosHint struct {
	Hint string
}

// SetAnnotationSelection selects an annotation. Host HostViewer writes to
// selection.layers, any other host to the layer's selectedAnnotation.
type SetAnnotationSelection struct {
	Host         string
	LayerName    string
	AnnotationID string
}

type SetAnnotationTool struct {
	LayerName string
	Tool      string
}

// SetSegments replaces the visible segments. An empty LayerName targets the
// segmentation layer.
type SetSegments struct {
	LayerName string
	Segments  []SegmentID
}

// SetSegmentColors writes a color map. The write is skipped when the map is
// unchanged.
type SetSegmentColors struct {
	LayerName string
	Colors    SegmentColors
	Mode      ColorMode
}

// SetSegmentEquivalences writes merge groups. The write is skipped when the
// groups describe the current partition.
type SetSegmentEquivalences struct {
	LayerName    string
	Equivalences Equivalences
}

type SetCrossSectionScale struct {
	Scale float64
}

type SetCameraPosition struct {
	Position []float64
}

type SetProjectionScale struct {
	Scale float64
}

type SetProjectionOrientation struct {
	Orientation []float64
}

// AddLayer replaces the layer Layer.Name resolves to or appends it.
type AddLayer struct {
	Layer Layer
}

type SelectLayer struct {
	Layer string
}

// UnknownAction carries an action type the reducer does not handle.
type UnknownAction struct {
	Type    string
	Payload json.RawMessage
}

func (Reset) ActionType() string                    { return TypeReset }
func (InitViewer) ActionType() string               { return TypeInitViewer }
func (SyncViewer) ActionType() string               { return TypeSyncViewer }
func (SetGrayscaleSource) ActionType() string       { return TypeSetGrayscaleSource }
func (SetLayerSource) ActionType() string           { return TypeSetLayerSource }
func (SetSegmentationSource) ActionType() string    { return TypeSetSegmentationSource }
func (SetSegmentationLayerName) ActionType() string { return TypeSetSegmentationLayerName }
func (SetSegmentQuery) ActionType() string          { return TypeSetSegmentQuery }
func (SetTodosSource) ActionType() string           { return TypeSetTodosSource }
func (SetTodosType) ActionType() string             { return TypeSetTodosType }
func (SetTodosHint) ActionType() string             { return TypeSetTodosHint }
func (SetAnnotationSelection) ActionType() string   { return TypeSetAnnotationSelection }
func (SetAnnotationTool) ActionType() string        { return TypeSetAnnotationTool }
func (SetSegments) ActionType() string              { return TypeSetSegments }
func (SetSegmentColors) ActionType() string         { return TypeSetSegmentColors }
func (SetSegmentEquivalences) ActionType() string   { return TypeSetSegmentEquivalences }
func (SetCrossSectionScale) ActionType() string     { return TypeSetCrossSectionScale }
func (SetCameraPosition) ActionType() string        { return TypeSetCameraPosition }
func (SetProjectionScale) ActionType() string       { return TypeSetProjectionScale }
func (SetProjectionOrientation) ActionType() string { return TypeSetProjectionOrientation }
func (AddLayer) ActionType() string                 { return TypeAddLayer }
func (SelectLayer) ActionType() string              { return TypeSelectLayer }

func (a UnknownAction) ActionType() string {
	return a.Type
}

func layerOrSegmentation(name string) string {
	if name == "" {
		return SegmentationLayer
	}
	return name
}
