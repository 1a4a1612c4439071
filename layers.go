package ngstate

import (
	"strings"

	"github.com/goliatone/go-ngstate/layering"
)

// ResolutionKind reports how a layer reference resolved.
type ResolutionKind int

const (
	// NotFound means nothing matched and no slot was requested.
	NotFound ResolutionKind = iota
	// Found means Index points at an existing layer.
	Found
	// WouldAppend means nothing matched and Index is one past the end.
	WouldAppend
)

func (k ResolutionKind) String() string {
	switch k {
	case Found:
		return "found"
	case WouldAppend:
		return "would-append"
	default:
		return "not-found"
	}
}

// Resolution is the result of Locate.
type Resolution struct {
	Kind  ResolutionKind
	Index int
}

// Ok reports whether the resolution designates a writable slot.
func (r Resolution) Ok() bool {
	return r.Kind != NotFound
}

// Locate resolves ref against layers. The first layer whose name contains ref
// wins; failing that, the first whose type contains ref. When nothing matches
// and createIfMissing is set the slot after the last layer is returned.
func Locate(layers []Layer, ref string, createIfMissing bool) Resolution {
	for i := range layers {
		if strings.Contains(layers[i].Name, ref) {
			return Resolution{Kind: Found, Index: i}
		}
	}
	for i := range layers {
		if strings.Contains(layers[i].Type, ref) {
			return Resolution{Kind: Found, Index: i}
		}
	}
	if createIfMissing {
		return Resolution{Kind: WouldAppend, Index: len(layers)}
	}
	return Resolution{Kind: NotFound, Index: -1}
}

// LayerIndex returns the index of the layer named exactly name, or -1.
func LayerIndex(layers []Layer, name string) int {
	for i := range layers {
		if layers[i].Name == name {
			return i
		}
	}
	return -1
}

// HasLayer reports whether a layer is named exactly name.
func HasLayer(layers []Layer, name string) bool {
	return LayerIndex(layers, name) != -1
}

// FindLayer returns a copy of the layer named exactly name.
func FindLayer(layers []Layer, name string) (Layer, bool) {
	i := LayerIndex(layers, name)
	if i == -1 {
		return Layer{}, false
	}
	return layering.Clone(layers[i]), true
}

// SetLayer applies fn to the layer ref resolves to and returns the updated
// document. A miss without createIfMissing returns doc unchanged and false.
func SetLayer(doc Document, ref string, createIfMissing bool, fn func(*Layer)) (Document, bool) {
	res := Locate(doc.Layers, ref, createIfMissing)
	if !res.Ok() {
		return doc, false
	}
	return UpdateLayerAt(doc, res.Index, fn), true
}

// UpdateLayerAt copies the layer list, applies fn to a detached copy of the
// layer at index and returns the new document. index == len(layers) appends.
// Untouched layers and document fields are shared with doc, which is never
// modified.
func UpdateLayerAt(doc Document, index int, fn func(*Layer)) Document {
	if index < 0 || index > len(doc.Layers) {
		return doc
	}
	layers := make([]Layer, len(doc.Layers), len(doc.Layers)+1)
	copy(layers, doc.Layers)

	var layer Layer
	if index < len(layers) {
		layer = layering.Clone(layers[index])
	} else {
		layers = append(layers, Layer{})
	}
	if fn != nil {
		fn(&layer)
	}
	layers[index] = layer
	doc.Layers = layers
	return doc
}

// SetLayerSourceValue replaces the source of the layer ref resolves to.
func SetLayerSourceValue(doc Document, ref string, source any) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.Source = layering.Clone(source)
	})
	return out
}

// SetLayerName renames the layer ref resolves to.
func SetLayerName(doc Document, ref, name string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.Name = name
	})
	return out
}

// SetLayerSegmentQuery sets the segment query box of a segmentation layer.
func SetLayerSegmentQuery(doc Document, ref, query string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.SegmentQuery = query
	})
	return out
}

// SetLayerSegments replaces the visible segment set.
func SetLayerSegments(doc Document, ref string, segments []SegmentID) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.Segments = layering.Clone(segments)
	})
	return out
}

// SetLayerSegmentColors replaces the color map.
func SetLayerSegmentColors(doc Document, ref string, colors SegmentColors) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.SegmentColors = layering.Clone(colors)
	})
	return out
}

// SetLayerEquivalences replaces the merge groups.
func SetLayerEquivalences(doc Document, ref string, equivalences Equivalences) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.Equivalences = layering.Clone(equivalences)
	})
	return out
}

// SetLayerSelectedAnnotation marks annotationID as selected on the layer.
func SetLayerSelectedAnnotation(doc Document, ref, annotationID string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.SelectedAnnotation = &AnnotationRef{ID: annotationID}
	})
	return out
}

// SetLayerTool sets the active annotation tool.
func SetLayerTool(doc Document, ref, tool string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		l.Tool = tool
	})
	return out
}

// SetLayerPointType sets defaultAnnotationProperties.point.type.
func SetLayerPointType(doc Document, ref, pointType string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		pointDefaults(l).Type = pointType
	})
	return out
}

// SetLayerPointHint sets defaultAnnotationProperties.point.hint.
func SetLayerPointHint(doc Document, ref, hint string) Document {
	out, _ := SetLayer(doc, ref, false, func(l *Layer) {
		pointDefaults(l).Hint = hint
	})
	return out
}

// PutLayer replaces the layer that layer.Name resolves to, or appends it.
func PutLayer(doc Document, layer Layer) Document {
	out, _ := SetLayer(doc, layer.Name, true, func(l *Layer) {
		*l = layering.Clone(layer)
	})
	return out
}

func pointDefaults(l *Layer) *PointDefaults {
	if l.DefaultAnnotationProperties == nil {
		l.DefaultAnnotationProperties = &AnnotationDefaults{}
	}
	if l.DefaultAnnotationProperties.Point == nil {
		l.DefaultAnnotationProperties.Point = &PointDefaults{}
	}
	return l.DefaultAnnotationProperties.Point
}
