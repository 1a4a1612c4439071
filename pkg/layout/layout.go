// Package layout builds the viewer document shown when a dataset is opened:
// the dataset's image volume, its annotation layer and any extra layers the
// dataset declares.
package layout

import (
	"strings"

	ngstate "github.com/goliatone/go-ngstate"
)

// AnnotationLayer is the name of the layer backed by the annotation service.
const AnnotationLayer = "annotations"

// Dataset describes an EM volume as returned by the dataset catalogue.
type Dataset struct {
	Name     string         `json:"name" toml:"name"`
	Location string         `json:"location" toml:"location"`
	Layers   []DatasetLayer `json:"layers,omitempty" toml:"layers,omitempty"`
}

// DatasetLayer is an additional precomputed volume shipped with a dataset.
type DatasetLayer struct {
	Name     string `json:"name" toml:"name"`
	Type     string `json:"type" toml:"type"`
	Location string `json:"location" toml:"location"`
}

// Params carries the per-view inputs of Build.
type Params struct {
	// ProjectURL is the annotation service endpoint. A trailing
	// /TopLevelFunction segment is removed.
	ProjectURL       string
	TopLevelFunction string
	// AnnotationKind is appended as &kind= when set (e.g. "atlas").
	AnnotationKind    string
	Position          []float64
	CrossSectionScale *float64
	// Dimensions overrides the voxel size per dataset name. nil uses
	// DefaultDimensionOverrides.
	Dimensions map[string]ngstate.Dimensions
}

// DefaultDimensionOverrides lists datasets not imaged at the default 8nm.
func DefaultDimensionOverrides() map[string]ngstate.Dimensions {
	return map[string]ngstate.Dimensions{
		"mb20": Isotropic(4e-9, "m"),
	}
}

// Isotropic returns equal x, y and z dimensions.
func Isotropic(scale float64, unit string) ngstate.Dimensions {
	return ngstate.Dimensions{
		"x": {Scale: scale, Unit: unit},
		"y": {Scale: scale, Unit: unit},
		"z": {Scale: scale, Unit: unit},
	}
}

// AnnotationsURL strips the function segment from projectURL.
func AnnotationsURL(projectURL, topLevelFunction string) string {
	if topLevelFunction == "" {
		return projectURL
	}
	return strings.TrimSuffix(projectURL, "/"+topLevelFunction)
}

// Build returns the partial document for dataset. Dimensions are only set
// for datasets with an override; compose the result over the defaults with
// ngstate.ComposeDocument or use InitAction.
func Build(dataset Dataset, params Params) ngstate.Document {
	annotationSource := ngstate.ClioAnnotationSource(AnnotationsURL(params.ProjectURL, params.TopLevelFunction), dataset.Name, params.AnnotationKind)

	layers := []ngstate.Layer{
		{Name: dataset.Name, Type: "image", Source: precomputed(dataset.Location)},
		{Name: AnnotationLayer, Type: "annotation", Source: map[string]any{"url": annotationSource}},
	}
	for _, extra := range dataset.Layers {
		layers = append(layers, ngstate.Layer{
			Name:   extra.Name,
			Type:   extra.Type,
			Source: precomputed(extra.Location),
		})
	}

	showSlices := true
	doc := ngstate.Document{
		Position:   append([]float64(nil), params.Position...),
		Layers:     layers,
		Layout:     "xy",
		ShowSlices: &showSlices,
	}
	if params.CrossSectionScale != nil {
		scale := *params.CrossSectionScale
		doc.CrossSectionScale = &scale
	}

	overrides := params.Dimensions
	if overrides == nil {
		overrides = DefaultDimensionOverrides()
	}
	if dims, ok := overrides[dataset.Name]; ok {
		doc.Dimensions = make(ngstate.Dimensions, len(dims))
		for axis, dim := range dims {
			doc.Dimensions[axis] = dim
		}
	}
	return doc
}

// InitAction composes Build over defaults and wraps it in an InitViewer
// action.
func InitAction(defaults ngstate.Document, dataset Dataset, params Params) (ngstate.InitViewer, error) {
	partial := Build(dataset, params)
	doc, err := ngstate.ComposeDocument(defaults, &partial, nil)
	if err != nil {
		return ngstate.InitViewer{}, err
	}
	return ngstate.InitViewer{Document: doc}, nil
}

func precomputed(location string) map[string]any {
	return map[string]any{"url": ngstate.PrecomputedSource(location)}
}
