package ngstate

import (
	"slices"

	"github.com/goliatone/go-ngstate/layering"
)

// RepairReport lists what RepairDocument changed.
type RepairReport struct {
	RestoredDimensions bool
	DroppedScales      []string
	DroppedSelections  []string
}

// Repaired reports whether anything was changed.
func (r RepairReport) Repaired() bool {
	return r.RestoredDimensions || len(r.DroppedScales) > 0 || len(r.DroppedSelections) > 0
}

// RepairDocument fixes the known defects of documents read back from the
// viewer. The viewer drops dimensions while it rebuilds its coordinate space;
// they are restored from previous and both zoom scales, which are garbage in
// that state, are removed. Empty entries in selection.layers are deleted
// because the viewer rejects them on reload.
func RepairDocument(doc Document, previous Document) (Document, RepairReport) {
	var report RepairReport

	if len(doc.Dimensions) == 0 {
		doc.Dimensions = layering.Clone(previous.Dimensions)
		report.RestoredDimensions = true
		if doc.CrossSectionScale != nil {
			report.DroppedScales = append(report.DroppedScales, "crossSectionScale")
		}
		if doc.ProjectionScale != nil {
			report.DroppedScales = append(report.DroppedScales, "projectionScale")
		}
		doc.CrossSectionScale = nil
		doc.ProjectionScale = nil
	}

	if doc.Selection != nil && doc.Selection.Layers != nil {
		kept := make(map[string]*SelectionEntry, len(doc.Selection.Layers))
		for name, entry := range doc.Selection.Layers {
			if entry == nil {
				report.DroppedSelections = append(report.DroppedSelections, name)
				continue
			}
			kept[name] = entry
		}
		if len(report.DroppedSelections) > 0 {
			slices.Sort(report.DroppedSelections)
			selection := *doc.Selection
			selection.Layers = kept
			doc.Selection = &selection
		}
	}

	return doc, report
}
