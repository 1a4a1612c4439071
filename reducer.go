package ngstate

import (
	"reflect"

	"github.com/goliatone/go-ngstate/layering"
)

// Reducer applies actions to a ViewerState. Every mutating action first
// absorbs pending viewer drift through its Syncer. Reset and InitViewer are
// authoritative and skip the import. The input state is never modified.
type Reducer struct {
	syncer   *Syncer
	logger   EventLogger
	metrics  Metrics
	defaults Document
}

// NewReducer builds a Reducer. Without WithSyncer a private Syncer is created
// from the live source, logger and metrics options.
func NewReducer(opts ...Option) *Reducer {
	cfg := applyOptions(opts)
	return newReducer(cfg)
}

func newReducer(cfg config) *Reducer {
	syncer := cfg.syncer
	if syncer == nil {
		syncer = newSyncer(cfg)
	}
	return &Reducer{
		syncer:   syncer,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		defaults: cfg.defaultDocument(),
	}
}

// Syncer returns the importer whose dirty flag gates this reducer.
func (r *Reducer) Syncer() *Syncer {
	return r.syncer
}

// Initial returns the state the reducer starts from and resets to.
func (r *Reducer) Initial() ViewerState {
	return ViewerState{NgState: r.defaults.Clone()}
}

// Reduce returns the state after action.
func (r *Reducer) Reduce(state ViewerState, action Action) ViewerState {
	next, _ := r.Apply(state, action)
	return next
}

// Apply is Reduce that also reports whether the document changed.
func (r *Reducer) Apply(state ViewerState, action Action) (ViewerState, bool) {
	if action == nil {
		return state, false
	}
	next := r.reduce(state, action)
	changed := !reflect.DeepEqual(state.NgState, next.NgState)
	r.metrics.ActionApplied(action.ActionType(), changed)
	return next, changed
}

func (r *Reducer) reduce(state ViewerState, action Action) ViewerState {
	switch a := action.(type) {
	case Reset:
		r.syncer.MarkDirty(false)
		return r.Initial()
	case InitViewer:
		r.syncer.MarkDirty(false)
		return ViewerState{NgState: a.Document.Clone()}
	case SyncViewer:
		return r.sync(state)

	case SetGrayscaleSource:
		return r.setIn(r.sync(state), a, GrayscaleLayer, func(doc Document) Document {
			return SetLayerSourceValue(doc, GrayscaleLayer, a.Source)
		})
	case SetLayerSource:
		return r.setLayerSource(r.sync(state), a)
	case SetSegmentationSource:
		return r.setIn(r.sync(state), a, SegmentationLayer, func(doc Document) Document {
			return SetLayerSourceValue(doc, SegmentationLayer, a.Source)
		})
	case SetSegmentationLayerName:
		return r.setIn(r.sync(state), a, SegmentationLayer, func(doc Document) Document {
			return SetLayerName(doc, SegmentationLayer, a.Name)
		})
	case SetSegmentQuery:
		return r.setIn(r.sync(state), a, SegmentationLayer, func(doc Document) Document {
			return SetLayerSegmentQuery(doc, SegmentationLayer, a.Query)
		})
	case SetTodosSource:
		return r.setIn(r.sync(state), a, TodosLayer, func(doc Document) Document {
			return SetLayerSourceValue(doc, TodosLayer, a.Source)
		})
	case SetTodosType:
		return r.setIn(r.sync(state), a, TodosLayer, func(doc Document) Document {
			return SetLayerPointType(doc, TodosLayer, a.Type)
		})
	case SetTodosHint:
		return r.setIn(r.sync(state), a, TodosLayer, func(doc Document) Document {
			return SetLayerPointHint(doc, TodosLayer, a.Hint)
		})

	case SetAnnotationSelection:
		return r.selectAnnotation(r.sync(state), a)
	case SetAnnotationTool:
		return r.setIn(r.sync(state), a, a.LayerName, func(doc Document) Document {
			return SetLayerTool(doc, a.LayerName, a.Tool)
		})

	case SetSegments:
		layer := layerOrSegmentation(a.LayerName)
		return r.setIn(r.sync(state), a, layer, func(doc Document) Document {
			return SetLayerSegments(doc, layer, a.Segments)
		})
	case SetSegmentColors:
		return r.setSegmentColors(r.sync(state), a)
	case SetSegmentEquivalences:
		return r.setEquivalences(r.sync(state), a)

	case SetCrossSectionScale:
		return r.setDocument(r.sync(state), func(doc *Document) {
			doc.CrossSectionScale = float64Ptr(a.Scale)
		})
	case SetCameraPosition:
		return r.setDocument(r.sync(state), func(doc *Document) {
			doc.Position = layering.Clone(a.Position)
		})
	case SetProjectionScale:
		return r.setDocument(r.sync(state), func(doc *Document) {
			doc.ProjectionScale = float64Ptr(a.Scale)
		})
	case SetProjectionOrientation:
		return r.setDocument(r.sync(state), func(doc *Document) {
			doc.ProjectionOrientation = layering.Clone(a.Orientation)
		})

	case AddLayer:
		synced := r.sync(state)
		return ViewerState{NgState: PutLayer(synced.NgState, a.Layer)}
	case SelectLayer:
		return r.setDocument(r.sync(state), func(doc *Document) {
			doc.SelectedLayer = &SelectedLayer{Layer: a.Layer}
		})

	default:
		r.logger.LogEvent(LogEvent{Kind: EventUnknownAction, Action: action.ActionType()})
		return state
	}
}

func (r *Reducer) sync(state ViewerState) ViewerState {
	return r.syncer.ImportIfNeeded(state)
}

// setIn runs set when ref addresses a layer and logs the miss otherwise.
func (r *Reducer) setIn(state ViewerState, action Action, ref string, set func(Document) Document) ViewerState {
	if !Locate(state.NgState.Layers, ref, false).Ok() {
		r.logger.LogEvent(LogEvent{Kind: EventLayerMissed, Action: action.ActionType(), Layer: ref})
		return state
	}
	return ViewerState{NgState: set(state.NgState)}
}

func (r *Reducer) setDocument(state ViewerState, fn func(*Document)) ViewerState {
	doc := state.NgState
	fn(&doc)
	return ViewerState{NgState: doc}
}

func (r *Reducer) setLayerSource(state ViewerState, a SetLayerSource) ViewerState {
	index := LayerIndex(state.NgState.Layers, a.LayerName)
	if index == -1 {
		r.logger.LogEvent(LogEvent{Kind: EventLayerMissed, Action: a.ActionType(), Layer: a.LayerName})
		return state
	}

	source := a.Source
	if a.Transform != nil {
		current := state.NgState.Layers[index]
		next, err := a.Transform.TransformSource(layering.Clone(current.Source), layering.Clone(current))
		if err != nil {
			r.logger.LogEvent(LogEvent{
				Kind:   EventTransformFailed,
				Action: a.ActionType(),
				Layer:  a.LayerName,
				Detail: transformEngine(a.Transform),
				Err:    wrapTransformError(transformEngine(a.Transform), transformExpression(a.Transform), a.LayerName, err),
			})
			return state
		}
		source = next
	}

	return ViewerState{NgState: UpdateLayerAt(state.NgState, index, func(l *Layer) {
		l.Source = layering.Clone(source)
	})}
}

func (r *Reducer) selectAnnotation(state ViewerState, a SetAnnotationSelection) ViewerState {
	if a.Host != HostViewer {
		return r.setIn(state, a, a.LayerName, func(doc Document) Document {
			return SetLayerSelectedAnnotation(doc, a.LayerName, a.AnnotationID)
		})
	}

	doc := state.NgState
	selection := Selection{}
	if doc.Selection != nil {
		selection = layering.Clone(*doc.Selection)
	}
	if selection.Layers == nil {
		selection.Layers = map[string]*SelectionEntry{}
	}
	selection.Layers[a.LayerName] = &SelectionEntry{AnnotationID: a.AnnotationID}
	doc.Selection = &selection
	return ViewerState{NgState: doc}
}

func (r *Reducer) setSegmentColors(state ViewerState, a SetSegmentColors) ViewerState {
	layer := layerOrSegmentation(a.LayerName)
	proposed := a.Colors
	if proposed == nil {
		proposed = SegmentColors{}
	}
	var current SegmentColors
	if found, ok := FindLayer(state.NgState.Layers, layer); ok {
		current = found.SegmentColors
	}

	if !SegmentColorsChanged(proposed, current) {
		r.skip(a, layer, "segmentColors")
		return state
	}
	if a.Mode == ColorModeAppend && current != nil {
		proposed = layering.MergeLayers(proposed, current)
	}
	return r.setIn(state, a, layer, func(doc Document) Document {
		return SetLayerSegmentColors(doc, layer, proposed)
	})
}

func (r *Reducer) setEquivalences(state ViewerState, a SetSegmentEquivalences) ViewerState {
	layer := layerOrSegmentation(a.LayerName)
	proposed := a.Equivalences
	if proposed == nil {
		proposed = Equivalences{}
	}
	var current Equivalences
	if found, ok := FindLayer(state.NgState.Layers, layer); ok {
		current = found.Equivalences
	}

	if !EquivalencesChanged(proposed, current) {
		r.skip(a, layer, "equivalences")
		return state
	}
	return r.setIn(state, a, layer, func(doc Document) Document {
		return SetLayerEquivalences(doc, layer, proposed)
	})
}

func (r *Reducer) skip(action Action, layer, guard string) {
	r.metrics.GuardSkipped(guard)
	r.logger.LogEvent(LogEvent{Kind: EventGuardSkipped, Action: action.ActionType(), Layer: layer, Detail: guard})
}
