package ngstate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionDecoder turns {"type": ..., "payload": ...} messages into typed
// actions.
type ActionDecoder struct {
	transformOpts []TransformOption
}

// NewActionDecoder returns a decoder whose compiled source transforms use
// opts.
func NewActionDecoder(opts ...TransformOption) *ActionDecoder {
	return &ActionDecoder{transformOpts: opts}
}

var defaultActionDecoder = NewActionDecoder()

// DecodeAction decodes data with a decoder that has no transform options.
func DecodeAction(data []byte) (Action, error) {
	return defaultActionDecoder.Decode(data)
}

type wireAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one action. Unknown types decode to UnknownAction. Errors
// are returned for malformed JSON, payloads that match none of the accepted
// shapes and transforms that fail to compile.
func (d *ActionDecoder) Decode(data []byte) (Action, error) {
	var msg wireAction
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("ngstate: decode action: %w", err)
	}
	action, err := d.decodePayload(msg)
	if err != nil {
		return nil, fmt.Errorf("ngstate: decode %s: %w", msg.Type, err)
	}
	return action, nil
}

func (d *ActionDecoder) decodePayload(msg wireAction) (Action, error) {
	payload := msg.Payload
	switch msg.Type {
	case TypeReset:
		return Reset{}, nil
	case TypeSyncViewer:
		return SyncViewer{}, nil
	case TypeInitViewer:
		var doc Document
		err := unmarshalPayload(payload, &doc)
		return InitViewer{Document: doc}, err

	case TypeSetGrayscaleSource:
		source, err := decodeSource(payload)
		return SetGrayscaleSource{Source: source}, err
	case TypeSetSegmentationSource:
		source, err := decodeSource(payload)
		return SetSegmentationSource{Source: source}, err
	case TypeSetTodosSource:
		source, err := decodeSource(payload)
		return SetTodosSource{Source: source}, err
	case TypeSetLayerSource:
		return d.decodeLayerSource(payload)

	case TypeSetSegmentationLayerName:
		var name string
		err := unmarshalPayload(payload, &name)
		return SetSegmentationLayerName{Name: name}, err
	case TypeSetSegmentQuery:
		var query string
		err := unmarshalPayload(payload, &query)
		return SetSegmentQuery{Query: query}, err
	case TypeSetTodosType:
		var value string
		err := unmarshalPayload(payload, &value)
		return SetTodosType{Type: value}, err
	case TypeSetTodosHint:
		var value string
		err := unmarshalPayload(payload, &value)
		return SetTodosHint{Hint: value}, err

	case TypeSetAnnotationSelection:
		var p struct {
			Host         string `json:"host"`
			LayerName    string `json:"layerName"`
			AnnotationID string `json:"annotationId"`
		}
		err := unmarshalPayload(payload, &p)
		return SetAnnotationSelection{Host: p.Host, LayerName: p.LayerName, AnnotationID: p.AnnotationID}, err
	case TypeSetAnnotationTool:
		var p struct {
			LayerName      string `json:"layerName"`
			AnnotationTool string `json:"annotationTool"`
		}
		err := unmarshalPayload(payload, &p)
		return SetAnnotationTool{LayerName: p.LayerName, Tool: p.AnnotationTool}, err

	case TypeSetSegments:
		return decodeSegments(payload)
	case TypeSetSegmentColors:
		return decodeSegmentColors(payload)
	case TypeSetSegmentEquivalences:
		return decodeEquivalences(payload)

	case TypeSetCrossSectionScale:
		var scale float64
		err := unmarshalPayload(payload, &scale)
		return SetCrossSectionScale{Scale: scale}, err
	case TypeSetProjectionScale:
		var scale float64
		err := unmarshalPayload(payload, &scale)
		return SetProjectionScale{Scale: scale}, err
	case TypeSetCameraPosition:
		var position []float64
		err := unmarshalPayload(payload, &position)
		return SetCameraPosition{Position: position}, err
	case TypeSetProjectionOrientation:
		var orientation []float64
		err := unmarshalPayload(payload, &orientation)
		return SetProjectionOrientation{Orientation: orientation}, err

	case TypeAddLayer:
		var layer Layer
		err := unmarshalPayload(payload, &layer)
		return AddLayer{Layer: layer}, err
	case TypeSelectLayer:
		var name string
		err := unmarshalPayload(payload, &name)
		return SelectLayer{Layer: name}, err

	default:
		return UnknownAction{Type: msg.Type, Payload: payload}, nil
	}
}

func unmarshalPayload(payload json.RawMessage, target any) error {
	if isNullPayload(payload) {
		return nil
	}
	return json.Unmarshal(payload, target)
}

func isNullPayload(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeSource(payload json.RawMessage) (any, error) {
	var source any
	err := unmarshalPayload(payload, &source)
	return source, err
}

// TransformSpec is the wire form of a source transform.
type TransformSpec struct {
	Engine string `json:"engine"`
	Expr   string `json:"expr"`
}

func (d *ActionDecoder) decodeLayerSource(payload json.RawMessage) (Action, error) {
	var p struct {
		LayerName string         `json:"layerName"`
		Source    any            `json:"source"`
		Transform *TransformSpec `json:"transform"`
	}
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}
	action := SetLayerSource{LayerName: p.LayerName, Source: p.Source}
	if p.Transform != nil {
		transform, err := NewTransform(p.Transform.Engine, p.Transform.Expr, d.transformOpts...)
		if err != nil {
			return nil, err
		}
		action.Transform = transform
	}
	return action, nil
}

// firstByte returns the first non-space byte of payload.
func firstByte(payload json.RawMessage) byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func decodeSegments(payload json.RawMessage) (Action, error) {
	action := SetSegments{}
	switch firstByte(payload) {
	case '[':
		err := json.Unmarshal(payload, &action.Segments)
		return action, err
	case '{':
		var envelope struct {
			LayerName string      `json:"layerName"`
			Segments  []SegmentID `json:"segments"`
		}
		err := json.Unmarshal(payload, &envelope)
		action.LayerName = envelope.LayerName
		action.Segments = envelope.Segments
		return action, err
	default:
		return action, unmarshalPayload(payload, &action.Segments)
	}
}

func decodeEquivalences(payload json.RawMessage) (Action, error) {
	action := SetSegmentEquivalences{}
	switch firstByte(payload) {
	case '[':
		err := json.Unmarshal(payload, &action.Equivalences)
		return action, err
	case '{':
		var envelope struct {
			LayerName    string       `json:"layerName"`
			Equivalences Equivalences `json:"equivalences"`
		}
		err := json.Unmarshal(payload, &envelope)
		action.LayerName = envelope.LayerName
		action.Equivalences = envelope.Equivalences
		return action, err
	default:
		return action, unmarshalPayload(payload, &action.Equivalences)
	}
}

// decodeSegmentColors accepts a bare id->color map or an envelope carrying
// segmentColors. layerName and mode are honored in either shape.
func decodeSegmentColors(payload json.RawMessage) (Action, error) {
	action := SetSegmentColors{Mode: ColorModeReplace}
	if isNullPayload(payload) {
		return action, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if raw, ok := fields["layerName"]; ok {
		if err := json.Unmarshal(raw, &action.LayerName); err != nil {
			return nil, err
		}
		delete(fields, "layerName")
	}
	if raw, ok := fields["mode"]; ok {
		var mode string
		if err := json.Unmarshal(raw, &mode); err != nil {
			return nil, err
		}
		if ColorMode(mode) == ColorModeAppend {
			action.Mode = ColorModeAppend
		}
		delete(fields, "mode")
	}

	if raw, ok := fields["segmentColors"]; ok {
		err := unmarshalPayload(raw, &action.Colors)
		return action, err
	}
	action.Colors = make(SegmentColors, len(fields))
	for key, raw := range fields {
		var color string
		if err := json.Unmarshal(raw, &color); err != nil {
			return nil, fmt.Errorf("segment %s: %w", key, err)
		}
		action.Colors[key] = color
	}
	return action, nil
}
