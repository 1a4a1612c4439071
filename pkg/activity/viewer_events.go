package activity

import (
	"strings"
	"time"
)

// Verbs and object types emitted for viewer documents and sessions.
const (
	VerbActionApplied  = "viewer.action.applied"
	VerbReset          = "viewer.reset"
	VerbSessionSaved   = "viewer.session.saved"
	VerbSessionResumed = "viewer.session.resumed"

	ObjectDocument = "viewer.document"
	ObjectSession  = "viewer.session"
)

// ViewerEventInput holds the fields shared by viewer events.
type ViewerEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Dataset    string
	Action     string
	Layers     []string
	SnapshotID string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildActionAppliedEvent records a dispatch that changed the document.
func BuildActionAppliedEvent(input ViewerEventInput) Event {
	return buildViewerEvent(VerbActionApplied, ObjectDocument, input)
}

// BuildResetEvent records a reset to the default document.
func BuildResetEvent(input ViewerEventInput) Event {
	return buildViewerEvent(VerbReset, ObjectDocument, input)
}

// BuildSessionSavedEvent records a session checkpoint. ObjectID is the
// snapshot id.
func BuildSessionSavedEvent(input ViewerEventInput) Event {
	return buildViewerEvent(VerbSessionSaved, ObjectSession, input)
}

// BuildSessionResumedEvent records a session being loaded into a viewer.
func BuildSessionResumedEvent(input ViewerEventInput) Event {
	return buildViewerEvent(VerbSessionResumed, ObjectSession, input)
}

func buildViewerEvent(verb, objectType string, input ViewerEventInput) Event {
	metadata := CloneMetadata(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Dataset != "" {
		set("dataset", input.Dataset)
	}
	if input.Action != "" {
		set("action", input.Action)
	}
	if len(input.Layers) > 0 {
		set("layers", append([]string{}, input.Layers...))
	}
	if input.SnapshotID != "" {
		set("snapshot_id", input.SnapshotID)
	}

	objectID := strings.TrimSpace(input.SnapshotID)
	if objectType == ObjectDocument || objectID == "" {
		objectID = strings.TrimSpace(input.Dataset)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
