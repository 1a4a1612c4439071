package session

import (
	"context"
	"fmt"
	"time"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/pkg/activity"
	"github.com/google/uuid"
)

// Resolver loads and checkpoints viewer documents.
type Resolver struct {
	Store   Store[ngstate.Document]
	Emitter *activity.Emitter
	// Now defaults to time.Now.
	Now func() time.Time
}

// Mutator edits a stored document in place.
type Mutator func(*ngstate.Document) error

// Resume composes defaults, the dataset layout and the user's saved session
// and returns the INIT_VIEWER action that loads the result. The returned Meta
// belongs to the user session and is the zero value when none was saved.
func (r Resolver) Resume(ctx context.Context, dataset, user string, defaults ngstate.Document) (ngstate.InitViewer, Meta, error) {
	if r.Store == nil {
		return ngstate.InitViewer{}, Meta{}, fmt.Errorf("session: store is required")
	}

	var layoutDoc, sessionDoc *ngstate.Document
	doc, _, ok, err := r.Store.Load(ctx, Ref{Dataset: dataset})
	if err != nil {
		return ngstate.InitViewer{}, Meta{}, fmt.Errorf("session: load layout for %q: %w", dataset, err)
	}
	if ok {
		layoutDoc = &doc
	}

	var meta Meta
	if user != "" {
		saved, savedMeta, ok, err := r.Store.Load(ctx, Ref{Dataset: dataset, User: user})
		if err != nil {
			return ngstate.InitViewer{}, Meta{}, fmt.Errorf("session: load %q for user %q: %w", dataset, user, err)
		}
		if ok {
			sessionDoc = &saved
			meta = savedMeta
		}
	}

	composed, err := ngstate.ComposeDocument(defaults, layoutDoc, sessionDoc)
	if err != nil {
		return ngstate.InitViewer{}, Meta{}, fmt.Errorf("session: compose: %w", err)
	}

	r.emit(ctx, activity.BuildSessionResumedEvent(activity.ViewerEventInput{
		ActorID:    user,
		UserID:     user,
		Dataset:    dataset,
		SnapshotID: meta.SnapshotID,
	}))
	return ngstate.InitViewer{Document: composed}, meta, nil
}

// Checkpoint saves doc under ref with a new snapshot id. When expected.ETag
// is set it must match the stored ETag.
func (r Resolver) Checkpoint(ctx context.Context, ref Ref, doc ngstate.Document, expected Meta) (Meta, error) {
	return r.Mutate(ctx, ref, expected, func(stored *ngstate.Document) error {
		*stored = doc.Clone()
		return nil
	})
}

// Mutate loads the document under ref, applies fn and saves the result with
// a new snapshot id and ETag.
func (r Resolver) Mutate(ctx context.Context, ref Ref, expected Meta, fn Mutator) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("session: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("session: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	doc, loaded, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("session: load %q for user %q: %w", ref.Dataset, ref.User, err)
	}
	if !ok {
		doc = ngstate.Document{}
		loaded = Meta{}
	}
	if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
		return loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}

	if err := fn(&doc); err != nil {
		return loaded, err
	}

	meta := mergeMeta(loaded, Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  r.now(),
		Extra:      expected.Extra,
	})
	saved, err := r.Store.Save(ctx, ref, doc, meta)
	if err != nil {
		return loaded, fmt.Errorf("session: save %q for user %q: %w", ref.Dataset, ref.User, err)
	}

	r.emit(ctx, activity.BuildSessionSavedEvent(activity.ViewerEventInput{
		ActorID:    ref.User,
		UserID:     ref.User,
		Dataset:    ref.Dataset,
		SnapshotID: saved.SnapshotID,
	}))
	return saved, nil
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Resolver) emit(ctx context.Context, event activity.Event) {
	if r.Emitter == nil {
		return
	}
	_ = r.Emitter.Emit(ctx, event)
}
