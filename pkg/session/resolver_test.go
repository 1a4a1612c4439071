package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/pkg/activity"
	"github.com/goliatone/go-ngstate/pkg/session"
)

type mutateStore struct {
	loadSnapshot ngstate.Document
	loadMeta     session.Meta
	loadOK       bool
	loadErr      error

	saveCalls  int
	savedRef   session.Ref
	savedMeta  session.Meta
	savedValue ngstate.Document
	saveErr    error
}

func (s *mutateStore) Load(_ context.Context, ref session.Ref) (ngstate.Document, session.Meta, bool, error) {
	if s.loadErr != nil {
		return ngstate.Document{}, session.Meta{}, false, s.loadErr
	}
	return s.loadSnapshot, s.loadMeta, s.loadOK, nil
}

func (s *mutateStore) Save(_ context.Context, ref session.Ref, snapshot ngstate.Document, meta session.Meta) (session.Meta, error) {
	s.saveCalls++
	s.savedRef = ref
	s.savedMeta = meta
	s.savedValue = snapshot
	if s.saveErr != nil {
		return session.Meta{}, s.saveErr
	}
	return meta, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestResolverMutateFailureDoesNotSave(t *testing.T) {
	store := &mutateStore{
		loadMeta: session.Meta{SnapshotID: "snap-1", ETag: "v1"},
		loadOK:   true,
	}
	resolver := session.Resolver{Store: store}

	_, err := resolver.Mutate(context.Background(), session.Ref{Dataset: "hemibrain", User: "u42"}, session.Meta{ETag: "v1"}, func(doc *ngstate.Document) error {
		return errors.New("layout is required")
	})
	if err == nil || err.Error() != "layout is required" {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}

func TestResolverMutateIssuesNewSnapshot(t *testing.T) {
	store := &mutateStore{
		loadSnapshot: ngstate.Document{Layout: "xy"},
		loadMeta:     session.Meta{SnapshotID: "snap-old", ETag: "v1"},
		loadOK:       true,
	}
	resolver := session.Resolver{Store: store, Now: fixedNow}

	meta, err := resolver.Mutate(context.Background(), session.Ref{Dataset: "hemibrain", User: "u42"}, session.Meta{ETag: "v1"}, func(doc *ngstate.Document) error {
		doc.Layout = "yz"
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected 1 save call, got %d", store.saveCalls)
	}
	if store.savedValue.Layout != "yz" {
		t.Fatalf("expected mutated layout, got %q", store.savedValue.Layout)
	}
	if meta.SnapshotID == "" || meta.SnapshotID == "snap-old" {
		t.Fatalf("expected a new snapshot id, got %q", meta.SnapshotID)
	}
	if meta.ETag == "" || meta.ETag == "v1" {
		t.Fatalf("expected a new etag, got %q", meta.ETag)
	}
	if !meta.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("expected UpdatedAt from clock, got %v", meta.UpdatedAt)
	}
}

func TestResolverMutateETagMismatch(t *testing.T) {
	store := &mutateStore{
		loadMeta: session.Meta{SnapshotID: "snap-1", ETag: "v1"},
		loadOK:   true,
	}
	resolver := session.Resolver{Store: store}

	_, err := resolver.Mutate(context.Background(), session.Ref{Dataset: "hemibrain"}, session.Meta{ETag: "v2"}, func(doc *ngstate.Document) error {
		return nil
	})
	if !errors.Is(err, session.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no save calls, got %d", store.saveCalls)
	}
}

func TestResolverMutateRejectsInvalidRef(t *testing.T) {
	store := &mutateStore{}
	resolver := session.Resolver{Store: store}
	_, err := resolver.Mutate(context.Background(), session.Ref{Dataset: "a/b"}, session.Meta{}, func(*ngstate.Document) error { return nil })
	if err == nil {
		t.Fatalf("expected invalid ref error")
	}
}

func TestResolverLoadErrorPropagates(t *testing.T) {
	boom := errors.New("disk gone")
	resolver := session.Resolver{Store: &mutateStore{loadErr: boom}}
	if _, _, err := resolver.Resume(context.Background(), "hemibrain", "u42", ngstate.DefaultDocument()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestResolverResumeComposesScopes(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore[ngstate.Document]()
	capture := &activity.CaptureHook{}
	resolver := session.Resolver{
		Store:   store,
		Emitter: activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true}),
	}

	show := true
	layoutDoc := ngstate.Document{
		Layout:     "xy",
		ShowSlices: &show,
		Layers:     []ngstate.Layer{{Name: "hemibrain", Type: "image", Source: "precomputed://em"}},
	}
	if _, err := resolver.Checkpoint(ctx, session.Ref{Dataset: "hemibrain"}, layoutDoc, session.Meta{}); err != nil {
		t.Fatalf("save layout: %v", err)
	}

	hide := false
	saved, err := resolver.Checkpoint(ctx, session.Ref{Dataset: "hemibrain", User: "u42"}, ngstate.Document{ShowSlices: &hide, Position: []float64{1, 2, 3}}, session.Meta{})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}

	init, meta, err := resolver.Resume(ctx, "hemibrain", "u42", ngstate.DefaultDocument())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	doc := init.Document

	if meta.SnapshotID != saved.SnapshotID {
		t.Fatalf("expected session meta %q, got %q", saved.SnapshotID, meta.SnapshotID)
	}
	if doc.Layout != "xy" {
		t.Fatalf("expected dataset layout, got %q", doc.Layout)
	}
	if doc.ShowSlices == nil || *doc.ShowSlices {
		t.Fatalf("expected session showSlices=false to win")
	}
	if len(doc.Position) != 3 || doc.Position[0] != 1 {
		t.Fatalf("expected session position, got %v", doc.Position)
	}
	if len(doc.Layers) != 1 || doc.Layers[0].Name != "hemibrain" {
		t.Fatalf("expected dataset layers, got %+v", doc.Layers)
	}
	if doc.Dimensions["x"].Scale != 8e-9 {
		t.Fatalf("expected default dimensions, got %+v", doc.Dimensions)
	}

	events := capture.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[2]
	if last.Verb != activity.VerbSessionResumed || last.ObjectID != saved.SnapshotID {
		t.Fatalf("unexpected resume event %+v", last)
	}
}

func TestResolverResumeWithoutSavedSessions(t *testing.T) {
	resolver := session.Resolver{Store: session.NewMemoryStore[ngstate.Document]()}
	init, meta, err := resolver.Resume(context.Background(), "hemibrain", "", ngstate.DefaultDocument())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if meta.SnapshotID != "" {
		t.Fatalf("expected zero meta, got %+v", meta)
	}
	if init.Document.Layout != "4panel" || len(init.Document.Layers) != 2 {
		t.Fatalf("expected defaults, got %+v", init.Document)
	}
}

func TestResolverRequiresStore(t *testing.T) {
	var resolver session.Resolver
	if _, _, err := resolver.Resume(context.Background(), "hemibrain", "", ngstate.Document{}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := resolver.Checkpoint(context.Background(), session.Ref{Dataset: "hemibrain"}, ngstate.Document{}, session.Meta{}); err == nil {
		t.Fatalf("expected error without store")
	}
}
