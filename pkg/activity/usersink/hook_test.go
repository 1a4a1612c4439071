package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-ngstate/pkg/activity"
	"github.com/goliatone/go-ngstate/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()

	event := activity.BuildSessionSavedEvent(activity.ViewerEventInput{
		ActorID:    actorID.String(),
		UserID:     userID.String(),
		Dataset:    "hemibrain",
		SnapshotID: "snap-1",
		Channel:    "viewer",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.TenantID != uuid.Nil {
		t.Fatalf("expected nil tenant, got %s", record.TenantID)
	}
	if record.Verb != activity.VerbSessionSaved || record.ObjectType != activity.ObjectSession || record.ObjectID != "snap-1" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "viewer" {
		t.Fatalf("expected channel viewer got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["dataset"] != "hemibrain" {
		t.Fatalf("expected metadata passthrough got %v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDActors(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbReset,
		ActorID:    "alice@example.org",
		ObjectType: activity.ObjectDocument,
		ObjectID:   "hemibrain",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected nil actor uuid, got %s", record.ActorID)
	}
	if record.Data["actor_ref"] != "alice@example.org" {
		t.Fatalf("expected actor_ref, got %v", record.Data)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}

	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil sink to be ignored, got %v", err)
	}
}
