package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrETagMismatch is returned when a checkpoint was based on a stale snapshot.
var ErrETagMismatch = errors.New("session: etag mismatch")

// Ref identifies one stored document. An empty User addresses the dataset
// layout shared by every user.
type Ref struct {
	Dataset string
	User    string
}

// Identifier returns the canonical storage key.
func (r Ref) Identifier() (string, error) {
	dataset := strings.TrimSpace(r.Dataset)
	if dataset == "" {
		return "", fmt.Errorf("session: dataset is required")
	}
	if !validSegment(dataset) {
		return "", fmt.Errorf("session: invalid dataset %q", r.Dataset)
	}
	user := strings.TrimSpace(r.User)
	if user == "" {
		return "dataset/" + dataset, nil
	}
	if !validSegment(user) {
		return "", fmt.Errorf("session: invalid user %q", r.User)
	}
	return fmt.Sprintf("user/%s/%s", user, dataset), nil
}

// validSegment rejects values that would escape their directory once joined
// into a path.
func validSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for one Ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
