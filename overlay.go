package ngstate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-ngstate/layering"
)

// Recommended overlay priorities. Higher numbers win.
const (
	PriorityDefaults = 100
	PriorityDataset  = 200
	PrioritySession  = 300
)

// Scope names a precedence bucket for document overlays.
type Scope struct {
	Name     string
	Label    string
	Priority int
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// NewScope builds a Scope. Validation is deferred to NewOverlayStack.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

// DefaultsScope, DatasetScope and SessionScope are the standard buckets.
func DefaultsScope() Scope {
	return NewScope("defaults", PriorityDefaults, WithScopeLabel("Defaults"))
}

func DatasetScope() Scope {
	return NewScope("dataset", PriorityDataset, WithScopeLabel("Dataset"))
}

func SessionScope() Scope {
	return NewScope("session", PrioritySession, WithScopeLabel("Saved session"))
}

// Overlay is a partial document contributed by one scope.
type Overlay struct {
	Scope      Scope
	Document   Document
	SnapshotID string
}

// NewOverlay copies doc so later changes by the caller do not leak in.
func NewOverlay(scope Scope, doc Document, snapshotID string) Overlay {
	return Overlay{Scope: scope, Document: doc.Clone(), SnapshotID: snapshotID}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("ngstate: overlay scope name must be provided")
	// ErrDuplicateScopeName indicates two overlays share a scope name.
	ErrDuplicateScopeName = errors.New("ngstate: overlay scope names must be unique")
	// ErrPriorityOrder indicates two overlays share a priority.
	ErrPriorityOrder = errors.New("ngstate: overlay priorities must be strictly ordered")
	// ErrEmptyStack is returned when composing a stack without overlays.
	ErrEmptyStack = errors.New("ngstate: overlay stack is empty")
)

// OverlayStack is an immutable set of overlays ordered strongest first.
type OverlayStack struct {
	overlays []Overlay
}

// NewOverlayStack validates overlays and sorts them by descending priority.
func NewOverlayStack(overlays ...Overlay) (*OverlayStack, error) {
	seen := make(map[string]struct{}, len(overlays))
	copied := make([]Overlay, len(overlays))
	for i, overlay := range overlays {
		if overlay.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[overlay.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, overlay.Scope.Name)
		}
		seen[overlay.Scope.Name] = struct{}{}
		copied[i] = NewOverlay(overlay.Scope, overlay.Document, overlay.SnapshotID)
	}

	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority == copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &OverlayStack{overlays: copied}, nil
}

// Overlays returns copies of the overlays, strongest first.
func (s *OverlayStack) Overlays() []Overlay {
	if s == nil || len(s.overlays) == 0 {
		return nil
	}
	out := make([]Overlay, len(s.overlays))
	for i, overlay := range s.overlays {
		out[i] = NewOverlay(overlay.Scope, overlay.Document, overlay.SnapshotID)
	}
	return out
}

// Len returns the number of overlays.
func (s *OverlayStack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.overlays)
}

// Compose merges the overlays. A stronger value wins unless it is unset;
// maps such as dimensions merge per key and slices such as layers are taken
// whole from the strongest overlay that sets them.
func (s *OverlayStack) Compose() (Document, error) {
	if s.Len() == 0 {
		return Document{}, ErrEmptyStack
	}
	docs := make([]Document, len(s.overlays))
	for i := range s.overlays {
		docs[i] = s.overlays[i].Document
	}
	return layering.MergeLayers(docs...), nil
}

// ComposeDocument stacks the standard scopes. dataset and session may be nil.
func ComposeDocument(defaults Document, dataset, session *Document) (Document, error) {
	overlays := []Overlay{NewOverlay(DefaultsScope(), defaults, "")}
	if dataset != nil {
		overlays = append(overlays, NewOverlay(DatasetScope(), *dataset, ""))
	}
	if session != nil {
		overlays = append(overlays, NewOverlay(SessionScope(), *session, ""))
	}
	stack, err := NewOverlayStack(overlays...)
	if err != nil {
		return Document{}, err
	}
	return stack.Compose()
}
