package ngstate

import (
	"context"
	"sync"

	"github.com/goliatone/go-ngstate/pkg/activity"
)

// Listener is called after a dispatch changed the document. It receives a
// detached copy.
type Listener func(action Action, state ViewerState)

// Store holds the canonical ViewerState for one viewer instance and
// serializes dispatches.
type Store struct {
	mu        sync.RWMutex
	state     ViewerState
	reducer   *Reducer
	emitter   *activity.Emitter
	actor     string
	dataset   string
	listeners map[int]Listener
	nextID    int
}

// NewStore builds a Store starting from the default document.
func NewStore(opts ...Option) *Store {
	cfg := applyOptions(opts)
	reducer := newReducer(cfg)
	return &Store{
		state:     reducer.Initial(),
		reducer:   reducer,
		emitter:   cfg.emitter,
		actor:     cfg.actor,
		listeners: map[int]Listener{},
	}
}

// SetDataset labels emitted activity with dataset.
func (s *Store) SetDataset(dataset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = dataset
}

// Syncer exposes the dirty flag for collaborators observing the viewer.
func (s *Store) Syncer() *Syncer {
	return s.reducer.Syncer()
}

// Dispatch applies action and returns a copy of the resulting state.
// Listeners and activity hooks run after the lock is released.
func (s *Store) Dispatch(ctx context.Context, action Action) ViewerState {
	s.mu.Lock()
	next, changed := s.reducer.Apply(s.state, action)
	s.state = next
	dataset := s.dataset
	listeners := make([]Listener, 0, len(s.listeners))
	if changed {
		for id := 0; id < s.nextID; id++ {
			if listener, ok := s.listeners[id]; ok {
				listeners = append(listeners, listener)
			}
		}
	}
	s.mu.Unlock()

	if !changed {
		return ViewerState{NgState: next.NgState.Clone()}
	}
	for _, listener := range listeners {
		listener(action, ViewerState{NgState: next.NgState.Clone()})
	}
	s.emit(ctx, action, dataset, next)
	return ViewerState{NgState: next.NgState.Clone()}
}

// State returns a detached copy of the current state.
func (s *Store) State() ViewerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ViewerState{NgState: s.state.NgState.Clone()}
}

// Document returns a detached copy of the current document after absorbing
// pending viewer drift.
func (s *Store) Document() Document {
	return s.Dispatch(context.Background(), SyncViewer{}).NgState
}

// Subscribe registers listener and returns a function that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) emit(ctx context.Context, action Action, dataset string, state ViewerState) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.ViewerEventInput{
		ActorID: s.actor,
		Dataset: dataset,
		Action:  action.ActionType(),
	}
	var event activity.Event
	if _, ok := action.(Reset); ok {
		event = activity.BuildResetEvent(input)
	} else {
		input.Layers = make([]string, len(state.NgState.Layers))
		for i := range state.NgState.Layers {
			input.Layers[i] = state.NgState.Layers[i].Name
		}
		event = activity.BuildActionAppliedEvent(input)
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.reducer.logger.LogEvent(LogEvent{Kind: EventActivityFailed, Action: action.ActionType(), Err: err})
	}
}
