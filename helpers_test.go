package ngstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return out
}

func loadLiveState(t *testing.T, name string) map[string]any {
	t.Helper()
	return loadFixture[map[string]any](t, name)
}

type recordingLogger struct {
	mu     sync.Mutex
	events []LogEvent
}

func (l *recordingLogger) LogEvent(event LogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, event := range l.events {
		kinds[i] = event.Kind
	}
	return kinds
}

func (l *recordingLogger) find(kind EventKind) (LogEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range l.events {
		if event.Kind == kind {
			return event, true
		}
	}
	return LogEvent{}, false
}

type recordingMetrics struct {
	mu           sync.Mutex
	applied      map[string]int
	changed      map[string]int
	imports      int
	repaired     int
	importErrors int
	guardSkips   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{applied: map[string]int{}, changed: map[string]int{}, guardSkips: map[string]int{}}
}

func (m *recordingMetrics) ActionApplied(action string, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[action]++
	if changed {
		m.changed[action]++
	}
}

func (m *recordingMetrics) Imported(repaired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports++
	if repaired {
		m.repaired++
	}
}

func (m *recordingMetrics) ImportFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importErrors++
}

func (m *recordingMetrics) GuardSkipped(guard string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardSkips[guard]++
}

// countingSource returns a fresh copy of state on every read.
type countingSource struct {
	calls atomic.Int32
	state map[string]any
	err   error
}

func (s *countingSource) LiveState() (map[string]any, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	raw, err := json.Marshal(s.state)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	err = json.Unmarshal(raw, &out)
	return out, err
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}
