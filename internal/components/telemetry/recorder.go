package telemetry

import (
	"strings"
	"sync"
)

// Event is a single call recorded by Recorder.
type Event struct {
	Kind   string
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory so tests can assert
// on what a component reported.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Event{Kind: "broken", ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Event{Kind: "warning", ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Event{Kind: "debug", ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Event{Kind: "count", ID: id, Count: count})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Find returns the recorded events of the given kind whose id ends with
// suffix, scoped namespaces are ignored this way.
func (r *Recorder) Find(kind, suffix string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind && strings.HasSuffix(e.ID, suffix) {
			out = append(out, e)
		}
	}
	return out
}
