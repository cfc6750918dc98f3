// Package events delivers word-found events to the places that care about
// them: connected sessions and, when configured, a Kafka topic.
package events

import (
	"errors"
	"sync"

	"github.com/wordgrid/server/internal/world"
)

// Fanout publishes each event to every registered sink. A failing sink does
// not stop delivery to the others.
type Fanout struct {
	mu    sync.RWMutex
	sinks []world.EventSink
}

// NewFanout creates a fanout over sinks. Nil sinks are ignored.
func NewFanout(sinks ...world.EventSink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers another sink.
func (f *Fanout) Add(sink world.EventSink) {
	if sink == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, sink)
	f.mu.Unlock()
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// PublishWordFound delivers event to every sink and joins their errors.
func (f *Fanout) PublishWordFound(event world.FoundWord) error {
	f.mu.RLock()
	sinks := append([]world.EventSink(nil), f.sinks...)
	f.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.PublishWordFound(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
