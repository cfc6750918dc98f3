package events

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/world"
)

// DefaultQueueSize is the event backlog an AsyncPublisher holds.
const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned when an AsyncPublisher's backlog is full; the event is dropped.
	ErrQueueFull = errors.New("event queue full")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
)

// AsyncPublisher delivers events to a wrapped sink from its own goroutine.
// PublishWordFound only enqueues, so World.Validate returns without waiting
// on the wrapped sink.
type AsyncPublisher struct {
	sink  world.EventSink
	queue chan world.FoundWord
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts a publisher in front of sink. A size below one
// means DefaultQueueSize.
func NewAsyncPublisher(sink world.EventSink, size int) *AsyncPublisher {
	if size < 1 {
		size = DefaultQueueSize
	}
	p := &AsyncPublisher{
		sink:  sink,
		queue: make(chan world.FoundWord, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		if err := p.sink.PublishWordFound(event); err != nil {
			log.Warn().Err(err).Str("placement_id", event.ID).Msg("failed to deliver word-found event")
		}
	}
}

// PublishWordFound queues event without blocking.
func (p *AsyncPublisher) PublishWordFound(event world.FoundWord) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queued ones to be delivered.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}
