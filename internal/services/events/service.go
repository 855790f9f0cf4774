package events

import (
	"sync"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// subscriberBuffer bounds each subscriber channel. A subscriber that stops
// draining has frames dropped rather than stalling the pipeline.
const subscriberBuffer = 256

// Service implements the pub/sub bus carrying stream frames from the
// pipeline to SSE and websocket subscribers.
type Service struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
	logger      arbor.ILogger
}

type subscriber struct {
	threadID string
	ch       chan models.StreamEvent
}

var _ interfaces.EventService = (*Service)(nil)

// NewService creates an empty event bus.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[int]*subscriber),
		logger:      logger,
	}
}

// Subscribe attaches a buffered subscriber to one analysis thread, or to
// all threads when threadID is interfaces.AllThreads.
func (s *Service) Subscribe(threadID string) *interfaces.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.StreamEvent, subscriberBuffer)
	if s.closed {
		close(ch)
		return &interfaces.Subscription{C: ch, Cancel: func() {}}
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = &subscriber{threadID: threadID, ch: ch}

	s.logger.Debug().
		Str("thread_id", threadID).
		Int("subscriber_count", len(s.subscribers)).
		Msg("Event subscriber attached")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub.ch)
			}
		})
	}
	return &interfaces.Subscription{C: ch, Cancel: cancel}
}

// Publish fans the event out to matching subscribers. Full subscriber
// buffers drop the frame instead of blocking the publisher.
func (s *Service) Publish(event models.StreamEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	for _, sub := range s.subscribers {
		if sub.threadID != interfaces.AllThreads && sub.threadID != event.ThreadID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			s.logger.Warn().
				Str("thread_id", event.ThreadID).
				Str("event_type", event.EventType).
				Msg("Subscriber buffer full, frame dropped")
		}
	}
}

// Close cancels every subscription.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for id, sub := range s.subscribers {
		delete(s.subscribers, id)
		close(sub.ch)
	}
	return nil
}
