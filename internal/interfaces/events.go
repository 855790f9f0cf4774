package interfaces

import (
	"github.com/lunahan/aestimo/internal/models"
)

// AllThreads subscribes a sink to every analysis thread on the bus.
const AllThreads = "*"

// Subscription is a live attachment to the event bus. Events arrive on C
// until Cancel is called; a subscriber that stops draining C has events
// dropped rather than blocking the pipeline.
type Subscription struct {
	C      <-chan models.StreamEvent
	Cancel func()
}

// EventService is the pub/sub bus carrying analysis stream frames from the
// pipeline to SSE and websocket subscribers.
type EventService interface {
	// Subscribe attaches a buffered subscriber to one analysis thread, or to
	// all threads when threadID is AllThreads.
	Subscribe(threadID string) *Subscription

	// Publish fans the event out to matching subscribers without blocking.
	Publish(event models.StreamEvent)

	// Close cancels every subscription.
	Close() error
}
