package queue

import "context"

// Queue is an ordered hand-off between the transport goroutines and the
// consumers in pkg/game.
type Queue interface {
	// Enqueue adds an item to the end of the queue. It fails when the
	// queue is full rather than blocking the caller.
	Enqueue(item interface{}) error
	// Dequeue blocks until an item is available or the context is done.
	Dequeue(ctx context.Context) (interface{}, error)
	// Size returns the number of items currently queued.
	Size() int
}
