package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by Dequeue when no message arrived before the timeout.
var ErrEmpty = errors.New("queue is empty")

// Queue is a durable FIFO of opaque messages shared between publishers and
// worker processes.
type Queue interface {
	Enqueue(ctx context.Context, queue string, message []byte) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
	Len(ctx context.Context, queue string) (int64, error)
	Close() error
}
