package command

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned by Submit and Post after Close.
var ErrQueueClosed = errors.New("command queue closed")

// ErrQueueFull is returned by Post when no slot is free.
var ErrQueueFull = errors.New("command queue full")

// Request is a command waiting to be applied by the queue's consumer.
type Request struct {
	Cmd    Command
	Source string // e.g. "mqtt", "http"
	done   chan error
	result func(error)
}

// Done reports the outcome to the submitter. It must be called exactly once.
func (r *Request) Done(err error) {
	if r.result != nil {
		r.result(err)
	}
	r.done <- err
}

// Queue hands commands from any goroutine to a single consumer, so a control
// handle only ever sees one caller.
type Queue struct {
	reqs   chan *Request
	closed chan struct{}
}

// NewQueue creates a queue holding up to size pending commands.
func NewQueue(size int) *Queue {
	return &Queue{
		reqs:   make(chan *Request, size),
		closed: make(chan struct{}),
	}
}

// C returns the channel the consumer reads requests from.
func (q *Queue) C() <-chan *Request {
	return q.reqs
}

// Submit enqueues cmd and waits until the consumer has applied it.
func (q *Queue) Submit(ctx context.Context, source string, cmd Command) error {
	req := &Request{Cmd: cmd, Source: source, done: make(chan error, 1)}

	select {
	case q.reqs <- req:
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post enqueues cmd without waiting for it to be applied. Commands posted
// from one goroutine are applied in order. The outcome is passed to result,
// if non-nil, from the consumer's goroutine.
func (q *Queue) Post(source string, cmd Command, result func(error)) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	req := &Request{Cmd: cmd, Source: source, done: make(chan error, 1), result: result}
	select {
	case q.reqs <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting commands and releases waiting submitters.
func (q *Queue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
}
