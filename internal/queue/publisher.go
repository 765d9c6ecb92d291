package queue

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

// Published is one event captured by a Recorder.
type Published struct {
	Exchange string
	Key      string
	Event    any
}

// Recorder keeps published events in memory. Tests and the dev server use it.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Exchange: exchange, Key: key, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events(key string) []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Published
	for _, e := range r.events {
		if key == "" || e.Key == key {
			out = append(out, e)
		}
	}
	return out
}
