// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
)

// MemoryBus is an in-process pub/sub. Publish waits for subscriber buffer
// space until ctx is done; Broadcast never waits. Neither holds the bus lock
// while delivering, so a slow subscriber never stalls Subscribe or Close.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

const (
	dropLogEvery  = 100
	defaultBuffer = 64
)

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(defaultBuffer)
}

// NewMemoryBusWithBuffer sets the per-subscriber channel capacity.
func NewMemoryBusWithBuffer(n int) *MemoryBus {
	if n <= 0 {
		n = defaultBuffer
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: n}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func noteDrop(topic, reason string) {
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 0 {
		log.L().Warn().
			Str(log.FieldEvent, "bus.drop").
			Str(log.FieldTopic, topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped messages")
	}
}

// subscribers copies the topic's subscriber list so delivery can run
// without the bus lock.
func (b *MemoryBus) subscribers(topic string) []*memSub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*memSub(nil), b.subs[topic]...)
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	for _, s := range b.subscribers(topic) {
		if err := s.send(ctx, msg); err != nil {
			noteDrop(topic, publishDropReason(err))
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	return nil
}

// Broadcast hands msg to every subscriber with buffer space and drops it for
// the rest. It returns the number of deliveries.
func (b *MemoryBus) Broadcast(topic string, msg Message) int {
	delivered := 0
	for _, s := range b.subscribers(topic) {
		ok, closed := s.trySend(msg)
		switch {
		case ok:
			delivered++
		case !closed:
			noteDrop(topic, "full")
		}
	}
	return delivered
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	s := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Message, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	return s, nil
}

// memSub guards ch with sendMu: senders hold the read side, Close takes the
// write side after done has released any sender still waiting.
type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once

	sendMu sync.RWMutex
	closed bool
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

// send waits for buffer space. A subscriber closed mid-wait counts as
// delivered.
func (s *memSub) send(ctx context.Context, msg Message) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) trySend(msg Message) (ok, closed bool) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return false, true
	}
	select {
	case s.ch <- msg:
		return true, false
	default:
		return false, false
	}
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := make([]*memSub, 0, len(lst))
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		close(s.done)
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
	})
	return nil
}

var (
	_ Bus         = (*MemoryBus)(nil)
	_ Broadcaster = (*MemoryBus)(nil)
)
