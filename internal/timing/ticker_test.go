// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/rundownd/internal/bus"
	"github.com/ManuGH/rundownd/internal/rundown"
)

type staticSource struct {
	mu     sync.Mutex
	inputs []Input
}

func (s *staticSource) TimingInputs() []Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Input(nil), s.inputs...)
}

func (s *staticSource) set(in ...Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = in
}

func fixedClock() time.Time { return time.UnixMilli(testNow) }

func drain(ch <-chan bus.Message) []bus.Message {
	var out []bus.Message
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestTickerEmitsLowResolutionEveryFifteenthTick(t *testing.T) {
	b := bus.NewMemoryBus()
	hr, err := b.Subscribe(context.Background(), bus.TopicTimeUpdateHR)
	require.NoError(t, err)
	defer hr.Close()
	lr, err := b.Subscribe(context.Background(), bus.TopicTimeUpdate)
	require.NoError(t, err)
	defer lr.Close()

	src := &staticSource{}
	src.set(threePartLoop(true))
	tk := NewTicker(src, b, TickerConfig{Clock: fixedClock})

	var low []int
	for i := 0; i < 31; i++ {
		if tk.Tick() {
			low = append(low, i)
		}
	}

	assert.Equal(t, []int{0, 15, 30}, low)
	assert.Len(t, drain(hr.C()), 31)
	lowEvents := drain(lr.C())
	require.Len(t, lowEvents, 3)
	assert.Equal(t, TimeEvent{CurrentTime: testNow}, lowEvents[0])
}

func TestTickerKeepsLatestContextPerPlaylist(t *testing.T) {
	src := &staticSource{}
	src.set(threePartLoop(true))
	tk := NewTicker(src, bus.NewMemoryBus(), TickerConfig{Clock: fixedClock})

	tk.Tick()
	ctx, ok := tk.Latest("pl")
	require.True(t, ok)
	assert.Equal(t, testNow, ctx.CurrentTime)
	assert.True(t, ctx.IsLowResolution)

	tk.Tick()
	ctx, ok = tk.Latest("pl")
	require.True(t, ok)
	assert.False(t, ctx.IsLowResolution)

	src.set()
	tk.Tick()
	_, ok = tk.Latest("pl")
	assert.False(t, ok)
	assert.Empty(t, tk.calcs)
}

func TestTickerSkipsInputsWithoutPlaylist(t *testing.T) {
	src := &staticSource{}
	src.set(Input{Parts: []rundown.Part{part("a", 1)}})
	tk := NewTicker(src, bus.NewMemoryBus(), TickerConfig{Clock: fixedClock})
	tk.Tick()
	assert.Empty(t, tk.calcs)
}

func TestTickerRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	hr, err := b.Subscribe(context.Background(), bus.TopicTimeUpdateHR)
	require.NoError(t, err)
	defer hr.Close()

	src := &staticSource{}
	src.set(threePartLoop(false))
	tk := NewTicker(src, b, TickerConfig{Interval: time.Millisecond, Clock: fixedClock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()

	select {
	case <-hr.C():
	case <-time.After(2 * time.Second):
		t.Fatal("no tick observed")
	}
	tk.SetInterval(2 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, tk.Interval())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestTickerRecordsLastTick(t *testing.T) {
	tk := NewTicker(&staticSource{}, bus.NewMemoryBus(), TickerConfig{Clock: fixedClock})
	assert.True(t, tk.LastTick().IsZero())

	before := time.Now()
	tk.Tick()
	assert.False(t, tk.LastTick().Before(before))
}
