// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/rundownd/internal/bus"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
)

const (
	// DefaultRefreshInterval is the high-resolution tick period (60 Hz).
	DefaultRefreshInterval = time.Second / 60
	// LowResolutionDecimator flags every Nth tick, starting with the first,
	// as a low-resolution tick.
	LowResolutionDecimator = 15
)

// Source supplies the pre-fetched inputs of every playlist to compute.
// Now and IsLowResolution are filled in by the Ticker.
type Source interface {
	TimingInputs() []Input
}

// TickerConfig configures a Ticker.
type TickerConfig struct {
	Interval               time.Duration
	DefaultDisplayDuration int64
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Ticker recomputes timing for every playlist on a fixed cadence and emits
// the time update notifications.
type Ticker struct {
	src             Source
	out             bus.Broadcaster
	clock           func() time.Time
	defaultDuration int64

	mu        sync.RWMutex
	interval  time.Duration
	latest    map[rundown.PlaylistID]*Context
	resetCh   chan time.Duration
	decimator uint64
	calcs     map[rundown.PlaylistID]*Calculator
	lastTick  time.Time

	overrunLog rate.Sometimes
}

// NewTicker returns a Ticker publishing to out.
func NewTicker(src Source, out bus.Broadcaster, cfg TickerConfig) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Ticker{
		src:             src,
		out:             out,
		clock:           cfg.Clock,
		defaultDuration: cfg.DefaultDisplayDuration,
		interval:        cfg.Interval,
		latest:          make(map[rundown.PlaylistID]*Context),
		resetCh:         make(chan time.Duration, 1),
		calcs:           make(map[rundown.PlaylistID]*Calculator),
		overrunLog:      rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Interval returns the current tick period.
func (t *Ticker) Interval() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interval
}

// SetInterval changes the tick period of a running ticker.
func (t *Ticker) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultRefreshInterval
	}
	t.mu.Lock()
	if t.interval == d {
		t.mu.Unlock()
		return
	}
	t.interval = d
	t.mu.Unlock()

	select {
	case t.resetCh <- d:
	default:
		// A pending reset is applied with the latest interval anyway.
	}
}

// LastTick returns the wall time of the last finished tick, zero before the first.
func (t *Ticker) LastTick() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTick
}

// Latest returns the most recent context computed for a playlist.
func (t *Ticker) Latest(id rundown.PlaylistID) (*Context, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.latest[id]
	return c, ok
}

// Run ticks immediately and then on every interval until ctx is done.
func (t *Ticker) Run(ctx context.Context) error {
	logger := log.WithComponent("timing")
	interval := t.Interval()
	logger.Info().
		Str(log.FieldEvent, "timing.ticker.start").
		Dur("interval", interval).
		Msg("timing ticker started")

	tk := time.NewTicker(interval)
	defer tk.Stop()

	t.Tick()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Str(log.FieldEvent, "timing.ticker.stop").Msg("timing ticker stopped")
			return nil
		case <-t.resetCh:
			d := t.Interval()
			tk.Reset(d)
			logger.Info().
				Str(log.FieldEvent, "timing.ticker.interval").
				Dur("interval", d).
				Msg("timing interval changed")
		case <-tk.C:
			t.Tick()
		}
	}
}

// Tick performs one recompute of every playlist and publishes the
// notifications. It reports whether the tick was low resolution.
func (t *Ticker) Tick() bool {
	start := time.Now()
	now := t.clock().UnixMilli()

	t.mu.Lock()
	isLowResolution := t.decimator%LowResolutionDecimator == 0
	t.mu.Unlock()

	inputs := t.src.TimingInputs()
	computed := make(map[rundown.PlaylistID]*Context, len(inputs))
	for _, in := range inputs {
		if in.Playlist == nil {
			continue
		}
		in.Now = now
		in.IsLowResolution = isLowResolution

		t.mu.Lock()
		calc, ok := t.calcs[in.Playlist.ID]
		if !ok {
			calc = NewCalculator(t.defaultDuration)
			t.calcs[in.Playlist.ID] = calc
		}
		t.mu.Unlock()

		computeStart := time.Now()
		computed[in.Playlist.ID] = calc.Compute(in)
		metrics.RecordTimingCompute(time.Since(computeStart))
	}

	t.mu.Lock()
	t.latest = computed
	for id := range t.calcs {
		if _, ok := computed[id]; !ok {
			delete(t.calcs, id)
		}
	}
	t.decimator++
	t.lastTick = start
	interval := t.interval
	t.mu.Unlock()

	event := TimeEvent{CurrentTime: now}
	t.out.Broadcast(bus.TopicTimeUpdateHR, event)
	if isLowResolution {
		t.out.Broadcast(bus.TopicTimeUpdate, event)
	}

	metrics.RecordTick(isLowResolution)
	metrics.SetTimingPlaylists(len(computed))
	if took := time.Since(start); took > interval {
		metrics.RecordTickOverrun()
		t.overrunLog.Do(func() {
			log.L().Warn().
				Str(log.FieldEvent, "timing.tick.overrun").
				Int64(log.FieldDurationMS, took.Milliseconds()).
				Dur("interval", interval).
				Int("playlists", len(computed)).
				Msg("timing recompute exceeded tick interval")
		})
	}
	return isLowResolution
}
