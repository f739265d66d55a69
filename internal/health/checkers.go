// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Pinger is implemented by backends that can be probed.
type Pinger interface {
	Health(ctx context.Context) error
}

// PingChecker reports a backend unhealthy when its probe fails.
type PingChecker struct {
	name string
	p    Pinger
}

func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, p: p}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.p.Health(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// TickChecker watches the age of the last timing tick. No tick yet is
// unhealthy; a tick older than stale intervals is degraded.
type TickChecker struct {
	lastTick func() time.Time
	interval func() time.Duration
	stale    int
	now      func() time.Time
}

func NewTickChecker(lastTick func() time.Time, interval func() time.Duration) *TickChecker {
	return &TickChecker{lastTick: lastTick, interval: interval, stale: 5, now: time.Now}
}

func (c *TickChecker) Name() string { return "timing_ticker" }

func (c *TickChecker) Check(context.Context) CheckResult {
	last := c.lastTick()
	if last.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no tick yet"}
	}
	age := c.now().Sub(last)
	if limit := time.Duration(c.stale) * c.interval(); age > limit {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last tick %s ago, expected every %s", age.Round(time.Millisecond), c.interval()),
		}
	}
	return CheckResult{Status: StatusHealthy}
}

// DirChecker checks that a directory exists. An empty path is not configured.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy}
}
