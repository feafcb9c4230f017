package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a settable time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to Wednesday 2024-06-12 12:00 UTC,
// inside the week bucket 2024-06-09.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential run ids: "run-1", "run-2", ...
type StubIDGenerator struct {
	mu sync.Mutex
	n  int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("run-%d", g.n)
}
