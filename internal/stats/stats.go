// Package stats tracks per-run extraction counters.
package stats

import (
	"sync"

	"go.uber.org/zap"
)

// Collector accumulates counters over one pipeline run. Safe for concurrent
// use; extraction is serial today but the webhook dispatcher is not.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// Snapshot is a point-in-time view of run counters.
type Snapshot struct {
	Scraped         int `json:"scraped"`
	Skipped         int `json:"skipped"` // robots-denied
	CaptchaBlocked  int `json:"captcha_blocked"`
	TransportErrors int `json:"transport_errors"`
	NoPhone         int `json:"no_phone"`
	InvalidPhone    int `json:"invalid_phone"`
	EmailsFound     int `json:"emails_found"`
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) add(f func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.s)
}

func (c *Collector) Scraped()        { c.add(func(s *Snapshot) { s.Scraped++ }) }
func (c *Collector) Skipped()        { c.add(func(s *Snapshot) { s.Skipped++ }) }
func (c *Collector) CaptchaBlocked() { c.add(func(s *Snapshot) { s.CaptchaBlocked++ }) }
func (c *Collector) TransportError() { c.add(func(s *Snapshot) { s.TransportErrors++ }) }
func (c *Collector) NoPhone()        { c.add(func(s *Snapshot) { s.NoPhone++ }) }
func (c *Collector) InvalidPhone()   { c.add(func(s *Snapshot) { s.InvalidPhone++ }) }
func (c *Collector) EmailFound()     { c.add(func(s *Snapshot) { s.EmailsFound++ }) }

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// Log emits the final counters at run end.
func (c *Collector) Log() {
	s := c.Snapshot()
	zap.L().Info("run complete",
		zap.Int("scraped", s.Scraped),
		zap.Int("skipped", s.Skipped),
		zap.Int("captcha_blocked", s.CaptchaBlocked),
		zap.Int("transport_errors", s.TransportErrors),
		zap.Int("no_phone", s.NoPhone),
		zap.Int("invalid_phone", s.InvalidPhone),
		zap.Int("emails_found", s.EmailsFound),
	)
}
