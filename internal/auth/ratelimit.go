// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login rate limiting defaults.
const (
	// DefaultAttemptWindow is the sliding window in which failures are counted.
	DefaultAttemptWindow = 15 * time.Minute

	// DefaultMaxFailures is the number of failures within the window that
	// blocks an address.
	DefaultMaxFailures = 5

	// DefaultBlockDuration is how long a blocked address stays blocked.
	DefaultBlockDuration = 30 * time.Minute

	// DefaultLimiterCleanupInterval is how often idle addresses are dropped.
	DefaultLimiterCleanupInterval = 5 * time.Minute
)

// AttemptLimiter tracks login attempts per client address. Implementations
// must be safe for concurrent use.
type AttemptLimiter interface {
	// IsBlocked reports whether addr is currently blocked. A lapsed block is
	// cleared together with the address's attempt history.
	IsBlocked(addr string) bool

	// RecordAttempt records an attempt and returns true if it caused a new block.
	RecordAttempt(addr string, success bool) bool

	// RemainingAttempts returns how many more failures addr may make before
	// being blocked.
	RemainingAttempts(addr string) int
}

// LimiterConfig configures a MemoryLimiter. Zero values use the defaults.
type LimiterConfig struct {
	Window          time.Duration
	MaxFailures     int
	BlockDuration   time.Duration
	CleanupInterval time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// Registerer receives the limiter metrics when non-nil.
	Registerer prometheus.Registerer
}

type attempt struct {
	at      time.Time
	success bool
}

// addressRecord is the rate limit state of one address.
type addressRecord struct {
	attempts     []attempt
	blockedUntil time.Time
}

// MemoryLimiter is a single-process AttemptLimiter. State lives in a map
// guarded by one mutex so concurrent attempts from one address are all
// counted.
//
// A background goroutine drops idle addresses. Call Close to stop it.
type MemoryLimiter struct {
	mu          sync.Mutex
	records     map[string]*addressRecord
	window      time.Duration
	maxFailures int
	block       time.Duration
	now         func() time.Time

	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	addresses prometheus.Gauge
	blocks    prometheus.Counter
	attempts  *prometheus.CounterVec
}

// NewMemoryLimiter creates a MemoryLimiter and starts its cleanup goroutine.
func NewMemoryLimiter(cfg LimiterConfig) *MemoryLimiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultAttemptWindow
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = DefaultBlockDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultLimiterCleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &MemoryLimiter{
		records:     make(map[string]*addressRecord),
		window:      cfg.Window,
		maxFailures: cfg.MaxFailures,
		block:       cfg.BlockDuration,
		now:         cfg.Now,
		stopChan:    make(chan struct{}),
	}

	if cfg.Registerer != nil {
		l.addresses = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patrolhub_login_limiter_addresses",
			Help: "Current number of client addresses tracked by the login limiter",
		})
		l.blocks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patrolhub_login_limiter_blocks_total",
			Help: "Total number of client addresses blocked after repeated login failures",
		})
		l.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patrolhub_login_attempts_total",
			Help: "Total number of recorded login attempts by outcome",
		}, []string{"outcome"})
		cfg.Registerer.MustRegister(l.addresses, l.blocks, l.attempts)
	}

	l.wg.Add(1)
	go l.cleanupLoop(cfg.CleanupInterval)

	return l
}

// IsBlocked reports whether addr is blocked. A served block forgives the
// address's earlier failures.
func (l *MemoryLimiter) IsBlocked(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[addr]
	if !ok || rec.blockedUntil.IsZero() {
		return false
	}
	if l.now().Before(rec.blockedUntil) {
		return true
	}
	rec.blockedUntil = time.Time{}
	rec.attempts = nil
	return false
}

// RecordAttempt prunes expired attempts, appends this one and blocks addr
// when failures in the window reach the maximum. Success does not clear
// earlier failures.
func (l *MemoryLimiter) RecordAttempt(addr string, success bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[addr]
	if !ok {
		rec = &addressRecord{}
		l.records[addr] = rec
		l.setAddressGauge()
	}
	l.prune(rec, now)
	rec.attempts = append(rec.attempts, attempt{at: now, success: success})

	if l.attempts != nil {
		outcome := "failure"
		if success {
			outcome = "success"
		}
		l.attempts.WithLabelValues(outcome).Inc()
	}

	if failures(rec) >= l.maxFailures {
		rec.blockedUntil = now.Add(l.block)
		if l.blocks != nil {
			l.blocks.Inc()
		}
		return true
	}
	return false
}

// RemainingAttempts returns max(0, maxFailures - failures in window).
func (l *MemoryLimiter) RemainingAttempts(addr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[addr]
	if !ok {
		return l.maxFailures
	}
	l.prune(rec, l.now())
	return max(0, l.maxFailures-failures(rec))
}

// AddressCount returns the number of tracked addresses.
func (l *MemoryLimiter) AddressCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Cleanup drops addresses with no attempts inside the window and no active
// block.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, rec := range l.records {
		l.prune(rec, now)
		if len(rec.attempts) == 0 && !now.Before(rec.blockedUntil) {
			delete(l.records, addr)
		}
	}
	l.setAddressGauge()
}

// Close stops the cleanup goroutine and waits for it to exit.
func (l *MemoryLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// prune drops attempts older than the window. Caller holds l.mu.
func (l *MemoryLimiter) prune(rec *addressRecord, now time.Time) {
	cutoff := now.Add(-l.window)
	kept := rec.attempts[:0]
	for _, a := range rec.attempts {
		if a.at.After(cutoff) {
			kept = append(kept, a)
		}
	}
	rec.attempts = kept
}

// setAddressGauge updates the tracked address gauge. Caller holds l.mu.
func (l *MemoryLimiter) setAddressGauge() {
	if l.addresses != nil {
		l.addresses.Set(float64(len(l.records)))
	}
}

func failures(rec *addressRecord) int {
	n := 0
	for _, a := range rec.attempts {
		if !a.success {
			n++
		}
	}
	return n
}

// Compile-time interface check.
var _ AttemptLimiter = (*MemoryLimiter)(nil)
