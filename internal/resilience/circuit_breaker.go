// Package resilience implements the registry client's failure-handling
// pipeline: a sliding-window circuit breaker and jittered retry, composed
// the way the teacher framework's resilience package composes them, but
// keyed per upstream host and seeded from crypto/rand instead of a
// trigonometric pseudo-jitter.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
)

// CircuitState is one of Closed, Open, or HalfOpen.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned by Execute when the breaker rejects a call
// without running it.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// CircuitBreakerConfig tunes the sliding-window evaluation and recovery
// probing.
type CircuitBreakerConfig struct {
	Name             string
	ErrorThreshold   float64       // error rate in [0,1] that trips the breaker
	VolumeThreshold  int           // minimum requests in the window before evaluating
	WindowSize       time.Duration // sliding window duration
	BucketCount      int           // number of buckets the window is divided into
	OpenDuration     time.Duration // how long the breaker stays open before probing
	HalfOpenRequests int           // trial requests allowed per half-open period
	SuccessThreshold float64       // success rate in half-open needed to close
	Logger           logging.Logger
}

// DefaultCircuitBreakerConfig mirrors spec.md §5's resilience defaults.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             name,
		ErrorThreshold:   0.5,
		VolumeThreshold:  5,
		WindowSize:       30 * time.Second,
		BucketCount:      10,
		OpenDuration:     15 * time.Second,
		HalfOpenRequests: 3,
		SuccessThreshold: 0.6,
		Logger:           logging.NoOp{},
	}
}

// CircuitBreaker guards a single upstream dependency. One instance should
// be shared across every call to that dependency; HostBreakers below keys
// a breaker per host for callers that talk to more than one upstream.
type CircuitBreaker struct {
	config *CircuitBreakerConfig
	window *slidingWindow

	mu             sync.Mutex
	state          CircuitState
	stateChangedAt time.Time

	halfOpenInFlight atomic.Int32
	halfOpenSuccess  atomic.Int32
	halfOpenFailure  atomic.Int32
}

// NewCircuitBreaker builds a breaker from config, filling in any zero
// values from DefaultCircuitBreakerConfig.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig("default")
	}
	if config.ErrorThreshold == 0 {
		config.ErrorThreshold = 0.5
	}
	if config.VolumeThreshold == 0 {
		config.VolumeThreshold = 5
	}
	if config.WindowSize == 0 {
		config.WindowSize = 30 * time.Second
	}
	if config.BucketCount == 0 {
		config.BucketCount = 10
	}
	if config.OpenDuration == 0 {
		config.OpenDuration = 15 * time.Second
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 3
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 0.6
	}
	if config.Logger == nil {
		config.Logger = logging.NoOp{}
	}

	return &CircuitBreaker{
		config:         config,
		window:         newSlidingWindow(config.WindowSize, config.BucketCount),
		state:          StateClosed,
		stateChangedAt: time.Now(),
	}
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn if the breaker allows it, recording the outcome against
// the sliding window and advancing the state machine.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allow() {
		cb.config.Logger.InfoContext(ctx, "circuit breaker rejected call", map[string]interface{}{
			"breaker": cb.config.Name,
			"state":   cb.State().String(),
		})
		return fmt.Errorf("%s: %w", cb.config.Name, ErrCircuitOpen)
	}

	err := fn(ctx)
	cb.recordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.stateChangedAt) >= cb.config.OpenDuration {
			cb.transitionLocked(StateHalfOpen)
			cb.halfOpenInFlight.Store(0)
			cb.halfOpenSuccess.Store(0)
			cb.halfOpenFailure.Store(0)
		} else {
			return false
		}
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenInFlight.Load() >= int32(cb.config.HalfOpenRequests) {
			return false
		}
		cb.halfOpenInFlight.Add(1)
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordResult(success bool) {
	if success {
		cb.window.recordSuccess()
	} else {
		cb.window.recordFailure()
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		if success {
			cb.halfOpenSuccess.Add(1)
		} else {
			cb.halfOpenFailure.Add(1)
		}
		total := cb.halfOpenSuccess.Load() + cb.halfOpenFailure.Load()
		if total >= int32(cb.config.HalfOpenRequests) {
			rate := float64(cb.halfOpenSuccess.Load()) / float64(total)
			if rate >= cb.config.SuccessThreshold {
				cb.transitionLocked(StateClosed)
				cb.window.reset()
			} else {
				cb.transitionLocked(StateOpen)
			}
		}
	case StateClosed:
		successes, failures := cb.window.counts()
		totalReq := successes + failures
		if totalReq >= uint64(cb.config.VolumeThreshold) {
			errorRate := float64(failures) / float64(totalReq)
			if errorRate >= cb.config.ErrorThreshold {
				cb.transitionLocked(StateOpen)
			}
		}
	}
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.stateChangedAt = time.Now()
	cb.config.Logger.Info("circuit breaker state changed", map[string]interface{}{
		"breaker": cb.config.Name,
		"from":    from.String(),
		"to":      to.String(),
	})
}

// HostBreakers lazily creates and shares one CircuitBreaker per host key
// (typically the upstream authority, e.g. "pub.dev"), per spec.md §5's
// requirement that breaker state is process-wide and per-dependency.
type HostBreakers struct {
	factory func(name string) *CircuitBreakerConfig
	logger  logging.Logger
	mu      sync.Mutex
	byHost  map[string]*CircuitBreaker
}

// NewHostBreakers builds a registry of per-host breakers. factory may be
// nil to use DefaultCircuitBreakerConfig for every host.
func NewHostBreakers(logger logging.Logger, factory func(name string) *CircuitBreakerConfig) *HostBreakers {
	if logger == nil {
		logger = logging.NoOp{}
	}
	if factory == nil {
		factory = DefaultCircuitBreakerConfig
	}
	return &HostBreakers{
		factory: factory,
		logger:  logger,
		byHost:  make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for host, creating it on first use.
func (h *HostBreakers) For(host string) *CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cb, ok := h.byHost[host]; ok {
		return cb
	}

	cfg := h.factory(host)
	if cfg.Logger == nil {
		cfg.Logger = h.logger
	}
	cb := NewCircuitBreaker(cfg)
	h.byHost[host] = cb
	return cb
}

type bucket struct {
	successes uint64
	failures  uint64
	start     time.Time
}

// slidingWindow tracks success/failure counts over a rolling time window
// divided into fixed-size buckets, rotating out stale buckets lazily.
type slidingWindow struct {
	mu         sync.Mutex
	buckets    []bucket
	bucketSpan time.Duration
	cursor     int
}

func newSlidingWindow(windowSize time.Duration, bucketCount int) *slidingWindow {
	now := time.Now()
	buckets := make([]bucket, bucketCount)
	for i := range buckets {
		buckets[i].start = now
	}
	return &slidingWindow{
		buckets:    buckets,
		bucketSpan: windowSize / time.Duration(bucketCount),
	}
}

func (sw *slidingWindow) rotate() {
	now := time.Now()
	current := &sw.buckets[sw.cursor]
	if now.Sub(current.start) < sw.bucketSpan {
		return
	}
	elapsedBuckets := int(now.Sub(current.start) / sw.bucketSpan)
	if elapsedBuckets > len(sw.buckets) {
		elapsedBuckets = len(sw.buckets)
	}
	for i := 0; i < elapsedBuckets; i++ {
		sw.cursor = (sw.cursor + 1) % len(sw.buckets)
		sw.buckets[sw.cursor] = bucket{start: now}
	}
}

func (sw *slidingWindow) recordSuccess() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	sw.buckets[sw.cursor].successes++
}

func (sw *slidingWindow) recordFailure() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	sw.buckets[sw.cursor].failures++
}

func (sw *slidingWindow) counts() (successes, failures uint64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotate()
	for _, b := range sw.buckets {
		successes += b.successes
		failures += b.failures
	}
	return successes, failures
}

func (sw *slidingWindow) reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := time.Now()
	for i := range sw.buckets {
		sw.buckets[i] = bucket{start: now}
	}
}
