// Package scheduler spreads callback load across a fleet without any
// coordination: each host derives a fixed offset inside the configured
// interval from a digest of its own hostname, so distinct hosts land at
// distinct times while a single host always calls back at the same offset.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/driftwatch/provision-relay/internal/agent/callback"
	"github.com/driftwatch/provision-relay/pkg/logger"
)

// DelayFor computes the host's deterministic offset within the interval.
// SHA-256 keeps the result identical across platforms and restarts; the first
// eight digest bytes are read big-endian and reduced modulo the interval in
// whole seconds.
func DelayFor(hostname string, interval time.Duration) time.Duration {
	sum := sha256.Sum256([]byte(hostname))
	n := binary.BigEndian.Uint64(sum[:8])
	seconds := uint64(interval / time.Second)
	if seconds == 0 {
		return 0
	}
	return time.Duration(n%seconds) * time.Second
}

// Caller performs one callback against the relay.
type Caller interface {
	Do(ctx context.Context, hostname string) callback.Result
}

// Scheduler drives the daemon loop: sleep to the host's offset, call the
// relay once, then sleep out the remainder of the interval. Every cycle spans
// the full interval regardless of the callback's own latency, so drift
// accumulates by at most that latency per cycle, which is accepted.
type Scheduler struct {
	hostname string
	interval time.Duration
	caller   Caller
	clock    clockwork.Clock
	logger   *logger.CanonicalLogger
}

func New(hostname string, interval time.Duration, caller Caller, clock clockwork.Clock, log *logger.CanonicalLogger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		hostname: hostname,
		interval: interval,
		caller:   caller,
		clock:    clock,
		logger:   log.Component("scheduler"),
	}
}

// Run executes the loop until the context is cancelled. Failures never abort
// the loop; the next scheduled cycle is the retry mechanism.
func (s *Scheduler) Run(ctx context.Context) error {
	delay := DelayFor(s.hostname, s.interval)
	s.logger.Info("scheduler started",
		logger.String(logger.FieldHostname, s.hostname),
		logger.Duration(logger.FieldInterval, s.interval),
		logger.Int64(logger.FieldDelaySeconds, int64(delay/time.Second)),
	)

	for {
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}

		result := s.caller.Do(ctx, s.hostname)
		switch result.Outcome {
		case callback.Success:
			s.logger.Info("callback cycle complete",
				logger.String(logger.FieldOutcome, result.Outcome.String()),
				logger.Int(logger.FieldJobID, result.JobID),
			)
		case callback.SoftFailure:
			s.logger.Info("callback deferred until next cycle",
				logger.String(logger.FieldOutcome, result.Outcome.String()),
			)
		case callback.HardFailure:
			s.logger.WithError(result.Err).Error("callback failed, waiting for next cycle",
				logger.String(logger.FieldOutcome, result.Outcome.String()),
				logger.Int("status", result.Status),
			)
		}

		remainder := s.interval - delay
		if remainder < 0 {
			remainder = 0
		}
		if err := s.sleep(ctx, remainder); err != nil {
			return err
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
