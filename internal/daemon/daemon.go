// Package daemon runs the full analysis pipeline once per trading day at
// a configured local time. Weekends are skipped; a failed run is retried
// a few times with jittered backoff, then waits for the next day.
package daemon

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxAttempts   = 3
	retryBaseWait = time.Minute
)

// RunFunc performs one full analysis run (scan, report, notify).
type RunFunc func(ctx context.Context) error

// Daemon schedules RunFunc on trading days.
type Daemon struct {
	hour, minute int
	loc          *time.Location
	run          RunFunc
	log          zerolog.Logger

	// overridable in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a daemon firing at runAt (HH:MM) in the given location.
func New(runAt string, loc *time.Location, run RunFunc, log zerolog.Logger) (*Daemon, error) {
	at, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, fmt.Errorf("daemon: run_at %q is not HH:MM: %w", runAt, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if run == nil {
		return nil, fmt.Errorf("daemon: run function is required")
	}
	return &Daemon{
		hour:   at.Hour(),
		minute: at.Minute(),
		loc:    loc,
		run:    run,
		log:    log,
		now:    time.Now,
		sleep:  sleepCtx,
	}, nil
}

// Run blocks until ctx is cancelled, firing the pipeline each trading
// day at the configured time.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info().
		Str("run_at", fmt.Sprintf("%02d:%02d", d.hour, d.minute)).
		Str("timezone", d.loc.String()).
		Msg("daemon started")

	for {
		next := NextRun(d.now().In(d.loc), d.hour, d.minute)
		d.log.Info().Time("next_run", next).Msg("waiting for next trading-day run")

		if err := d.sleep(ctx, next.Sub(d.now())); err != nil {
			d.log.Info().Msg("daemon stopped")
			return err
		}

		d.runWithRetry(ctx)
	}
}

// runWithRetry attempts the run a few times before giving up until the
// next scheduled day.
func (d *Daemon) runWithRetry(ctx context.Context) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		started := d.now()
		err := d.run(ctx)
		if err == nil {
			d.log.Info().Dur("elapsed", d.now().Sub(started)).Msg("scheduled run finished")
			return
		}
		if ctx.Err() != nil {
			return
		}

		d.log.Error().Err(err).Int("attempt", attempt).Msg("scheduled run failed")
		if attempt == maxAttempts {
			d.log.Error().Msg("giving up until next scheduled run")
			return
		}

		// Jitter spreads retries so restarts do not hammer the data
		// sources in lockstep.
		wait := retryBaseWait*time.Duration(attempt) + time.Duration(rand.Int63n(int64(30*time.Second)))
		if err := d.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// NextRun returns the next weekday occurrence of hh:mm strictly after
// now. A-share markets close on Saturday and Sunday; holidays are not
// modelled, a holiday run just reports stale candles.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
