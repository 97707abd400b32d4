// Package scheduler runs the bot's recurring jobs on self-rearming
// one-shot timers: compute the delay until the first firing, fire once,
// re-arm for a fixed repeat interval. Jobs are constructed once at startup
// and passed by reference; there is no name-keyed global registry.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrStartTimePassed is the fatal configuration error: a job's computed
// initial delay is negative. It is raised once at startup and not retried.
var ErrStartTimePassed = errors.New("scheduler: start time already passed")

// Job is one recurring task.
type Job struct {
	Name string

	// StartDelay computes the delay until the first firing. A negative
	// result is a fatal misconfiguration.
	StartDelay func(now time.Time) time.Duration

	// Every is the fixed repeat interval armed after each firing.
	Every time.Duration

	Run func(ctx context.Context) error
}

// Runner owns the timers. A payload failure is logged and the job is
// re-armed regardless, so one bad cycle never stops a job for good.
type Runner struct {
	log zerolog.Logger
	now func() time.Time

	mu      sync.Mutex
	jobs    []*Job
	timers  map[string]*time.Timer
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(log zerolog.Logger) *Runner {
	return &Runner{
		log:    log.With().Str("comp", "scheduler").Logger(),
		now:    time.Now,
		timers: map[string]*time.Timer{},
	}
}

// SetClock replaces the time source. For tests.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Add registers jobs. Must be called before Start.
func (r *Runner) Add(jobs ...*Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobs...)
}

// Start computes every job's initial delay and arms the timers. A negative
// delay fails the whole startup before any timer is armed.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("scheduler: already started")
	}

	now := r.now()
	delays := make([]time.Duration, len(r.jobs))
	for i, j := range r.jobs {
		d := j.StartDelay(now)
		if d < 0 {
			return fmt.Errorf("%w: job %s (delay %v)", ErrStartTimePassed, j.Name, d)
		}
		delays[i] = d
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
	for i, j := range r.jobs {
		r.armLocked(j, delays[i])
		r.log.Info().
			Str("job", j.Name).
			Dur("first_in", delays[i]).
			Dur("every", j.Every).
			Msg("job armed")
	}
	return nil
}

// armLocked arms a one-shot timer for the job. Call with r.mu held.
func (r *Runner) armLocked(j *Job, delay time.Duration) {
	r.timers[j.Name] = time.AfterFunc(delay, func() { r.fire(j) })
}

func (r *Runner) fire(j *Job) {
	// The started check and the wg.Add must happen under one lock hold:
	// Stop flips started under the same lock before it waits, so either
	// this firing is counted or it never runs.
	r.mu.Lock()
	ctx := r.ctx
	if !r.started || ctx == nil || ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.runPayload(ctx, j)
	r.wg.Done()

	// Re-arm unconditionally so a single failure does not stop the job.
	r.mu.Lock()
	if r.started && r.ctx != nil && r.ctx.Err() == nil {
		r.armLocked(j, j.Every)
	}
	r.mu.Unlock()
}

func (r *Runner) runPayload(ctx context.Context, j *Job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("job", j.Name).
				Any("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("panic in job payload")
		}
	}()

	start := r.now()
	r.log.Info().Str("job", j.Name).Msg("job fired")
	if err := j.Run(ctx); err != nil {
		r.log.Error().Str("job", j.Name).Err(err).Msg("job payload failed")
		return
	}
	r.log.Debug().Str("job", j.Name).Dur("took", r.now().Sub(start)).Msg("job payload done")
}

// RunNow fires a job's payload immediately, outside its schedule. The
// armed timer is untouched. Used by the admin surface.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	var job *Job
	for _, j := range r.jobs {
		if j.Name == name {
			job = j
			break
		}
	}
	r.mu.Unlock()
	if job == nil {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	return job.Run(ctx)
}

// JobNames lists registered jobs in registration order.
func (r *Runner) JobNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.Name)
	}
	return names
}

// Stop stops arming new timers and waits for in-flight payloads to
// complete. Jobs otherwise run for the process lifetime.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	if r.cancel != nil {
		r.cancel()
	}
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info().Msg("scheduler stopped")
}
