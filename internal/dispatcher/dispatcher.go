// Package dispatcher serializes broker order calls through a single
// background worker, pacing requests and retrying transient failures.
package dispatcher

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrSkip is returned by a Job to signal that the dispatch should be
// skipped without retry — e.g. a blackout window started, or trading was
// disabled, between the time the job was queued and the time it ran.
var ErrSkip = errors.New("dispatch skipped")

// Job is the unit of work submitted to the Dispatcher. It is invoked on
// the worker goroutine, never concurrently with another Job.
type Job func() (interface{}, error)

type job struct {
	description string
	factory     Job
	result      chan Result
}

// Result is a Job's outcome, delivered on the channel SubmitAsync returns.
type Result struct {
	Value interface{}
	Err   error
}

// Config tunes pacing and retry behavior.
type Config struct {
	MinInterval time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultConfig mirrors the venue's defaults: 1.1s between sends, up to 3
// retries, 1s base backoff.
func DefaultConfig() Config {
	return Config{MinInterval: 1100 * time.Millisecond, MaxRetries: 3, BaseBackoff: time.Second}
}

// Dispatcher runs one worker goroutine that drains a FIFO of Jobs,
// respecting MinInterval between successful sends and retrying transient
// failures with exponential backoff.
type Dispatcher struct {
	cfg      Config
	queue    chan *job
	stopped  chan struct{}
	started  bool
	startCh  chan struct{}
	lastSent time.Time
	isRetry  func(error) (retry bool)
}

// NewDispatcher builds a Dispatcher. isRetryable classifies an error
// returned by a Job's factory as retryable (429/5xx-equivalent) or not;
// pass nil to retry every non-ErrSkip error.
func NewDispatcher(cfg Config, isRetryable func(error) bool) *Dispatcher {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultConfig().MinInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultConfig().BaseBackoff
	}
	d := &Dispatcher{
		cfg:     cfg,
		queue:   make(chan *job, 256),
		stopped: make(chan struct{}),
		isRetry: isRetryable,
	}
	if d.isRetry == nil {
		d.isRetry = func(error) bool { return true }
	}
	return d
}

// Start launches the worker goroutine if it has not already been started.
func (d *Dispatcher) Start() {
	if d.started {
		return
	}
	d.started = true
	go d.run()
}

// Submit starts the worker lazily, enqueues factory, and blocks until it
// has been executed (possibly after retries), returning its result.
func (d *Dispatcher) Submit(description string, factory Job) (interface{}, error) {
	r := <-d.SubmitAsync(description, factory)
	return r.Value, r.Err
}

// SubmitAsync starts the worker lazily and enqueues factory, sending to
// d.queue on the caller's own goroutine before returning — so callers
// that need to preserve submission order across concurrent goroutines
// can enqueue synchronously and wait on the returned channel separately.
func (d *Dispatcher) SubmitAsync(description string, factory Job) <-chan Result {
	d.Start()
	j := &job{description: description, factory: factory, result: make(chan Result, 1)}
	d.queue <- j
	return j.result
}

// Stop enqueues a sentinel that ends the worker loop after any in-flight
// job completes, and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	if !d.started {
		return
	}
	close(d.queue)
	<-d.stopped
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for j := range d.queue {
		d.waitForPacing()
		value, err := d.executeWithRetry(j)
		j.result <- Result{Value: value, Err: err}
	}
}

func (d *Dispatcher) waitForPacing() {
	if d.lastSent.IsZero() {
		return
	}
	wait := d.cfg.MinInterval - time.Since(d.lastSent)
	if wait > 0 {
		time.Sleep(wait)
	}
}

func (d *Dispatcher) executeWithRetry(j *job) (interface{}, error) {
	attempt := 0
	for {
		value, err := j.factory()
		if err == nil {
			d.lastSent = time.Now()
			return value, nil
		}
		if errors.Is(err, ErrSkip) {
			return nil, nil
		}
		attempt++
		if !d.isRetry(err) || attempt > d.cfg.MaxRetries {
			log.Error().Err(err).Str("job", j.description).Int("attempt", attempt).Msg("order dispatch failed")
			return nil, err
		}
		delay := backoff(d.cfg.BaseBackoff, attempt)
		log.Warn().Err(err).Str("job", j.description).Int("attempt", attempt).Int("maxRetries", d.cfg.MaxRetries).Dur("delay", delay).Msg("order dispatch retrying")
		time.Sleep(delay)
	}
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
