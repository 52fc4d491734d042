// Package forecast drives the forecast job lifecycle for one session:
// trigger a job, wait for new results, filter them by SKU and ingest
// uploaded datasets.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"grapeiq/internal/dashboard"
	"grapeiq/internal/session"
	"grapeiq/internal/util"
	"grapeiq/pkg/grapeiq"
)

// State is the workflow's position in the job lifecycle.
type State int

const (
	Idle State = iota
	JobTriggered
	Pending
	ResultsLoaded
	Filtered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case JobTriggered:
		return "job triggered"
	case Pending:
		return "pending"
	case ResultsLoaded:
		return "results loaded"
	case Filtered:
		return "filtered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the subset of the GrapeIQ client the workflow calls.
type API interface {
	RunForecast(ctx context.Context, sess *session.Session) error
	ForecastResults(ctx context.Context, sess *session.Session) ([]grapeiq.ForecastPoint, error)
	UploadDataset(ctx context.Context, sess *session.Session, filename string, r io.Reader) error
}

// Options tune how long Run waits for a job.
type Options struct {
	InitialDelay time.Duration // wait before the first poll
	PollInterval time.Duration // first backoff step
	MaxInterval  time.Duration // backoff cap, defaults to 8×PollInterval
	PollTimeout  time.Duration // give up and keep stale results
	// SettlePolls is how many consecutive polls must serve the pre-trigger
	// results unchanged before Run accepts them as the new job's output.
	// The job rewrites its rows, so a rerun on unchanged data is
	// indistinguishable from one that has not finished. Defaults to 3.
	SettlePolls int
}

// Result is what the chart should show after a workflow step.
type Result struct {
	Chart  dashboard.ForecastChart
	Filter string
	Points int
	// Stale is set when a job was triggered but its results did not show
	// up before the poll timeout; Chart holds the latest results seen.
	Stale bool
	State State
}

// Workflow holds the cached forecast rows and the active SKU filter.
// Methods are safe for concurrent use; network calls run without the lock.
type Workflow struct {
	api  API
	sess *session.Session
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	state  State
	points []grapeiq.ForecastPoint
	filter string
	stale  bool
}

// New creates a workflow in the Idle state.
func New(api API, sess *session.Session, opts Options, log *slog.Logger) *Workflow {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 8 * opts.PollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Minute
	}
	if opts.SettlePolls <= 0 {
		opts.SettlePolls = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{api: api, sess: sess, opts: opts, log: log, points: []grapeiq.ForecastPoint{}}
}

// State returns the current lifecycle state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Result returns the chart for the cached rows and the active filter.
func (w *Workflow) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultLocked()
}

func (w *Workflow) resultLocked() Result {
	return Result{
		Chart:  dashboard.ReshapeForecast(w.points, w.filter),
		Filter: w.filter,
		Points: len(w.points),
		Stale:  w.stale,
		State:  w.state,
	}
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// store replaces the cache and moves to ResultsLoaded or Filtered.
func (w *Workflow) store(points []grapeiq.ForecastPoint, stale bool) Result {
	if points == nil {
		points = []grapeiq.ForecastPoint{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = points
	w.stale = stale
	if w.filter != "" {
		w.state = Filtered
	} else {
		w.state = ResultsLoaded
	}
	return w.resultLocked()
}

// fetch returns the results, or an empty slice on failure.
func (w *Workflow) fetch(ctx context.Context) []grapeiq.ForecastPoint {
	points, err := w.api.ForecastResults(ctx, w.sess)
	if err != nil {
		w.log.Warn("forecast results unavailable", "error", err)
		return []grapeiq.ForecastPoint{}
	}
	return points
}

// Trigger starts a forecast job and returns without waiting for it.
func (w *Workflow) Trigger(ctx context.Context) error {
	if err := w.api.RunForecast(ctx, w.sess); err != nil {
		return fmt.Errorf("starting forecast: %w", err)
	}
	w.setState(JobTriggered)
	w.log.Info("forecast job triggered")
	return nil
}

// Run triggers a job and waits for results that differ from the ones the
// backend served before the trigger, or for the same non-empty results to
// be served SettlePolls times in a row. If neither happens before the poll
// timeout the latest results are kept and the Result is marked Stale.
// Only a failed trigger or a cancelled ctx return an error.
func (w *Workflow) Run(ctx context.Context) (Result, error) {
	before, err := w.api.ForecastResults(ctx, w.sess)
	if err != nil {
		before = nil
	}

	if err := w.Trigger(ctx); err != nil {
		return w.Result(), err
	}
	w.setState(Pending)

	if d := w.opts.InitialDelay; d > 0 {
		select {
		case <-ctx.Done():
			return w.Result(), ctx.Err()
		case <-time.After(d):
		}
	}

	var (
		latest    []grapeiq.ForecastPoint
		lastErr   error
		attempts  int
		unchanged int
	)
	err = util.PollUntil(ctx, w.opts.PollInterval, w.opts.MaxInterval, w.opts.PollTimeout,
		func(ctx context.Context) (bool, error) {
			attempts++
			points, err := w.api.ForecastResults(ctx, w.sess)
			lastErr = err
			if err != nil {
				unchanged = 0
				return false, err
			}
			latest = points
			if len(points) == 0 {
				unchanged = 0
				return false, nil
			}
			if !samePoints(before, points) {
				return true, nil
			}
			unchanged++
			return unchanged >= w.opts.SettlePolls, nil
		})

	switch {
	case err == nil:
		w.log.Info("forecast results ready", "points", len(latest), "attempts", attempts, "unchanged", unchanged > 0)
		return w.store(latest, false), nil
	case errors.Is(err, util.ErrPollTimeout):
		// Identical non-empty rows on a clean final fetch are a finished
		// rerun, not a missing one.
		if lastErr == nil && len(latest) > 0 && samePoints(before, latest) {
			w.log.Info("forecast results unchanged after rerun", "points", len(latest), "attempts", attempts)
			return w.store(latest, false), nil
		}
		w.log.Warn("forecast results not refreshed before timeout",
			"timeout", w.opts.PollTimeout, "attempts", attempts, "error", err)
		if latest == nil {
			latest = before
		}
		return w.store(latest, true), nil
	default:
		return w.Result(), err
	}
}

// Load fetches the current results into the cache.
func (w *Workflow) Load(ctx context.Context) Result {
	return w.store(w.fetch(ctx), false)
}

// Refresh re-fetches the results, keeping the active filter.
func (w *Workflow) Refresh(ctx context.Context) Result {
	return w.Load(ctx)
}

// Filter sets the SKU filter and reshapes the cached rows. It does not
// touch the network. A blank sku clears the filter.
func (w *Workflow) Filter(sku string) Result {
	sku = dashboard.NormalizeFilter(sku)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.filter = sku
	if w.state == ResultsLoaded || w.state == Filtered {
		if sku != "" {
			w.state = Filtered
		} else {
			w.state = ResultsLoaded
		}
	}
	return w.resultLocked()
}

// Upload sends the dataset at path and then reloads the results. The
// reload happens even when the upload fails; the upload error is returned
// alongside the refreshed Result.
func (w *Workflow) Upload(ctx context.Context, path string) (Result, error) {
	uploadErr := w.upload(ctx, path)
	if uploadErr != nil {
		w.log.Error("dataset upload failed", "file", path, "error", uploadErr)
	} else {
		w.log.Info("dataset uploaded", "file", path)
	}
	return w.Load(ctx), uploadErr
}

func (w *Workflow) upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return w.api.UploadDataset(ctx, w.sess, path, f)
}

func samePoints(a, b []grapeiq.ForecastPoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].SKU != b[i].SKU || a[i].Date != b[i].Date ||
			a[i].ModelUsed != b[i].ModelUsed || !a[i].PredictedQty.Equal(b[i].PredictedQty) {
			return false
		}
	}
	return true
}
