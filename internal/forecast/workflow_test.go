package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapeiq/internal/session"
	"grapeiq/pkg/grapeiq"
)

type fakeAPI struct {
	mu sync.Mutex

	runErr    error
	uploadErr error
	// results[i] is served on the i-th call; the last entry repeats.
	results    [][]grapeiq.ForecastPoint
	resultsErr error

	runCalls     int
	resultsCalls int
	uploaded     []string
}

func (f *fakeAPI) RunForecast(context.Context, *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	return f.runErr
}

func (f *fakeAPI) ForecastResults(context.Context, *session.Session) ([]grapeiq.ForecastPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.resultsCalls
	f.resultsCalls++
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	if len(f.results) == 0 {
		return []grapeiq.ForecastPoint{}, nil
	}
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

func (f *fakeAPI) UploadDataset(_ context.Context, _ *session.Session, filename string, r io.Reader) error {
	body, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, filepath.Base(filename)+":"+string(body))
	return f.uploadErr
}

func pt(sku, date string, qty int64) grapeiq.ForecastPoint {
	return grapeiq.ForecastPoint{SKU: sku, Date: date, PredictedQty: decimal.NewFromInt(qty), ModelUsed: "lightgbm"}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fastOptions() Options {
	return Options{PollInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, PollTimeout: 50 * time.Millisecond}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestLoadAndFilter(t *testing.T) {
	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{{
		pt("A", "2024-06-01", 1),
		pt("B", "2024-06-02", 2),
	}}}
	w := New(api, session.New("tok"), fastOptions(), quiet())
	assert.Equal(t, Idle, w.State())

	res := w.Load(context.Background())
	assert.Equal(t, ResultsLoaded, res.State)
	assert.Equal(t, 2, res.Points)
	assert.Len(t, res.Chart.Series, 2)

	res = w.Filter(" B ")
	assert.Equal(t, Filtered, res.State)
	assert.Equal(t, "B", res.Filter)
	require.Len(t, res.Chart.Series, 1)
	assert.Equal(t, "B", res.Chart.Series[0].SKU)
	assert.Equal(t, 1, api.resultsCalls, "Filter must not refetch")

	res = w.Filter("")
	assert.Equal(t, ResultsLoaded, res.State)
	assert.Len(t, res.Chart.Series, 2)
}

func TestRefreshKeepsFilter(t *testing.T) {
	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{
		{pt("A", "2024-06-01", 1)},
		{pt("A", "2024-06-01", 1), pt("B", "2024-06-01", 3)},
	}}
	w := New(api, nil, fastOptions(), quiet())
	w.Load(context.Background())
	w.Filter("B")

	res := w.Refresh(context.Background())
	assert.Equal(t, Filtered, res.State)
	assert.Equal(t, 2, res.Points)
	require.Len(t, res.Chart.Series, 1)
	assert.Equal(t, "B", res.Chart.Series[0].SKU)
}

func TestLoadFailureIsEmpty(t *testing.T) {
	api := &fakeAPI{resultsErr: errors.New("404 Not Found")}
	w := New(api, nil, fastOptions(), quiet())

	res := w.Load(context.Background())
	assert.Equal(t, ResultsLoaded, res.State)
	assert.Zero(t, res.Points)
	assert.Empty(t, res.Chart.Series)
	assert.Empty(t, res.Chart.Dates)
}

func TestRunWaitsForNewResults(t *testing.T) {
	old := []grapeiq.ForecastPoint{pt("A", "2024-06-01", 1)}
	fresh := []grapeiq.ForecastPoint{pt("A", "2024-06-01", 4), pt("A", "2024-06-02", 5)}
	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{old, old, old, fresh}}
	w := New(api, session.New("tok"), fastOptions(), quiet())

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.runCalls)
	assert.False(t, res.Stale)
	assert.Equal(t, ResultsLoaded, res.State)
	assert.Equal(t, 2, res.Points)
	assert.Equal(t, 4, api.resultsCalls)
}

func TestRunTimeoutKeepsStaleResults(t *testing.T) {
	api := &fakeAPI{}
	w := New(api, nil, fastOptions(), quiet())

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Zero(t, res.Points)
	assert.Greater(t, api.resultsCalls, 2)
}

func TestRunStaleWhenFetchesFail(t *testing.T) {
	api := &fakeAPI{resultsErr: errors.New("boom")}
	w := New(api, nil, fastOptions(), quiet())

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Stale)
}

func TestRunIdenticalRerunSettles(t *testing.T) {
	same := []grapeiq.ForecastPoint{pt("A", "2024-06-01", 1)}
	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{same}}
	opts := fastOptions()
	opts.PollTimeout = time.Minute
	w := New(api, nil, opts, quiet())

	start := time.Now()
	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, 1, res.Points)
	assert.Equal(t, ResultsLoaded, res.State)
	// One call before the trigger, then SettlePolls identical polls.
	assert.Equal(t, 4, api.resultsCalls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunIdenticalResultsAtTimeoutAreNotStale(t *testing.T) {
	same := []grapeiq.ForecastPoint{pt("A", "2024-06-01", 1)}
	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{same}}
	opts := fastOptions()
	opts.SettlePolls = 1 << 20
	w := New(api, nil, opts, quiet())

	res, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, 1, res.Points)
}

func TestRunTriggerFailure(t *testing.T) {
	api := &fakeAPI{runErr: &grapeiq.FetchError{Endpoint: grapeiq.EndpointForecastRun, Status: 401}}
	w := New(api, nil, fastOptions(), quiet())

	_, err := w.Run(context.Background())
	var fe *grapeiq.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 401, fe.Status)
	assert.Equal(t, Idle, w.State())
}

func TestRunCancelledDuringDelay(t *testing.T) {
	api := &fakeAPI{}
	opts := fastOptions()
	opts.InitialDelay = time.Hour
	w := New(api, nil, opts, quiet())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Pending, w.State())
}

func TestTriggerDoesNotWait(t *testing.T) {
	api := &fakeAPI{}
	w := New(api, nil, fastOptions(), quiet())
	require.NoError(t, w.Trigger(context.Background()))
	assert.Equal(t, JobTriggered, w.State())
	assert.Zero(t, api.resultsCalls)
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventas.csv")
	require.NoError(t, os.WriteFile(path, []byte("sku,date,qty\n"), 0o644))

	api := &fakeAPI{results: [][]grapeiq.ForecastPoint{{pt("A", "2024-06-01", 1)}}}
	w := New(api, nil, fastOptions(), quiet())

	res, err := w.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ventas.csv:sku,date,qty\n"}, api.uploaded)
	assert.Equal(t, 1, res.Points)
}

func TestUploadFailureStillReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventas.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	api := &fakeAPI{
		uploadErr: &grapeiq.UploadError{File: "ventas.xlsx", Status: 422},
		results:   [][]grapeiq.ForecastPoint{{pt("A", "2024-06-01", 1)}},
	}
	w := New(api, nil, fastOptions(), quiet())

	res, err := w.Upload(context.Background(), path)
	var ue *grapeiq.UploadError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 1, api.resultsCalls)
	assert.Equal(t, 1, res.Points)
}

func TestUploadMissingFile(t *testing.T) {
	api := &fakeAPI{}
	w := New(api, nil, fastOptions(), quiet())

	_, err := w.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, api.uploaded)
	assert.Equal(t, 1, api.resultsCalls)
}
