package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/couchcryptid/wildfire-risk-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err    error
	status domain.Status
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Result, error) {
	if m.err != nil {
		return domain.Result{}, m.err
	}
	status := m.status
	if status == "" {
		status = domain.StatusOK
	}
	return domain.Result{QueryID: string(raw.Key), Status: status}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.Result
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, results...)
	return nil
}

func (m *mockLoader) results() []domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Result(nil), m.loaded...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func rawQuery(id string) domain.RawMessage {
	return domain.RawMessage{
		Key:   []byte(id),
		Value: []byte(`{"id":"` + id + `","operation":"high_risk","date":"2024-07-15","region_name":"western"}`),
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawQuery("q-1"), rawQuery("q-2")}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.results()
	require.Len(t, loaded, 2)
	assert.Equal(t, "q-1", loaded[0].QueryID)
	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.QueriesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ResultsProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.results())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	committed := false
	raw := rawQuery("q-bad")
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad query")}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.results())
	assert.False(t, p.Ready())
	assert.True(t, committed, "poison messages are committed so they are not redelivered")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.QueryErrors), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var order []string
	raw := rawQuery("q-5")
	raw.Topic = "risk-queries"
	raw.Commit = func(_ context.Context) error {
		order = append(order, "commit")
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.results(), 1)
	assert.Equal(t, []string{"commit"}, order)
}

func TestPipeline_Run_NoDataResultsArePublished(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawQuery("q-6")}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{status: domain.StatusNoData}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.results()
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.StatusNoData, loaded[0].Status)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NoDataResults), 0)
}

func TestPipeline_Run_RetriesLoadAfterBackoff(t *testing.T) {
	commits := 0
	raw := rawQuery("q-7")
	raw.Commit = func(_ context.Context) error {
		commits++
		return nil
	}

	// The failed batch is not committed, so the broker redelivers it.
	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}, {raw}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, time.Second)

	assert.Len(t, ldr.results(), 1)
	assert.Equal(t, 1, commits)
	assert.True(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker down")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	start := time.Now()
	runFor(t, p, 500*time.Millisecond)

	assert.Empty(t, ldr.results())
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond, "run returns only when the context ends")
}
