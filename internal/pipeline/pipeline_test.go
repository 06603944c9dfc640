package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/observability"
	"github.com/couchcryptid/flood-viewer-api/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawReport
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawReport, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for reports
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   [][]domain.EventInput
	failures int
	calls    int
	done     chan struct{}
}

func newMockLoader(failures int) *mockLoader {
	return &mockLoader{failures: failures, done: make(chan struct{}, 16)}
}

func (m *mockLoader) LoadBatch(_ context.Context, inputs []domain.EventInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("database is locked")
	}
	m.loaded = append(m.loaded, inputs)
	m.done <- struct{}{}
	return nil
}

func (m *mockLoader) batches() [][]domain.EventInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func report(value string, commits *atomic.Int64) domain.RawReport {
	raw := domain.RawReport{Value: []byte(value), Topic: "flood-reports"}
	if commits != nil {
		raw.Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
	}
	return raw
}

func newPipeline(ext pipeline.BatchExtractor, ldr pipeline.BatchLoader, clock clockwork.Clock) (*pipeline.Pipeline, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return pipeline.New(ext, pipeline.NewDecoder(), ldr, slog.Default(), m, 50, clock), m
}

func waitLoaded(t *testing.T, ldr *mockLoader) {
	t.Helper()
	select {
	case <-ldr.done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not loaded")
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawReport{{
		report(`{"lat": 5.6, "lng": -0.2}`, &commits),
		report(`{"lat": "6.69", "lng": "-1.62"}`, &commits),
	}}}
	ldr := newMockLoader(0)
	p, m := newPipeline(ext, ldr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	want := [][]domain.EventInput{{{Lat: 5.6, Lng: -0.2}, {Lat: 6.69, Lng: -1.62}}}
	if diff := cmp.Diff(want, ldr.batches()); diff != "" {
		t.Errorf("loaded batches mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(2), commits.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(m.ReportsConsumed), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := newMockLoader(0)
	p, _ := newPipeline(ext, ldr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.batches())
}

func TestPipeline_Run_SkipsAndCommitsInvalidReports(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawReport{{
		report(`{"lat": 5.6}`, &commits),
		report(`not json`, &commits),
		report(`{"lat": 1, "lng": 2}`, &commits),
	}}}
	ldr := newMockLoader(0)
	p, m := newPipeline(ext, ldr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	assert.Equal(t, [][]domain.EventInput{{{Lat: 1, Lng: 2}}}, ldr.batches())
	assert.Equal(t, int64(3), commits.Load(), "invalid reports are committed so they are not redelivered")
	assert.InDelta(t, 2, testutil.ToFloat64(m.IngestErrors), 0)
}

func TestPipeline_Run_AllInvalidSkipsLoad(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawReport{{report(`[]`, &commits)}}}
	ldr := newMockLoader(0)
	p, _ := newPipeline(ext, ldr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.batches())
	assert.Equal(t, int64(1), commits.Load())
}

func TestPipeline_Run_RetriesExtractWithBackoff(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ext := &mockExtractor{
		errs:    []error{errors.New("broker unavailable"), errors.New("broker unavailable")},
		batches: [][]domain.RawReport{nil, nil, {report(`{"lat": 1, "lng": 1}`, nil)}},
	}
	ldr := newMockLoader(0)
	p, _ := newPipeline(ext, ldr, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()

	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	fc.Advance(200 * time.Millisecond)
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	fc.Advance(400 * time.Millisecond)

	waitLoaded(t, ldr)
	assert.Len(t, ldr.batches(), 1)

	cancel()
	require.NoError(t, <-done)
}

func TestPipeline_Run_RetriesLoadBeforeCommitting(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawReport{{report(`{"lat": 1, "lng": 1}`, &commits)}}}
	ldr := newMockLoader(1)
	p, _ := newPipeline(ext, ldr, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()

	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	assert.Equal(t, int64(0), commits.Load(), "nothing is committed while the load is failing")
	fc.Advance(200 * time.Millisecond)

	waitLoaded(t, ldr)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), commits.Load())
}

type commitLog struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitLog) report(value string, offset int64) domain.RawReport {
	return domain.RawReport{
		Value:  []byte(value),
		Topic:  "flood-reports",
		Offset: offset,
		Commit: func(_ context.Context) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.offsets = append(c.offsets, offset)
			return nil
		},
	}
}

func (c *commitLog) committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

func TestPipeline_Run_InvalidReportsWaitForLoad(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var log commitLog
	ext := &mockExtractor{batches: [][]domain.RawReport{{
		log.report(`{"lat": 1, "lng": 1}`, 0),
		log.report(`{"lat": 2}`, 1),
		log.report(`{"lat": 3, "lng": 3}`, 2),
	}}}
	ldr := newMockLoader(2)
	p, _ := newPipeline(ext, ldr, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()

	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	assert.Empty(t, log.committed())
	fc.Advance(200 * time.Millisecond)
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	assert.Empty(t, log.committed())
	fc.Advance(400 * time.Millisecond)

	waitLoaded(t, ldr)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{0, 1, 2}, log.committed())
}

func TestPipeline_StopsDuringBackoff(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ext := &mockExtractor{errs: []error{errors.New("broker unavailable")}}
	p, _ := newPipeline(ext, newMockLoader(0), fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop during backoff")
	}
}

func TestPipeline_Readiness(t *testing.T) {
	ext := &mockExtractor{}
	p, _ := newPipeline(ext, newMockLoader(0), nil)
	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestReportDecoder(t *testing.T) {
	d := pipeline.NewDecoder()

	in, err := d.Decode(context.Background(), report(`{"lat": 9.4, "lng": -0.85, "reporter": "x"}`, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.EventInput{Lat: 9.4, Lng: -0.85}, in)

	_, err = d.Decode(context.Background(), report(`{"lat": null, "lng": 1}`, nil))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lat")
}
