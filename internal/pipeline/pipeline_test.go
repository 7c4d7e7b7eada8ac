package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
	"github.com/couchcryptid/glof-risk-service/internal/observability"
	"github.com/couchcryptid/glof-risk-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu      sync.Mutex
	batches [][]domain.RawEvent
	errs    []error

	// partialErr is returned together with the next batch, once.
	partialErr error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	if m.partialErr != nil && len(m.batches) > 0 {
		b, err := m.batches[0], m.partialErr
		m.batches = m.batches[1:]
		m.partialErr = nil
		m.mu.Unlock()
		return b, err
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		b := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	// block until cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error

	// failures is the number of leading calls that return err.
	// Zero means every call fails when err is set.
	failures int
	calls    int
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	m.calls++
	if m.err != nil && (m.failures == 0 || m.calls <= m.failures) {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawReading(t, domain.Reading{Timestamp: 1714111200000, WaterLevelRise: 8, SensorBattery: 80})

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits int
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	raw.Commit = func(context.Context) error {
		commits++
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{err: fmt.Errorf("%w: timestamp failed \"gt\"", domain.ErrInvalidReading)}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Equal(t, 1, commits)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var order []string
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	raw.Commit = func(context.Context) error {
		order = append(order, "commit")
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &recordingLoader{order: &order}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"load", "commit"}, order)
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	committed := false
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	raw.Commit = func(context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker down")}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	assert.False(t, committed)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RecoversAfterExtractError(t *testing.T) {
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	ext := &mockExtractor{
		errs:    []error{errors.New("broker unavailable")},
		batches: [][]domain.RawEvent{{raw}},
	}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, time.Second)

	assert.Len(t, ldr.loaded, 1)
}

func TestPipeline_Run_RetriesFailedLoadBeforeCommitting(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	first := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	first.Key, first.Offset = []byte("1"), 1
	first.Commit = func(context.Context) error {
		record("commit 1")
		return nil
	}
	second := makeRawReading(t, domain.Reading{Timestamp: 2, SensorBattery: 50})
	second.Key, second.Offset = []byte("2"), 2
	second.Commit = func(context.Context) error {
		record("commit 2")
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{first}, {second}}}
	ldr := &flakyLoader{failures: 1, record: record}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, time.Second)

	assert.Equal(t, []string{"1", "2"}, ldr.keys())
	assert.Equal(t, []string{
		"load failed",
		"load 1",
		"commit 1",
		"load 2",
		"commit 2",
	}, events)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ProcessesPartialBatchWithExtractError(t *testing.T) {
	committed := 0
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	raw.Commit = func(context.Context) error {
		committed++
		return nil
	}

	ext := &mockExtractor{
		batches:    [][]domain.RawEvent{{raw}},
		partialErr: errors.New("fetch message: connection reset"),
	}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.Equal(t, 1, committed)
}

func TestPipeline_Run_RetriesTransientTransformError(t *testing.T) {
	committed := 0
	raw := makeRawReading(t, domain.Reading{Timestamp: 1, SensorBattery: 50})
	raw.Commit = func(context.Context) error {
		committed++
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	tr := &mockTransformer{err: errors.New("lookup previous reading: database is locked"), failures: 1}
	ldr := &mockLoader{}
	p := pipeline.New(ext, tr, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, time.Second)

	assert.Equal(t, 2, tr.calls)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, 1, committed)
}

// flakyLoader fails its first failures calls, then records each published key.
type flakyLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.OutputEvent
	record   func(string)
}

func (f *flakyLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		f.record("load failed")
		return errors.New("broker unavailable")
	}
	for _, e := range events {
		f.record("load " + string(e.Key))
	}
	f.loaded = append(f.loaded, events...)
	return nil
}

func (f *flakyLoader) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.loaded))
	for _, e := range f.loaded {
		keys = append(keys, string(e.Key))
	}
	return keys
}

type recordingLoader struct {
	order *[]string
}

func (r *recordingLoader) LoadBatch(context.Context, []domain.OutputEvent) error {
	*r.order = append(*r.order, "load")
	return nil
}

// --- helpers ---

func makeRawReading(t *testing.T, r domain.Reading) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return domain.RawEvent{Value: data, Topic: "glof-sensor-readings"}
}
