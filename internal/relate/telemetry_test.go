package relate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/brplusa/spacelink/internal/testutil"
)

// observedEngine returns an engine whose spans and metrics are recorded.
func observedEngine(t *testing.T) (*Engine, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	e := New(testutil.OpenStore(t),
		WithGroupTokens(testutil.NewSequentialGroupGenerator()),
		WithLogger(discardLogger()),
		WithTracerProvider(tp),
		WithMeterProvider(mp),
	)
	return e, recorder, reader
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

// collect returns the failure counts keyed by "operation/code" and the
// number of successful operations recorded in the duration histogram, keyed
// by operation.
func collect(t *testing.T, reader *sdkmetric.ManualReader) (failures map[string]int64, successes map[string]uint64) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	failures = map[string]int64{}
	successes = map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					failures[attrString(dp.Attributes, operationAttr)+"/"+attrString(dp.Attributes, codeAttr)] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					successes[attrString(dp.Attributes, operationAttr)] += dp.Count
				}
			}
		}
	}
	return failures, successes
}

func attrString(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.AsString()
}

func TestTelemetry_SpanPerOperation(t *testing.T) {
	e, recorder, reader := observedEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateGroup(ctx, testutil.Spaces("S1", "S2", "S3")))
	require.NoError(t, e.BreakGroup(ctx, "S1", "S2"))

	spans := recorder.Ended()
	require.Equal(t, []string{
		"relate.CreateGroup",
		"relate.BreakOne",
		"relate.BreakOne",
		"relate.BreakGroup",
	}, spanNames(spans))

	batch := spans[3]
	for _, child := range spans[1:3] {
		assert.Equal(t, batch.SpanContext().SpanID(), child.Parent().SpanID(), "BreakOne runs inside BreakGroup")
	}
	for _, s := range spans {
		assert.Equal(t, codes.Unset, s.Status().Code, s.Name())
		_, hasCode := spanAttr(s, codeAttr)
		assert.False(t, hasCode, s.Name())
	}
	op, _ := spanAttr(spans[0], operationAttr)
	assert.Equal(t, "CreateGroup", op)

	failures, successes := collect(t, reader)
	assert.Empty(t, failures)
	assert.Equal(t, map[string]uint64{"CreateGroup": 1, "BreakOne": 2, "BreakGroup": 1}, successes)
}

func TestTelemetry_FailureCarriesCode(t *testing.T) {
	e, recorder, reader := observedEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateGroup(ctx, testutil.Spaces("S1", "S2")))
	require.Error(t, e.CreateGroup(ctx, testutil.Spaces("S2", "S3")))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	code, ok := spanAttr(failed, codeAttr)
	require.True(t, ok)
	assert.Equal(t, string(ErrCodeGroupMergeUnsupported), code)

	failures, successes := collect(t, reader)
	assert.Equal(t, map[string]int64{"CreateGroup/GROUP_MERGE_UNSUPPORTED": 1}, failures)
	assert.Equal(t, map[string]uint64{"CreateGroup": 1}, successes)
}

func TestTelemetry_PartialBreakGroup(t *testing.T) {
	e, recorder, reader := observedEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateGroup(ctx, testutil.Spaces("S1", "S2")))
	err := e.BreakGroup(ctx, "S1", "ghost")
	require.True(t, IsPartialFailure(err))

	spans := recorder.Ended()
	batch := spans[len(spans)-1]
	require.Equal(t, "relate.BreakGroup", batch.Name())
	code, _ := spanAttr(batch, codeAttr)
	assert.Equal(t, string(ErrCodePartialFailure), code)

	failures, _ := collect(t, reader)
	assert.Equal(t, map[string]int64{
		"BreakOne/NOT_FOUND":         1,
		"BreakGroup/PARTIAL_FAILURE": 1,
	}, failures)
}

func TestTelemetry_AllFailedBatchUsesEntryCode(t *testing.T) {
	e, _, reader := observedEngine(t)

	err := e.BreakGroup(context.Background(), "ghost")
	require.Error(t, err)
	require.False(t, IsPartialFailure(err))

	failures, _ := collect(t, reader)
	assert.Equal(t, int64(1), failures["BreakGroup/NOT_FOUND"])
}
