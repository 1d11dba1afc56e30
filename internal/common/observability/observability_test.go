package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNilObservabilityIsSafe(t *testing.T) {
	var o *Observability
	ctx := context.Background()

	o.RecordJobProcessed(ctx, "completed")
	o.RecordJobDuration(ctx, time.Second, "completed")
	o.RecordSubmission(ctx, "submitted", time.Second)
	o.RecordUploadBytes(ctx, 10)
	o.Shutdown()

	_, span := o.StartSpan(ctx, "noop")
	EndSpan(span, nil)
}

func TestSpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	reg := promclient.NewRegistry()
	o := New("hireflow-test", WithRegisterer(reg), WithSpanProcessor(recorder))
	t.Cleanup(o.Shutdown)

	ctx, parent := o.StartSpan(context.Background(), "submit", attribute.String("company", "Acme"))
	_, child := o.StartSpan(ctx, "upload")
	EndSpan(child, errors.New("network unreachable"))
	EndSpan(parent, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "upload", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())

	o.RecordSubmission(context.Background(), "submitted", 120*time.Millisecond)
	o.RecordUploadBytes(context.Background(), 2<<20)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.Contains(f.GetName(), "applications_submitted") {
			found = true
		}
	}
	assert.True(t, found)
}
