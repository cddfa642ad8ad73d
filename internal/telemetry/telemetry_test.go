package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	tracing, err := Setup(context.Background())
	require.NoError(t, err)
	assert.False(t, tracing.Enabled())

	_, span := tracing.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tracing.Shutdown(context.Background()))
}

func TestSetupExportsToEndpointURL(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", collector.URL)
	t.Setenv("OTEL_SERVICE_NAME", "bandsample-test")

	tracing, err := Setup(context.Background())
	require.NoError(t, err)
	assert.True(t, tracing.Enabled())

	_, span := tracing.Tracer.Start(context.Background(), "sampled")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tracing.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/v1/traces", paths[0])
}
