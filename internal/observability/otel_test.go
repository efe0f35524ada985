package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitOTel_None(t *testing.T) {
	shutdown, err := InitOTel(context.Background(), nil, OtelConfig{Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitOTel_UnknownExporter(t *testing.T) {
	_, err := InitOTel(context.Background(), nil, OtelConfig{Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown exporter")

	_, err = InitOTel(context.Background(), nil, OtelConfig{Exporter: "otlp"})
	assert.ErrorContains(t, err, "endpoint")
}

func TestInitOTel_StdoutWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitOTel(context.Background(), nil, OtelConfig{
		Exporter:    "stdout",
		ServiceName: "quizgen-test",
		SampleRatio: 1,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "bulk.generate")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "bulk.generate")
	assert.Contains(t, buf.String(), "quizgen-test")
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.5, clampRatio(0.5))
	assert.Equal(t, 1.0, clampRatio(3))
}
