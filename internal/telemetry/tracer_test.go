package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("disabled", func(t *testing.T) {
		shutdown, err := InitTracer("tutorai-test", false, io.Discard, logger)
		if err != nil {
			t.Fatalf("InitTracer() error = %v", err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})

	t.Run("enabled exports spans", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		defer otel.SetTracerProvider(prev)

		var buf bytes.Buffer
		shutdown, err := InitTracer("tutorai-test", true, &buf, logger)
		if err != nil {
			t.Fatalf("InitTracer() error = %v", err)
		}

		_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
		span.End()

		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown() error = %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "unit-span") {
			t.Errorf("exported output missing span name: %s", out)
		}
		if !strings.Contains(out, "tutorai-test") {
			t.Errorf("exported output missing service name: %s", out)
		}
	})
}
