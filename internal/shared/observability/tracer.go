package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the shared tracer for all analysis spans.
var Tracer trace.Tracer = otel.Tracer("github.com/mabrax/cctx")
