package workers

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/mrsingh-rishi/voice-dialogue/workers"

var tracer = otel.Tracer(scopeName)
