// Package tts turns segment text into phone-ready mulaw audio.
package tts

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Synthesizer converts text to encoded audio. Calls are independent and may
// run concurrently.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
