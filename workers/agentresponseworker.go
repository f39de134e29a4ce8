package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrsingh-rishi/voice-dialogue/model"
	"github.com/mrsingh-rishi/voice-dialogue/response"
	"github.com/mrsingh-rishi/voice-dialogue/tts"
)

var ErrNothingToSay = errors.New("segment has no speakable text")

// AgentResponseWorker synthesizes reply segments. Every segment gets its own
// goroutine, so results come back in completion order, not segment order.
type AgentResponseWorker struct {
	ctx                 context.Context
	cancel              context.CancelFunc
	TTSClient           tts.Synthesizer
	OutputDeviceChannel chan<- model.AudioSegment
	pauseMarker         string
	logger              *slog.Logger
}

func NewAgentResponseWorker(ctx context.Context, client tts.Synthesizer, pauseMarker string, outputDeviceChannel chan<- model.AudioSegment, logger *slog.Logger) (*AgentResponseWorker, error) {
	if client == nil {
		return nil, fmt.Errorf("tts client is required")
	}
	if outputDeviceChannel == nil {
		return nil, fmt.Errorf("output device channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &AgentResponseWorker{
		ctx:                 ctx,
		cancel:              cancel,
		TTSClient:           client,
		OutputDeviceChannel: outputDeviceChannel,
		pauseMarker:         pauseMarker,
		logger:              logger,
	}, nil
}

// Speak dispatches synthesis for one segment. A nil index marks out-of-band
// audio such as the greeting.
func (w *AgentResponseWorker) Speak(index *int, text string, generation int) {
	go w.synthesize(model.AudioSegment{Index: index, Text: text, Generation: generation})
}

func (w *AgentResponseWorker) synthesize(seg model.AudioSegment) {
	attrs := []attribute.KeyValue{attribute.Int("generation", seg.Generation)}
	if seg.Index != nil {
		attrs = append(attrs, attribute.Int("segment.index", *seg.Index))
	}
	ctx, span := tracer.Start(w.ctx, "synthesize segment", trace.WithAttributes(attrs...))
	defer span.End()

	text := response.Speakable(seg.Text, w.pauseMarker)
	if text == "" {
		seg.Err = ErrNothingToSay
	} else {
		seg.Audio, seg.Err = w.TTSClient.Synthesize(ctx, text)
	}
	if seg.Err != nil && ctx.Err() == nil {
		span.RecordError(seg.Err)
		span.SetStatus(codes.Error, seg.Err.Error())
	}
	span.SetAttributes(attribute.Int("audio.bytes", len(seg.Audio)))

	select {
	case w.OutputDeviceChannel <- seg:
	case <-w.ctx.Done():
	}
}

// Stop signals in-flight synthesis to give up.
func (w *AgentResponseWorker) Stop() {
	w.cancel()
}
