package workers

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrsingh-rishi/voice-dialogue/llm"
)

// CompletionRequest asks for the assistant's reply to one interaction.
type CompletionRequest struct {
	Interaction int
	Messages    []llm.Message
}

// CompletionEvent is one streamed delta of the reply to Interaction. Err is
// set when the stream failed; no further events follow it.
type CompletionEvent struct {
	Interaction int
	Delta       string
	Done        bool
	Err         error
}

type AgentWorker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	Completer     llm.Completer
	OutputChannel chan<- CompletionEvent
	logger        *slog.Logger

	// current cancels the reply in flight. Respond is only called from the
	// owning call loop, so no lock is needed.
	current context.CancelFunc
}

func NewAgentWorker(ctx context.Context, completer llm.Completer, outputChannel chan<- CompletionEvent, logger *slog.Logger) (*AgentWorker, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if outputChannel == nil {
		return nil, fmt.Errorf("output channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &AgentWorker{
		ctx:           ctx,
		cancel:        cancel,
		Completer:     completer,
		OutputChannel: outputChannel,
		logger:        logger,
	}, nil
}

// Respond streams the reply for req, superseding any reply still in flight.
func (aw *AgentWorker) Respond(req CompletionRequest) {
	if aw.current != nil {
		aw.current()
	}
	ctx, cancel := context.WithCancel(aw.ctx)
	aw.current = cancel
	go aw.stream(ctx, req)
}

func (aw *AgentWorker) stream(ctx context.Context, req CompletionRequest) {
	ctx, span := tracer.Start(ctx, "stream completion", trace.WithAttributes(
		attribute.Int("interaction", req.Interaction),
		attribute.Int("history.length", len(req.Messages)),
	))
	defer span.End()

	fail := func(err error) {
		if ctx.Err() != nil {
			// Superseded or call ended; nobody is waiting for this reply.
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		aw.logger.Warn("completion failed", "interaction", req.Interaction, "error", err)
		aw.emit(ctx, CompletionEvent{Interaction: req.Interaction, Err: err})
	}

	stream, err := aw.Completer.Stream(ctx, req.Messages)
	if err != nil {
		fail(err)
		return
	}
	defer stream.Close()

	chunks := 0
	for {
		chunk, err := stream.Recv()
		if err != nil {
			fail(err)
			return
		}
		chunks++
		if !aw.emit(ctx, CompletionEvent{Interaction: req.Interaction, Delta: chunk.TextDelta, Done: chunk.Done}) {
			return
		}
		if chunk.Done {
			span.SetAttributes(attribute.Int("chunks", chunks))
			return
		}
	}
}

func (aw *AgentWorker) emit(ctx context.Context, ev CompletionEvent) bool {
	// A ready channel would otherwise race the cancellation in the select.
	if ctx.Err() != nil {
		return false
	}
	select {
	case aw.OutputChannel <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (aw *AgentWorker) Stop() {
	aw.cancel()
}
