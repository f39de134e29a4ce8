package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrsingh-rishi/voice-dialogue/types"
	"github.com/mrsingh-rishi/voice-dialogue/utterance"
)

// TranscriptionWorker owns the call's utterance assembler. It turns provider
// fragments into interim and final utterance events.
type TranscriptionWorker struct {
	ctx                       context.Context
	cancel                    context.CancelFunc
	assembler                 *utterance.Assembler
	TranscriptionInputChannel <-chan types.Fragment
	UtteranceOutputChannel    chan<- utterance.Event
	logger                    *slog.Logger
}

func NewTranscriptionWorker(ctx context.Context, transcriptionInputChannel <-chan types.Fragment, utteranceOutputChannel chan<- utterance.Event, logger *slog.Logger) (*TranscriptionWorker, error) {
	if transcriptionInputChannel == nil {
		return nil, fmt.Errorf("transcription input channel is required")
	}
	if utteranceOutputChannel == nil {
		return nil, fmt.Errorf("utterance output channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &TranscriptionWorker{
		ctx:                       ctx,
		cancel:                    cancel,
		assembler:                 utterance.New(),
		TranscriptionInputChannel: transcriptionInputChannel,
		UtteranceOutputChannel:    utteranceOutputChannel,
		logger:                    logger,
	}, nil
}

func (tw *TranscriptionWorker) Start() {
	go func() {
		for {
			select {
			case <-tw.ctx.Done():
				return
			case fragment, ok := <-tw.TranscriptionInputChannel:
				if !ok {
					tw.logger.Warn("transcription stream closed")
					return
				}
				event, ok := tw.assembler.Fragment(fragment)
				if !ok {
					continue
				}
				if event.Kind == utterance.Final {
					tw.logger.Info("STT final utterance", "text", event.Text)
				} else {
					tw.logger.Debug("STT interim", "text", event.Text)
				}
				select {
				case tw.UtteranceOutputChannel <- event:
				case <-tw.ctx.Done():
					return
				}
			}
		}
	}()
}

func (tw *TranscriptionWorker) Stop() {
	tw.cancel()
}
