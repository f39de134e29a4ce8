package llm

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Chunk is one step of a streamed completion. Done is set on the last chunk,
// which may still carry text.
type Chunk struct {
	TextDelta string
	Done      bool
}

// Stream yields completion chunks, suspending until the next one is available.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Completer starts a streaming completion for the given conversation history.
type Completer interface {
	Stream(ctx context.Context, messages []Message) (Stream, error)
}

type OpenAIClient struct {
	Client *openai.Client
	Model  string // Model to use for OpenAI API
}

func NewOpenAIClient(apiKey string, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIClientWithConfig is used for non-default base URLs and HTTP clients.
func NewOpenAIClientWithConfig(config openai.ClientConfig, model string) (*OpenAIClient, error) {
	if model == "" {
		return nil, errors.New("openai: model is required")
	}
	return &OpenAIClient{
		Client: openai.NewClientWithConfig(config),
		Model:  model,
	}, nil
}

// Stream sends the full history to OpenAI and returns the streamed reply.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	}

	stream, err := c.Client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "openai: create chat completion stream")
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	done   bool
}

func (s *openAIStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			// Stream ended without a finish reason; still a complete reply.
			s.done = true
			return Chunk{Done: true}, nil
		}
		if err != nil {
			return Chunk{}, errors.Wrap(err, "openai: receive chunk")
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		chunk := Chunk{TextDelta: choice.Delta.Content}
		if choice.FinishReason != "" && choice.FinishReason != openai.FinishReasonNull {
			s.done = true
			chunk.Done = true
		}
		return chunk, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
