package stt

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	gws "github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-dialogue/types"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/listen"

// Transcriber is the speech-to-text provider for one call: raw audio goes in,
// transcript fragments come out.
type Transcriber interface {
	Start(ctx context.Context, audio <-chan []byte)
	Fragments() <-chan types.Fragment
	Close() error
}

// Options mirrors the Deepgram live query parameters used for phone audio.
type Options struct {
	Endpoint       string
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	EndpointingMs  int
	UtteranceEndMs int
}

func DefaultOptions() Options {
	return Options{
		Endpoint:       defaultEndpoint,
		Model:          "nova-2-phonecall",
		Language:       "en-US",
		Encoding:       "mulaw",
		SampleRate:     8000,
		EndpointingMs:  200,
		UtteranceEndMs: 1000,
	}
}

func (o Options) url() (string, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "deepgram: parse endpoint")
	}
	q := u.Query()
	q.Set("model", o.Model)
	q.Set("language", o.Language)
	q.Set("encoding", o.Encoding)
	q.Set("sample_rate", strconv.Itoa(o.SampleRate))
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	q.Set("vad_events", "true")
	q.Set("endpointing", strconv.Itoa(o.EndpointingMs))
	q.Set("utterance_end_ms", strconv.Itoa(o.UtteranceEndMs))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type DeepgramClient struct {
	Connection           *gws.Conn
	Endpoint             string
	TranscriptionChannel chan types.Fragment

	connMu sync.Mutex
	logger *slog.Logger
}

// NewDeepgramClient dials a live transcription session.
func NewDeepgramClient(ctx context.Context, apiKey string, opts Options, logger *slog.Logger) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dgURL, err := opts.url()
	if err != nil {
		return nil, err
	}

	header := http.Header{
		"Authorization": {"Token " + apiKey},
	}
	conn, _, err := gws.DefaultDialer.DialContext(ctx, dgURL, header)
	if err != nil {
		return nil, errors.Wrap(err, "deepgram: dial")
	}

	logger.Info("connected to Deepgram", "model", opts.Model)
	return &DeepgramClient{
		Connection:           conn,
		Endpoint:             dgURL,
		TranscriptionChannel: make(chan types.Fragment, 16),
		logger:               logger,
	}, nil
}

func (dg *DeepgramClient) Fragments() <-chan types.Fragment {
	return dg.TranscriptionChannel
}

// Start forwards audio to Deepgram and publishes parsed fragments until ctx is
// done or the connection drops. The fragment channel is closed when reading
// stops.
func (dg *DeepgramClient) Start(ctx context.Context, audioChannel <-chan []byte) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case audio, ok := <-audioChannel:
				if !ok {
					return
				}
				if len(audio) == 0 {
					continue
				}
				if err := dg.write(gws.BinaryMessage, audio); err != nil {
					dg.logger.Warn("deepgram write error", "error", err)
					return
				}
			}
		}
	}()

	go func() {
		defer close(dg.TranscriptionChannel)
		for {
			_, message, err := dg.Connection.ReadMessage()
			if err != nil {
				if !gws.IsCloseError(err, gws.CloseNormalClosure) && ctx.Err() == nil {
					dg.logger.Warn("error reading response from Deepgram", "error", err)
				}
				return
			}

			fragment, ok := dg.parse(message)
			if !ok {
				continue
			}
			select {
			case dg.TranscriptionChannel <- fragment:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (dg *DeepgramClient) parse(message []byte) (types.Fragment, bool) {
	fragment, ok, err := ParseMessage(message)
	if err != nil {
		dg.logger.Warn("error parsing Deepgram response", "error", err)
	}
	return fragment, ok
}

// ParseMessage maps one Deepgram live message to a fragment. Messages that
// carry nothing for the assembler report ok=false.
func ParseMessage(message []byte) (types.Fragment, bool, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		return types.Fragment{}, false, errors.Wrap(err, "deepgram: decode message type")
	}

	switch api.TypeResponse(envelope.Type) {
	case api.TypeMessageResponse:
		var resp api.MessageResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			return types.Fragment{}, false, errors.Wrap(err, "deepgram: decode results")
		}
		if len(resp.Channel.Alternatives) == 0 {
			return types.Fragment{}, false, nil
		}
		return types.Fragment{
			Text:        strings.TrimSpace(resp.Channel.Alternatives[0].Transcript),
			Final:       resp.IsFinal,
			SpeechFinal: resp.SpeechFinal,
		}, true, nil

	case api.TypeUtteranceEndResponse:
		return types.Fragment{UtteranceEnd: true}, true, nil

	default:
		return types.Fragment{}, false, nil
	}
}

func (dg *DeepgramClient) write(messageType int, data []byte) error {
	dg.connMu.Lock()
	defer dg.connMu.Unlock()
	return dg.Connection.WriteMessage(messageType, data)
}

// Close asks Deepgram to flush and closes the WebSocket connection.
func (dg *DeepgramClient) Close() error {
	dg.connMu.Lock()
	defer dg.connMu.Unlock()

	if err := dg.Connection.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		dg.logger.Debug("failed to send CloseStream to Deepgram", "error", err)
	}
	return dg.Connection.Close()
}
