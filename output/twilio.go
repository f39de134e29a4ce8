package output

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-dialogue/queue"
)

var ErrStopped = errors.New("twilio output stopped")

// Conn is the write side of the Twilio media stream websocket.
type Conn interface {
	WriteJSON(v interface{}) error
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type markPayload struct {
	Name string `json:"name"`
}

// Message is an outbound Twilio Media Streams message.
type Message struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid"`
	Media     *mediaPayload `json:"media,omitempty"`
	Mark      *markPayload  `json:"mark,omitempty"`
}

// TwilioOutput serializes every outbound message through one writer goroutine
// so callers never block on the socket and message order is preserved.
type TwilioOutput struct {
	ctx       context.Context
	cancel    context.CancelFunc
	streamSid string
	ws        Conn
	logger    *slog.Logger

	mu      sync.Mutex
	pending *queue.Queue[Message]
	signal  chan struct{}
}

func NewTwilioOutput(streamSid string, ws Conn, logger *slog.Logger) (*TwilioOutput, error) {
	if streamSid == "" {
		return nil, errors.New("streamSid is empty")
	}
	if ws == nil {
		return nil, errors.New("websocket connection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TwilioOutput{
		ctx:       ctx,
		cancel:    cancel,
		streamSid: streamSid,
		ws:        ws,
		logger:    logger,
		pending:   queue.New[Message](),
		signal:    make(chan struct{}, 1),
	}, nil
}

func (o *TwilioOutput) Start() {
	go func() {
		for {
			select {
			case <-o.ctx.Done():
				return
			case <-o.signal:
			}

			for {
				msg, ok := o.next()
				if !ok {
					break
				}
				if err := o.ws.WriteJSON(msg); err != nil {
					o.logger.Warn("TwilioOutput write error", "event", msg.Event, "error", err)
				}
			}
		}
	}()
}

func (o *TwilioOutput) next() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx.Err() != nil {
		return Message{}, false
	}
	return o.pending.Dequeue()
}

func (o *TwilioOutput) enqueue(msg Message) error {
	if o.ctx.Err() != nil {
		return ErrStopped
	}
	o.mu.Lock()
	o.pending.Enqueue(msg)
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
	return nil
}

// SendAudio queues raw mulaw audio for playback.
func (o *TwilioOutput) SendAudio(audio []byte) error {
	return o.enqueue(Message{
		Event:     "media",
		StreamSid: o.streamSid,
		Media:     &mediaPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	})
}

// SendMark asks Twilio to echo mark back once everything queued before it has
// played.
func (o *TwilioOutput) SendMark(mark string) error {
	return o.enqueue(Message{
		Event:     "mark",
		StreamSid: o.streamSid,
		Mark:      &markPayload{Name: mark},
	})
}

// Clear drops media not yet written and tells Twilio to stop playback of what
// it already buffered.
func (o *TwilioOutput) Clear() error {
	if o.ctx.Err() != nil {
		return ErrStopped
	}
	o.mu.Lock()
	dropped := o.pending.RemoveIf(func(m Message) bool {
		return m.Event == "media" || m.Event == "mark"
	})
	o.mu.Unlock()
	if dropped > 0 {
		o.logger.Debug("dropped unsent playback messages", "count", dropped)
	}

	return o.enqueue(Message{Event: "clear", StreamSid: o.streamSid})
}

func (o *TwilioOutput) Stop() {
	o.cancel()
}
