package call

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mrsingh-rishi/voice-dialogue/interrupt"
	"github.com/mrsingh-rishi/voice-dialogue/llm"
	"github.com/mrsingh-rishi/voice-dialogue/model"
	"github.com/mrsingh-rishi/voice-dialogue/output"
	"github.com/mrsingh-rishi/voice-dialogue/playback"
	"github.com/mrsingh-rishi/voice-dialogue/response"
	"github.com/mrsingh-rishi/voice-dialogue/stt"
	"github.com/mrsingh-rishi/voice-dialogue/tts"
	"github.com/mrsingh-rishi/voice-dialogue/types"
	"github.com/mrsingh-rishi/voice-dialogue/utterance"
	"github.com/mrsingh-rishi/voice-dialogue/workers"
)

var errHangup = errors.New("media stream ended")

// Conn is the Twilio media stream websocket. *websocket.Conn from
// gofiber/websocket satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Deps are the providers a call talks to. NewTranscriber is called once per
// call so every call gets its own live transcription connection.
type Deps struct {
	NewTranscriber func(ctx context.Context) (stt.Transcriber, error)
	Completer      llm.Completer
	Synthesizer    tts.Synthesizer
	Logger         *slog.Logger
}

type Settings struct {
	SystemPrompt      string
	Greeting          string
	PauseMarker       string
	InterruptMinChars int
}

// Call is one dialogue session. All session state below is owned by the
// event loop goroutine.
type Call struct {
	ws       Conn
	deps     Deps
	settings Settings
	logger   *slog.Logger

	callSid      string
	streamSid    string
	interactions int
	// generation moves on every finalized utterance and every interruption.
	// Segments and audio from an older generation are never played.
	generation int

	history     *llm.History
	counter     *response.Counter
	segmenter   *response.Segmenter
	output      *output.TwilioOutput
	sequencer   *playback.Sequencer
	coordinator *interrupt.Coordinator

	transcriber         stt.Transcriber
	transcriptionWorker *workers.TranscriptionWorker
	agentWorker         *workers.AgentWorker
	responseWorker      *workers.AgentResponseWorker

	events      chan types.TwilioEvent
	audio       chan []byte
	fragments   <-chan types.Fragment
	utterances  chan utterance.Event
	completions chan workers.CompletionEvent
	segments    chan model.AudioSegment
}

func NewCall(ws Conn, deps Deps, settings Settings) (*Call, error) {
	if ws == nil {
		return nil, errors.New("websocket connection is required")
	}
	if deps.NewTranscriber == nil || deps.Completer == nil || deps.Synthesizer == nil {
		return nil, errors.New("transcriber, completer and synthesizer are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if settings.PauseMarker == "" {
		settings.PauseMarker = response.DefaultPauseMarker
	}
	if settings.InterruptMinChars <= 0 {
		settings.InterruptMinChars = interrupt.DefaultMinChars
	}

	return &Call{
		ws:          ws,
		deps:        deps,
		settings:    settings,
		logger:      deps.Logger,
		counter:     &response.Counter{},
		events:      make(chan types.TwilioEvent, 16),
		audio:       make(chan []byte, 64),
		utterances:  make(chan utterance.Event, 16),
		completions: make(chan workers.CompletionEvent, 16),
		segments:    make(chan model.AudioSegment, 16),
	}, nil
}

// Run serves the call until the caller hangs up, the socket fails or ctx is
// cancelled. It always closes the websocket before returning.
func (c *Call) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := c.startWorkers(gctx); err != nil {
		c.ws.Close()
		return err
	}
	defer c.CleanupResources()

	g.Go(func() error { return c.read(gctx) })
	g.Go(func() error { return c.loop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		// Unblocks the reader.
		c.ws.Close()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, errHangup) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Call) startWorkers(ctx context.Context) error {
	transcriber, err := c.deps.NewTranscriber(ctx)
	if err != nil {
		return errors.Wrap(err, "connect transcription provider")
	}
	c.transcriber = transcriber
	c.fragments = transcriber.Fragments()

	c.transcriptionWorker, err = workers.NewTranscriptionWorker(ctx, c.fragments, c.utterances, c.logger)
	if err != nil {
		return err
	}
	c.agentWorker, err = workers.NewAgentWorker(ctx, c.deps.Completer, c.completions, c.logger)
	if err != nil {
		return err
	}
	c.responseWorker, err = workers.NewAgentResponseWorker(ctx, c.deps.Synthesizer, c.settings.PauseMarker, c.segments, c.logger)
	if err != nil {
		return err
	}

	transcriber.Start(ctx, c.audio)
	c.transcriptionWorker.Start()
	return nil
}

// CleanupResources releases everything the call holds. Safe to call once
// Run has stopped the loop.
func (c *Call) CleanupResources() {
	if c.output != nil {
		c.output.Stop()
	}
	if c.agentWorker != nil {
		c.agentWorker.Stop()
	}
	if c.responseWorker != nil {
		c.responseWorker.Stop()
	}
	if c.transcriptionWorker != nil {
		c.transcriptionWorker.Stop()
	}
	if c.transcriber != nil {
		if err := c.transcriber.Close(); err != nil {
			c.logger.Debug("closing transcriber", "error", err)
		}
	}
	if c.sequencer != nil {
		c.sequencer.Reset()
	}
	c.logger.Info("call ended", "call_sid", c.callSid, "interactions", c.interactions)
}

func (c *Call) read(ctx context.Context) error {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("websocket closed", "call_sid", c.callSid)
				return errHangup
			}
			return errors.Wrap(err, "read media stream")
		}

		var ev types.TwilioEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			c.logger.Warn("ignoring malformed media stream message", "error", err)
			continue
		}

		switch ev.Event {
		case "media":
			chunk, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				c.logger.Warn("base64 decode error", "error", err)
				continue
			}
			select {
			case c.audio <- chunk:
			case <-ctx.Done():
				return errHangup
			}
		case "stop":
			c.logger.Info("stream stopped", "call_sid", c.callSid)
			return errHangup
		case "start", "mark":
			select {
			case c.events <- ev:
			case <-ctx.Done():
				return errHangup
			}
		case "connected":
		default:
			c.logger.Debug("unknown media stream event", "event", ev.Event)
		}
	}
}

func (c *Call) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handleEvent(ev)
		case ev := <-c.utterances:
			c.handleUtterance(ev)
		case ev := <-c.completions:
			c.handleCompletion(ev)
		case seg := <-c.segments:
			c.handleAudio(seg)
		}
	}
}

func (c *Call) started() bool {
	return c.output != nil
}

func (c *Call) handleEvent(ev types.TwilioEvent) {
	switch ev.Event {
	case "start":
		c.start(ev)
	case "mark":
		if !c.started() {
			return
		}
		if !c.sequencer.Ack(ev.Mark.Name) {
			c.logger.Debug("unknown mark", "mark", ev.Mark.Name)
		}
	}
}

func (c *Call) start(ev types.TwilioEvent) {
	if c.started() {
		c.logger.Warn("duplicate start event ignored", "stream_sid", ev.Start.StreamSid)
		return
	}
	c.callSid = ev.Start.CallSid
	c.streamSid = ev.Start.StreamSid
	c.logger = c.logger.With("call_sid", c.callSid)
	c.logger.Info("stream started", "stream_sid", c.streamSid)

	out, err := output.NewTwilioOutput(c.streamSid, c.ws, c.logger)
	if err != nil {
		c.logger.Error("cannot create output", "error", err)
		return
	}
	out.Start()
	c.output = out
	c.sequencer = playback.NewSequencer(out,
		playback.WithLogger(c.logger),
		playback.WithOnSend(func(s playback.Sent) {
			c.logger.Debug("audio sent", "index", model.FormatIndex(s.Index), "mark", s.Mark, "bytes", s.Bytes)
		}),
	)
	c.coordinator = interrupt.New(out, c.sequencer, c.settings.InterruptMinChars, c.logger)

	c.history = llm.NewHistory(
		llm.Message{Role: llm.RoleSystem, Content: c.settings.SystemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: fmt.Sprintf("callSid: %s", c.callSid)},
	)
	if c.settings.Greeting != "" {
		c.history.Append(llm.RoleAssistant, c.settings.Greeting)
		c.responseWorker.Speak(nil, c.settings.Greeting, c.generation)
	}
}

func (c *Call) handleUtterance(ev utterance.Event) {
	if !c.started() {
		return
	}
	switch ev.Kind {
	case utterance.Interim:
		if c.coordinator.OnInterim(ev.Text) {
			c.generation++
			c.sequencer.Advance(c.counter.Peek())
			c.logger.Info("caller interrupted playback", "text", ev.Text)
		}
	case utterance.Final:
		c.history.Append(llm.RoleUser, ev.Text)
		c.interactions++
		c.generation++
		// Audio of the previous turn still buffered behind a gap must not
		// play once the gap closes.
		c.sequencer.Advance(c.counter.Peek())
		if c.segmenter != nil && !c.segmenter.Finished() {
			c.segmenter.Abort()
		}
		c.segmenter = response.NewSegmenter(c.counter, c.history, c.settings.PauseMarker, c.generation)
		c.logger.Info("interaction started", "interaction", c.interactions, "text", ev.Text)
		c.agentWorker.Respond(workers.CompletionRequest{
			Interaction: c.interactions,
			Messages:    c.history.Snapshot(),
		})
	}
}

func (c *Call) handleCompletion(ev workers.CompletionEvent) {
	if c.segmenter == nil || ev.Interaction != c.interactions {
		return
	}
	if ev.Err != nil {
		c.segmenter.Abort()
		return
	}

	var (
		seg model.ResponseSegment
		ok  bool
	)
	if ev.Done {
		seg, ok = c.segmenter.Done(ev.Delta)
	} else {
		seg, ok = c.segmenter.Push(ev.Delta)
	}
	if !ok {
		return
	}

	if seg.Generation != c.generation {
		c.sequencer.Skip(seg.Index)
		return
	}
	c.responseWorker.Speak(model.IndexPtr(seg.Index), seg.Text, seg.Generation)
}

func (c *Call) handleAudio(seg model.AudioSegment) {
	if !c.started() {
		return
	}
	// Out-of-band audio (the greeting) is not part of any turn, so the
	// generation does not apply to it.
	stale := seg.Index != nil && seg.Generation != c.generation
	if seg.Err != nil || stale || len(seg.Audio) == 0 {
		if seg.Err != nil && !errors.Is(seg.Err, workers.ErrNothingToSay) {
			c.logger.Warn("synthesis failed", "index", model.FormatIndex(seg.Index), "error", seg.Err)
		}
		if seg.Index != nil {
			c.sequencer.Skip(*seg.Index)
		}
		return
	}
	c.sequencer.Submit(seg.Index, seg.Audio)
}
