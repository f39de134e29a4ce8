// Package playback restores segment order before audio reaches the caller.
//
// Synthesis runs concurrently per segment, so audio arrives in completion
// order. The Sequencer buffers early segments and hands audio to the transport
// strictly by ascending segment index, tracking one marker per send.
package playback

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mrsingh-rishi/voice-dialogue/model"
)

// Transport is the outbound half of the media stream.
type Transport interface {
	SendAudio(audio []byte) error
	SendMark(mark string) error
}

// Sent describes one delivery to the transport. Index is nil for out-of-band
// audio.
type Sent struct {
	Index *int
	Mark  string
	Bytes int
}

type Option func(*Sequencer)

// WithOnSend registers a hook called after every send.
func WithOnSend(fn func(Sent)) Option {
	return func(s *Sequencer) {
		s.onSend = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithMarkGenerator replaces the UUID marker generator.
func WithMarkGenerator(fn func() string) Option {
	return func(s *Sequencer) {
		s.newMark = fn
	}
}

// Sequencer is owned by a single goroutine and is not safe for concurrent use.
type Sequencer struct {
	transport Transport
	marks     *Marks

	nextExpected int
	// buffered holds audio that arrived ahead of nextExpected. A nil value is a
	// skipped index that releases the slot without playing anything.
	buffered map[int][]byte

	onSend  func(Sent)
	newMark func() string
	logger  *slog.Logger
}

func NewSequencer(transport Transport, opts ...Option) *Sequencer {
	s := &Sequencer{
		transport: transport,
		marks:     NewMarks(),
		buffered:  make(map[int][]byte),
		newMark:   uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit delivers audio for a segment. A nil index bypasses ordering.
// Duplicate or stale indices are dropped.
func (s *Sequencer) Submit(index *int, audio []byte) {
	if index == nil {
		s.send(nil, audio)
		return
	}

	i := *index
	switch {
	case i < s.nextExpected:
		s.logger.Debug("dropping stale segment", "index", i, "next_expected", s.nextExpected)
	case i == s.nextExpected:
		s.send(index, audio)
		s.nextExpected++
		s.drain()
	default:
		if _, ok := s.buffered[i]; ok {
			s.logger.Debug("dropping duplicate segment", "index", i)
			return
		}
		if audio == nil {
			audio = []byte{}
		}
		s.buffered[i] = audio
	}
}

// Skip releases an index whose audio will never arrive, for example because
// synthesis failed or the segment belongs to an interrupted turn.
func (s *Sequencer) Skip(index int) {
	switch {
	case index < s.nextExpected:
	case index == s.nextExpected:
		s.nextExpected++
		s.drain()
	default:
		if _, ok := s.buffered[index]; !ok {
			s.buffered[index] = nil
		}
	}
}

// Advance treats every index below to as consumed and plays anything
// buffered that becomes contiguous.
func (s *Sequencer) Advance(to int) {
	if to <= s.nextExpected {
		return
	}
	for i := range s.buffered {
		if i < to {
			delete(s.buffered, i)
		}
	}
	s.nextExpected = to
	s.drain()
}

func (s *Sequencer) drain() {
	for {
		audio, ok := s.buffered[s.nextExpected]
		if !ok {
			return
		}
		delete(s.buffered, s.nextExpected)
		if audio != nil {
			s.send(&s.nextExpected, audio)
		}
		s.nextExpected++
	}
}

func (s *Sequencer) send(index *int, audio []byte) {
	var idx *int
	if index != nil {
		i := *index
		idx = &i
	}

	if err := s.transport.SendAudio(audio); err != nil {
		s.logger.Warn("failed to send audio", "index", model.FormatIndex(idx), "error", err)
		return
	}
	mark := s.newMark()
	s.marks.Add(mark)
	if err := s.transport.SendMark(mark); err != nil {
		s.logger.Warn("failed to send mark", "mark", mark, "error", err)
	}
	if s.onSend != nil {
		s.onSend(Sent{Index: idx, Mark: mark, Bytes: len(audio)})
	}
}

// Ack removes a marker once the transport reports its audio finished playing.
func (s *Sequencer) Ack(mark string) bool {
	return s.marks.Remove(mark)
}

// Reset clears buffered audio and outstanding markers. nextExpected is kept so
// consumed indices are never replayed.
func (s *Sequencer) Reset() {
	clear(s.buffered)
	s.marks.Clear()
}

// Outstanding returns the number of markers awaiting acknowledgement.
func (s *Sequencer) Outstanding() int {
	return s.marks.Len()
}

func (s *Sequencer) NextExpected() int {
	return s.nextExpected
}

// Buffered returns the number of indices held back waiting for a gap to fill.
func (s *Sequencer) Buffered() int {
	return len(s.buffered)
}
