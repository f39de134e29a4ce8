// Package response splits a streamed model reply into independently
// synthesizable segments.
package response

import (
	"strings"
	"unicode"

	"github.com/mrsingh-rishi/voice-dialogue/llm"
	"github.com/mrsingh-rishi/voice-dialogue/model"
)

// DefaultPauseMarker is the symbol the model is instructed to place at natural
// pauses in its reply.
const DefaultPauseMarker = "•"

// Counter hands out call-scoped segment indices. It is never reset, not even
// between interactions or after an interruption.
type Counter struct {
	next int
}

func (c *Counter) Next() int {
	i := c.next
	c.next++
	return i
}

// Peek returns the index the next segment will receive.
func (c *Counter) Peek() int {
	return c.next
}

// Segmenter consumes the deltas of one completion stream. A new Segmenter is
// created per interaction; they share the call's Counter and History.
type Segmenter struct {
	counter    *Counter
	history    *llm.History
	marker     string
	generation int

	partial  strings.Builder
	complete strings.Builder
	finished bool
}

func NewSegmenter(counter *Counter, history *llm.History, marker string, generation int) *Segmenter {
	if marker == "" {
		marker = DefaultPauseMarker
	}
	return &Segmenter{
		counter:    counter,
		history:    history,
		marker:     marker,
		generation: generation,
	}
}

func (s *Segmenter) Generation() int {
	return s.generation
}

// Push appends one delta and returns a segment when the delta ends at a pause
// marker.
func (s *Segmenter) Push(delta string) (model.ResponseSegment, bool) {
	if s.finished {
		return model.ResponseSegment{}, false
	}
	s.partial.WriteString(delta)
	s.complete.WriteString(delta)

	if !strings.HasSuffix(strings.TrimRightFunc(delta, unicode.IsSpace), s.marker) {
		return model.ResponseSegment{}, false
	}
	return s.emit()
}

// Done appends the final delta, flushes whatever is left as the last segment
// and records the whole reply as one assistant message.
func (s *Segmenter) Done(delta string) (model.ResponseSegment, bool) {
	if s.finished {
		return model.ResponseSegment{}, false
	}
	s.partial.WriteString(delta)
	s.complete.WriteString(delta)
	s.finished = true

	if s.complete.Len() > 0 {
		s.history.Append(llm.RoleAssistant, s.complete.String())
	}
	return s.emit()
}

// Abort drops the unfinished reply. Nothing is added to the history.
func (s *Segmenter) Abort() {
	s.finished = true
	s.partial.Reset()
}

// Finished reports whether Done or Abort has been called.
func (s *Segmenter) Finished() bool {
	return s.finished
}

func (s *Segmenter) emit() (model.ResponseSegment, bool) {
	text := s.partial.String()
	s.partial.Reset()
	// Whitespace-only flushes take no index so the sequencer never waits on
	// audio that will not be produced.
	if strings.TrimSpace(text) == "" {
		return model.ResponseSegment{}, false
	}
	return model.ResponseSegment{
		Index:      s.counter.Next(),
		Text:       text,
		Generation: s.generation,
	}, true
}

// Speakable strips pause markers from segment text before synthesis.
func Speakable(text, marker string) string {
	if marker == "" {
		marker = DefaultPauseMarker
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(text, marker, " ")), " ")
}
