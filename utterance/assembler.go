// Package utterance decides when the caller has finished a turn.
//
// The Assembler consumes incremental transcript fragments and emits interim
// text (used for barge-in detection) and finalized utterances. It never
// fails: malformed input is dropped and the worst case is a truncated or
// missed utterance.
package utterance

import (
	"strings"

	"github.com/mrsingh-rishi/voice-dialogue/types"
)

type Kind int

const (
	Interim Kind = iota
	Final
)

func (k Kind) String() string {
	switch k {
	case Interim:
		return "interim"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind Kind
	Text string
}

// Assembler accumulates final transcript text until the provider signals the
// end of an utterance. It is not safe for concurrent use; one goroutine owns it.
type Assembler struct {
	final       string
	speechFinal bool
}

func New() *Assembler {
	return &Assembler{}
}

// Fragment feeds one provider event and reports the resulting event, if any.
func (a *Assembler) Fragment(f types.Fragment) (Event, bool) {
	if f.UtteranceEnd {
		return a.endOfUtterance()
	}

	text := strings.TrimSpace(f.Text)
	if text == "" {
		return Event{}, false
	}

	if !f.Final {
		a.speechFinal = false
		return Event{Kind: Interim, Text: text}, true
	}

	if a.final == "" {
		a.final = text
	} else {
		a.final += " " + text
	}

	if !f.SpeechFinal {
		a.speechFinal = false
		return Event{}, false
	}

	// speechFinal stays set until the next interim fragment so a trailing
	// UtteranceEnd for the same speech is ignored.
	a.speechFinal = true
	return a.flush()
}

func (a *Assembler) endOfUtterance() (Event, bool) {
	if a.speechFinal {
		return Event{}, false
	}
	return a.flush()
}

func (a *Assembler) flush() (Event, bool) {
	text := a.final
	a.final = ""
	if text == "" {
		return Event{}, false
	}
	return Event{Kind: Final, Text: text}, true
}

// Pending returns the final text accumulated but not yet emitted.
func (a *Assembler) Pending() string {
	return a.final
}

// SpeechFinal reports whether the last utterance was closed by the provider's
// speech-final signal and no interim speech has been heard since.
func (a *Assembler) SpeechFinal() bool {
	return a.speechFinal
}

func (a *Assembler) Reset() {
	a.final = ""
	a.speechFinal = false
}
