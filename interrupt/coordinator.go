// Package interrupt clears assistant playback when the caller barges in.
package interrupt

import (
	"log/slog"
	"unicode/utf8"
)

// DefaultMinChars is the interim text length that must be exceeded before
// speech counts as a barge-in. Shorter text is treated as noise or filler.
const DefaultMinChars = 5

// Clearer stops playback of everything already handed to the transport.
type Clearer interface {
	Clear() error
}

// Pending exposes the playback state the coordinator inspects and resets.
type Pending interface {
	Outstanding() int
	Reset()
}

type Coordinator struct {
	clearer  Clearer
	pending  Pending
	minChars int
	logger   *slog.Logger
}

func New(clearer Clearer, pending Pending, minChars int, logger *slog.Logger) *Coordinator {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		clearer:  clearer,
		pending:  pending,
		minChars: minChars,
		logger:   logger,
	}
}

// OnInterim handles interim caller speech and reports whether playback was
// interrupted. The clear is fire-and-forget.
func (c *Coordinator) OnInterim(text string) bool {
	outstanding := c.pending.Outstanding()
	if outstanding == 0 || utf8.RuneCountInString(text) <= c.minChars {
		return false
	}

	c.logger.Info("caller interrupted playback, clearing stream", "outstanding_marks", outstanding, "text", text)
	if err := c.clearer.Clear(); err != nil {
		c.logger.Warn("failed to clear playback", "error", err)
	}
	c.pending.Reset()
	return true
}
