package model

import "strconv"

// ResponseSegment is one speakable slice of the assistant's streamed reply.
// Index is call-scoped and never reused.
type ResponseSegment struct {
	Index      int
	Text       string
	Generation int
}

// AudioSegment is the synthesized audio for a ResponseSegment. A nil Index
// marks out-of-band audio (the greeting) that bypasses ordering.
type AudioSegment struct {
	Index      *int
	Audio      []byte
	Text       string
	Generation int
	Err        error
}

// IndexPtr returns a pointer to i.
func IndexPtr(i int) *int {
	return &i
}

// FormatIndex renders an optional index for logs.
func FormatIndex(i *int) string {
	if i == nil {
		return "none"
	}
	return strconv.Itoa(*i)
}
