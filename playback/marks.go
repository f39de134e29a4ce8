package playback

// Marks is the set of outstanding playback markers: audio handed to the
// transport whose playback has not been acknowledged yet.
type Marks struct {
	pending map[string]struct{}
}

func NewMarks() *Marks {
	return &Marks{pending: make(map[string]struct{})}
}

func (m *Marks) Add(mark string) {
	m.pending[mark] = struct{}{}
}

// Remove deletes mark and reports whether it was outstanding.
func (m *Marks) Remove(mark string) bool {
	if _, ok := m.pending[mark]; !ok {
		return false
	}
	delete(m.pending, mark)
	return true
}

func (m *Marks) Has(mark string) bool {
	_, ok := m.pending[mark]
	return ok
}

func (m *Marks) Len() int {
	return len(m.pending)
}

func (m *Marks) Clear() {
	clear(m.pending)
}
