package entity

import "image"

// RawFrame is one decoded picture taken from a video. Sources may reuse the
// pixel buffer, so a frame is only valid until the next one is produced.
type RawFrame struct {
	Index int
	Image image.Image
}

// CodeSet holds the distinct codes seen during one scan, in first-seen order.
type CodeSet struct {
	index  map[string]int
	order  []string
	frozen bool
}

func NewCodeSet() *CodeSet {
	return &CodeSet{index: make(map[string]int)}
}

// Add records code if it is new. It reports whether the code was inserted;
// duplicates, empty strings and additions after Freeze are ignored.
func (s *CodeSet) Add(code string) bool {
	if s.frozen || code == "" {
		return false
	}
	if _, ok := s.index[code]; ok {
		return false
	}
	s.index[code] = len(s.order)
	s.order = append(s.order, code)
	return true
}

// Position returns the first-seen index of code.
func (s *CodeSet) Position(code string) (int, bool) {
	pos, ok := s.index[code]
	return pos, ok
}

func (s *CodeSet) Len() int {
	return len(s.order)
}

// Freeze stops further insertions and returns the codes in first-seen order.
func (s *CodeSet) Freeze() []string {
	s.frozen = true
	return s.Codes()
}

func (s *CodeSet) Frozen() bool {
	return s.frozen
}

func (s *CodeSet) Codes() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
