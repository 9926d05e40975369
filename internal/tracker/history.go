package tracker

import (
	"github.com/ayusman/strikezone/internal/model"
)

// DefaultCapacity is the number of samples kept when none is configured.
const DefaultCapacity = 10

// MinCapacity is the smallest ring that still holds a pair for speed
// estimation.
const MinCapacity = 2

// History is a fixed-capacity ring of ball samples. The oldest sample is
// overwritten once the ring is full. It is not safe for concurrent use; the
// tracker guards it.
type History struct {
	data []model.TrackedBallSample
	pos  int
	full bool
}

// NewHistory creates a History holding at most capacity samples. A
// non-positive capacity takes DefaultCapacity and smaller rings are raised
// to MinCapacity.
func NewHistory(capacity int) *History {
	switch {
	case capacity <= 0:
		capacity = DefaultCapacity
	case capacity < MinCapacity:
		capacity = MinCapacity
	}
	return &History{data: make([]model.TrackedBallSample, capacity)}
}

// Push appends s, evicting the oldest sample when full.
func (h *History) Push(s model.TrackedBallSample) {
	h.data[h.pos] = s
	h.pos++
	if h.pos >= len(h.data) {
		h.pos = 0
		h.full = true
	}
}

// Len returns the number of samples held.
func (h *History) Len() int {
	if h.full {
		return len(h.data)
	}
	return h.pos
}

// Cap returns the ring capacity.
func (h *History) Cap() int {
	return len(h.data)
}

// Last returns the i-th most recent sample, where 0 is the newest.
func (h *History) Last(i int) (model.TrackedBallSample, bool) {
	if i < 0 || i >= h.Len() {
		return model.TrackedBallSample{}, false
	}
	idx := (h.pos - 1 - i + len(h.data)) % len(h.data)
	return h.data[idx], true
}

// Slice returns the samples oldest first.
func (h *History) Slice() []model.TrackedBallSample {
	n := h.Len()
	out := make([]model.TrackedBallSample, n)
	if h.full {
		copy(out, h.data[h.pos:])
		copy(out[len(h.data)-h.pos:], h.data[:h.pos])
	} else {
		copy(out, h.data[:h.pos])
	}
	return out
}

// Clear empties the ring without releasing its storage.
func (h *History) Clear() {
	h.pos = 0
	h.full = false
}
