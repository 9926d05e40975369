// Package state tracks the session's TrackingState and fans transitions out
// to subscribers.
package state

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/model"
)

// Transition describes a single state change.
type Transition struct {
	From   model.TrackingState `json:"from"`
	To     model.TrackingState `json:"to"`
	Reason string              `json:"reason,omitempty"`
	At     time.Time           `json:"at"`
}

// Listener receives transitions. It is called outside the machine's lock.
type Listener func(Transition)

// Machine holds the current tracking state.
type Machine struct {
	mu        sync.RWMutex
	current   model.TrackingState
	lastErr   string
	listeners []Listener
}

// NewMachine returns a machine in StateInitializing.
func NewMachine() *Machine {
	return &Machine{current: model.StateInitializing}
}

// Current returns the current state.
func (m *Machine) Current() model.TrackingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// LastError returns the reason recorded with the most recent transition to StateError.
func (m *Machine) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Subscribe registers l for every future transition.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Set moves to s. Setting the current state again is a no-op and returns false.
func (m *Machine) Set(s model.TrackingState, reason string) bool {
	return m.transition(s, reason, nil)
}

// Advance moves to s only when the current state is from. It is used for
// transitions that must not override a later or unrelated state.
func (m *Machine) Advance(from, to model.TrackingState, reason string) bool {
	return m.transition(to, reason, &from)
}

func (m *Machine) transition(s model.TrackingState, reason string, from *model.TrackingState) bool {
	m.mu.Lock()
	if m.current == s || (from != nil && m.current != *from) {
		m.mu.Unlock()
		return false
	}
	tr := Transition{From: m.current, To: s, Reason: reason, At: time.Now()}
	m.current = s
	if s == model.StateError {
		m.lastErr = reason
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	log.Debug().Stringer("from", tr.From).Stringer("to", tr.To).Str("reason", reason).Msg("tracking state changed")

	for _, l := range listeners {
		l(tr)
	}
	return true
}
