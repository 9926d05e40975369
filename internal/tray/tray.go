// Package tray provides a system tray interface for the strikezone pitch tracker.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/strikezone/internal/model"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func(tracking bool) error
	onResetField func()
	onChart      func()
	onQuit       func()
	tracking     bool
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuState     *systray.MenuItem
	menuLastPitch *systray.MenuItem
}

// New creates a new Tray with tracking off.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when tracking is switched on or off. A
// failed start leaves the toggle off.
func (t *Tray) OnToggle(fn func(tracking bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnResetField sets the callback for the reset field menu item.
func (t *Tray) OnResetField(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onResetField = fn
}

// OnChart sets the callback for the pitch chart menu item.
func (t *Tray) OnChart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChart = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Strikezone")
	systray.SetTooltip("Strikezone Pitch Tracker")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(false), "Start or stop pitch tracking")
	t.menuState = systray.AddMenuItem("State: "+model.StateInitializing.String(), "Tracking state")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuLastPitch = systray.AddMenuItem("Last: none", "Last classified pitch")
	t.menuLastPitch.Disable()
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset Field", "Discard the placed home plate")
	menuChart := systray.AddMenuItem("Open Pitch Chart...", "Open the pitch chart in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Strikezone")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleResetField()
			case <-menuChart.ClickedCh:
				t.handleChart()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.tracking
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(want); err != nil {
			want = false
			t.setTooltip(fmt.Sprintf("Tracking unavailable: %v", err))
		}
	}
	t.SetTracking(want)
}

func (t *Tray) handleResetField() {
	t.mu.RLock()
	callback := t.onResetField
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleChart() {
	t.mu.RLock()
	callback := t.onChart
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func (t *Tray) setTooltip(s string) {
	t.mu.RLock()
	ready := t.menuToggle != nil
	t.mu.RUnlock()
	if ready {
		systray.SetTooltip(s)
	}
}

// SetTracking updates the toggle to match the session.
func (t *Tray) SetTracking(tracking bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = tracking
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(tracking))
	}
}

// SetState shows the tracking state.
func (t *Tray) SetState(s model.TrackingState) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuState != nil {
		t.menuState.SetTitle("State: " + s.String())
	}
}

// SetLastPitch updates the last pitch display in the menu.
func (t *Tray) SetLastPitch(pc model.PitchClassification) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuLastPitch != nil {
		t.menuLastPitch.SetTitle("Last: " + PitchLabel(pc))
	}
}

// IsTracking returns the toggle state.
func (t *Tray) IsTracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}

func toggleTitle(tracking bool) string {
	if tracking {
		return "● Tracking"
	}
	return "○ Stopped"
}

// PitchLabel renders a pitch as e.g. "62.4 mph strike" or "ball".
func PitchLabel(pc model.PitchClassification) string {
	if pc.SpeedMPH == nil {
		return pc.Outcome()
	}
	return fmt.Sprintf("%.1f mph %s", *pc.SpeedMPH, pc.Outcome())
}
