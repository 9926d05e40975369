package field

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/geom"
)

// PreviewPhase is the debounce state of live slider updates.
type PreviewPhase int

const (
	// PreviewIdle means no preview has been requested since placement or reset.
	PreviewIdle PreviewPhase = iota
	// PreviewPending means values are waiting for the debounce delay.
	PreviewPending
	// PreviewApplied means the scene reflects the controller's fields.
	PreviewApplied
)

func (p PreviewPhase) String() string {
	switch p {
	case PreviewPending:
		return "pending"
	case PreviewApplied:
		return "applied"
	default:
		return "idle"
	}
}

// PreviewState is a snapshot of the debounce state machine.
type PreviewState struct {
	Phase       PreviewPhase
	ScheduledAt time.Time
	YawDegrees  float64
	Offset      geom.GroundOffset
}

// PreviewState returns the debounce state.
func (c *Controller) PreviewState() PreviewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// schedulePreviewLocked replaces any pending application with one for the
// current fields. Only the last call within the delay takes effect.
func (c *Controller) schedulePreviewLocked() {
	c.cancelPendingLocked()

	gen := c.generation
	c.preview = PreviewState{
		Phase:       PreviewPending,
		ScheduledAt: c.clock.Now().Add(c.cfg.DebounceDelay),
		YawDegrees:  c.anchor.YawDegrees,
		Offset:      c.anchor.LiveOffset,
	}
	c.timer = c.clock.AfterFunc(c.cfg.DebounceDelay, func() {
		c.applyPreview(gen)
	})
}

// cancelPendingLocked stops the timer and bumps the generation so a callback
// that already started becomes a no-op.
func (c *Controller) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	if c.preview.Phase == PreviewPending {
		c.preview.Phase = PreviewIdle
	}
}

func (c *Controller) applyPreview(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.anchor == nil || c.nodes == nil {
		return
	}
	c.timer = nil

	if err := c.tree.SetLocal(c.nodes.container, c.renderPoseLocked()); err != nil {
		log.Warn().Err(err).Msg("apply field preview")
		return
	}
	c.preview.Phase = PreviewApplied
	c.preview.YawDegrees = c.anchor.YawDegrees
	c.preview.Offset = c.anchor.LiveOffset
}
