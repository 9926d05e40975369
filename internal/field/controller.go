// Package field owns the single field anchor: placing it from a screen tap,
// previewing slider adjustments, and committing them to world tracking.
package field

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/scene"
	"github.com/ayusman/strikezone/internal/state"
	"github.com/ayusman/strikezone/internal/timeutil"
)

// Config holds tunables for the controller.
type Config struct {
	Dimensions model.FieldDimensions `mapstructure:"dimensions"`
	// DebounceDelay is how long preview values must settle before they are
	// applied to the scene.
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
	// YawSign is multiplied into every yaw before rotating. -1 matches a
	// renderer whose positive slider angle turns the field clockwise from above.
	YawSign         float64 `mapstructure:"yawSign"`
	MaxYawDegrees   float64 `mapstructure:"maxYawDegrees"`
	MaxOffsetMeters float64 `mapstructure:"maxOffsetMeters"`
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		Dimensions:      model.DefaultFieldDimensions(),
		DebounceDelay:   150 * time.Millisecond,
		YawSign:         -1,
		MaxYawDegrees:   45,
		MaxOffsetMeters: 0.20,
	}
}

// Anchor is the authoritative field placement plus the live slider state.
type Anchor struct {
	Origin     r3.Vector         `json:"origin"`
	YawDegrees float64           `json:"yaw_degrees"`
	LiveOffset geom.GroundOffset `json:"live_offset"`
	AnchorID   string            `json:"anchor_id,omitempty"`
}

// Controller maintains exactly one field anchor. All methods are safe for
// concurrent use; scheduled preview callbacks take the same lock.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	raycaster Raycaster
	anchors   AnchorTracker
	location  LocationSource
	clock     timeutil.Clock
	states    *state.Machine
	tree      *scene.Tree

	anchor       *Anchor
	config       *model.FieldConfiguration
	nodes        *fieldNodes
	linesVisible bool

	preview    PreviewState
	timer      timeutil.Timer
	generation uint64

	listeners []func(*model.FieldConfiguration)
}

// Option configures optional collaborators.
type Option func(*Controller)

// WithClock replaces the real clock.
func WithClock(c timeutil.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLocation attaches a location source whose position is stored with each placement.
func WithLocation(l LocationSource) Option {
	return func(ctl *Controller) { ctl.location = l }
}

// WithSceneTree renders into an existing tree instead of a private one.
func WithSceneTree(t *scene.Tree) Option {
	return func(ctl *Controller) { ctl.tree = t }
}

// NewController creates a controller in StateSearchingForHomePlate.
func NewController(cfg Config, raycaster Raycaster, anchors AnchorTracker, states *state.Machine, opts ...Option) *Controller {
	if cfg.YawSign == 0 {
		cfg.YawSign = -1
	}
	c := &Controller{
		cfg:          cfg,
		raycaster:    raycaster,
		anchors:      anchors,
		clock:        timeutil.RealClock{},
		states:       states,
		tree:         scene.NewTree(),
		linesVisible: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.states.Set(model.StateSearchingForHomePlate, "field controller ready")
	return c
}

// OnChange registers fn to receive the configuration after every placement,
// commit and reset (nil after reset).
func (c *Controller) OnChange(fn func(*model.FieldConfiguration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// PlaceField raycasts the screen point and, on a hit, places the plate there
// with zero yaw. Placing again replaces the previous field.
func (c *Controller) PlaceField(p ScreenPoint) (*model.FieldConfiguration, error) {
	hit, ok := c.raycaster.Raycast(p)
	if !ok {
		log.Info().Float64("x", p.X).Float64("y", p.Y).Msg("placement raycast missed, keep scanning")
		return nil, ErrNoPlaneFound
	}

	c.mu.Lock()
	c.cancelPendingLocked()
	c.discardLocked()

	c.anchor = &Anchor{Origin: hit}
	if err := c.buildSceneLocked(); err != nil {
		c.anchor = nil
		c.mu.Unlock()
		return nil, err
	}
	cfg, err := c.snapshotLocked()
	if err != nil {
		c.discardLocked()
		c.mu.Unlock()
		return nil, err
	}
	c.config = cfg
	c.preview = PreviewState{Phase: PreviewApplied}

	anchorErr := c.replaceWorldAnchorLocked()
	listeners := c.listeners
	c.mu.Unlock()

	c.states.Set(model.StateFieldPlaced, "home plate placed")
	log.Info().
		Float64("x", hit.X).Float64("y", hit.Y).Float64("z", hit.Z).
		Msg("field placed")
	notify(listeners, cfg)

	if anchorErr != nil {
		return cfg, anchorErr
	}
	return cfg, nil
}

// PreviewOrientation sets the live yaw in degrees. Application to the scene
// is debounced; rapid calls coalesce to the last value.
func (c *Controller) PreviewOrientation(degrees float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.anchor == nil {
		return ErrNoField
	}
	c.anchor.YawDegrees = clamp(degrees, c.cfg.MaxYawDegrees)
	c.schedulePreviewLocked()
	return nil
}

// PreviewPosition sets the live ground-plane offset in metres, in the
// anchor's rotated frame. Y is always zero.
func (c *Controller) PreviewPosition(x, z float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.anchor == nil {
		return ErrNoField
	}
	c.anchor.LiveOffset = geom.GroundOffset{
		X: clamp(x, c.cfg.MaxOffsetMeters),
		Z: clamp(z, c.cfg.MaxOffsetMeters),
	}
	c.schedulePreviewLocked()
	return nil
}

// Commit bakes the current yaw and offset into the anchor. Any pending
// preview is cancelled first and the pose is computed from the controller's
// fields, never from the rendered scene. The scene is updated synchronously
// and the world-tracking anchor is replaced. A failed anchor replacement is
// returned but local state is kept.
func (c *Controller) Commit() (*model.FieldConfiguration, error) {
	c.mu.Lock()

	if c.anchor == nil {
		c.mu.Unlock()
		return nil, ErrNoField
	}
	c.cancelPendingLocked()

	final := geom.LocalToWorld(c.anchor.Origin, c.anchor.YawDegrees, c.cfg.YawSign, c.anchor.LiveOffset)
	c.anchor.Origin = final
	c.anchor.LiveOffset = geom.GroundOffset{}
	if err := c.tree.SetLocal(c.nodes.container, c.renderPoseLocked()); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("apply committed pose: %w", err)
	}
	c.preview = PreviewState{Phase: PreviewApplied, YawDegrees: c.anchor.YawDegrees}

	cfg, err := c.snapshotLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.config = cfg
	if err := c.layoutChildrenLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	anchorErr := c.replaceWorldAnchorLocked()
	listeners := c.listeners
	c.mu.Unlock()

	log.Info().
		Float64("x", final.X).Float64("z", final.Z).
		Float64("yaw_degrees", cfg.YawDegrees).
		Msg("field adjustment committed")
	notify(listeners, cfg)

	if anchorErr != nil {
		return cfg, anchorErr
	}
	return cfg, nil
}

// RetryAnchor re-adds the world-tracking anchor after a failed replacement.
func (c *Controller) RetryAnchor() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.anchor == nil {
		return ErrNoField
	}
	if c.anchor.AnchorID != "" {
		return nil
	}
	return c.replaceWorldAnchorLocked()
}

// Reset cancels pending work and discards the anchor and all derived geometry.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.discardLocked()
	c.preview = PreviewState{}
	listeners := c.listeners
	c.mu.Unlock()

	c.states.Set(model.StateSearchingForHomePlate, "field reset")
	log.Info().Msg("field reset")
	notify(listeners, nil)
}

// SetFieldLinesVisible shows or hides the decorative field lines. The strike
// zone stays visible either way.
func (c *Controller) SetFieldLinesVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.linesVisible = visible
	if c.nodes == nil {
		return
	}
	if err := c.tree.SetVisible(c.nodes.lines, visible); err != nil {
		log.Warn().Err(err).Msg("toggle field lines")
	}
}

// FieldLinesVisible reports the decorative-lines flag.
func (c *Controller) FieldLinesVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linesVisible
}

// Configuration returns the committed field, or nil before placement.
func (c *Controller) Configuration() *model.FieldConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return nil
	}
	cfg := *c.config
	return &cfg
}

// Anchor returns a copy of the current anchor state.
func (c *Controller) Anchor() (Anchor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anchor == nil {
		return Anchor{}, false
	}
	return *c.anchor, true
}

// RenderedPose returns the container's pose as the scene currently shows it.
// During a pending preview this lags the controller's fields.
func (c *Controller) RenderedPose() (geom.Pose, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nodes == nil {
		return geom.Pose{}, ErrNoField
	}
	return c.tree.World(c.nodes.container)
}

// Scene exposes the render tree for read-only consumers.
func (c *Controller) Scene() *scene.Tree {
	return c.tree
}

// renderPoseLocked is origin + R(yaw)·offset, rotated by yaw.
func (c *Controller) renderPoseLocked() geom.Pose {
	pos := geom.LocalToWorld(c.anchor.Origin, c.anchor.YawDegrees, c.cfg.YawSign, c.anchor.LiveOffset)
	return geom.NewYawPose(pos, c.cfg.YawSign*geom.DegToRad(c.anchor.YawDegrees))
}

func (c *Controller) snapshotLocked() (*model.FieldConfiguration, error) {
	zone, err := model.NewStrikeZone(c.cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	cfg := &model.FieldConfiguration{
		PlatePosition: c.anchor.Origin,
		YawDegrees:    c.anchor.YawDegrees,
		YawSign:       c.cfg.YawSign,
		StrikeZone:    zone,
		Dimensions:    c.cfg.Dimensions,
		PlacedAt:      c.clock.Now(),
	}
	if d := c.cfg.Dimensions.MoundDistance; d > 0 {
		mound := cfg.PlateToWorld(r3.Vector{Z: -d})
		cfg.MoundPosition = &mound
	}
	if c.location != nil {
		if loc, ok := c.location.Location(); ok {
			cfg.Location = &loc
		}
	}
	return cfg, nil
}

func (c *Controller) replaceWorldAnchorLocked() error {
	if c.anchor.AnchorID != "" {
		if err := c.anchors.RemoveAnchor(c.anchor.AnchorID); err != nil {
			log.Warn().Err(err).Str("anchor", c.anchor.AnchorID).Msg("remove stale world anchor")
		}
		c.anchor.AnchorID = ""
	}

	id, err := c.anchors.AddAnchor(c.renderPoseLocked())
	if err != nil {
		log.Warn().Err(err).Msg("world anchor not replaced, local pose kept")
		return fmt.Errorf("replace world anchor: %w", err)
	}
	c.anchor.AnchorID = id
	return nil
}

// discardLocked drops the anchor, its world-tracking anchor and scene nodes.
func (c *Controller) discardLocked() {
	if c.anchor != nil && c.anchor.AnchorID != "" {
		if err := c.anchors.RemoveAnchor(c.anchor.AnchorID); err != nil {
			log.Warn().Err(err).Str("anchor", c.anchor.AnchorID).Msg("remove world anchor")
		}
	}
	if c.nodes != nil {
		if err := c.tree.Remove(c.nodes.container); err != nil {
			log.Warn().Err(err).Msg("remove field nodes")
		}
	}
	c.anchor = nil
	c.config = nil
	c.nodes = nil
}

func notify(listeners []func(*model.FieldConfiguration), cfg *model.FieldConfiguration) {
	for _, fn := range listeners {
		fn(cfg)
	}
}

func clamp(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return math.Max(-limit, math.Min(limit, v))
}
