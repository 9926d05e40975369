// Package app wires the field controller, tracker, detection feed, store
// and pitch hooks into one tracking session.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/strikezone/internal/capture"
	"github.com/ayusman/strikezone/internal/config"
	"github.com/ayusman/strikezone/internal/detector"
	"github.com/ayusman/strikezone/internal/feed"
	"github.com/ayusman/strikezone/internal/field"
	"github.com/ayusman/strikezone/internal/hook"
	"github.com/ayusman/strikezone/internal/logging"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/state"
	"github.com/ayusman/strikezone/internal/store"
	"github.com/ayusman/strikezone/internal/timeutil"
	"github.com/ayusman/strikezone/internal/tracker"
)

// ErrSessionInterrupted is reported when the camera or world tracking stops
// delivering frames mid-session.
var ErrSessionInterrupted = errors.New("tracking session interrupted")

// Event types sent to the Publisher.
const (
	EventPitch = "pitch"
	EventState = "state"
	EventField = "field"
)

// Publisher fans session events out to viewers.
type Publisher interface {
	Publish(eventType string, data any)
}

// Config holds the collaborators for an App. Nil collaborators are built
// from Settings.
type Config struct {
	Settings config.Config
	Store    *store.Store
	Camera   capture.Camera
	Poses    capture.PoseSource
	Detector detector.Detector
	Anchors  field.AnchorTracker
	Location field.LocationSource
	Events   Publisher
	Clock    timeutil.Clock
}

// App is one tracking session.
type App struct {
	cfg      config.Config
	store    *store.Store
	clock    timeutil.Clock
	frameLog zerolog.Logger

	states     *state.Machine
	field      *field.Controller
	tracker    *tracker.Tracker
	camera     capture.Camera
	poses      capture.PoseSource
	grabber    *capture.Grabber
	detector   detector.Detector
	projector  feed.Projector
	gate       *capture.Gate
	plugins    *hook.Manager
	dispatcher *hook.Dispatcher

	mu  sync.Mutex
	run *run

	// generation identifies the current owner of run. A restart loop
	// gives up once it changes.
	generation uint64

	// dataMu is separate from mu because state listeners publish while
	// mu is held.
	dataMu  sync.Mutex
	events  Publisher
	fieldID string

	previewMu sync.Mutex
	preview   *gocv.Mat
}

// run is one camera-to-tracker loop. It is replaced on restart.
type run struct {
	cancel func()
	done   chan struct{}
	feed   *feed.Feed
}

// New creates a stopped App.
func New(c Config) *App {
	s := c.Settings
	a := &App{
		cfg:      s,
		store:    c.Store,
		events:   c.Events,
		clock:    c.Clock,
		frameLog: logging.Sampled(),
		states:   state.NewMachine(),
		camera:   c.Camera,
		poses:    c.Poses,
		detector: c.Detector,
	}
	if a.clock == nil {
		a.clock = timeutil.RealClock{}
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(s.Camera)
	}

	mount := capture.NewStaticPose(s.Mount)
	if a.poses == nil {
		a.poses = mount
	}
	if a.detector == nil {
		a.detector = newDetector(s.Detector)
	}
	anchors := c.Anchors
	if anchors == nil {
		anchors = field.NewMemoryAnchors(true)
	}

	raycaster := &field.PlaneRaycaster{Intrinsics: s.Intrinsics, Camera: mount}
	opts := []field.Option{field.WithClock(a.clock)}
	if c.Location != nil {
		opts = append(opts, field.WithLocation(c.Location))
	}
	a.field = field.NewController(s.Field, raycaster, anchors, a.states, opts...)
	a.tracker = tracker.New(s.Tracker, a.detector, a.field, a.states, tracker.WithClock(a.clock))
	a.grabber = capture.NewGrabber(a.camera, a.poses, a.clock)

	a.projector = feed.NewProjector(s.Intrinsics)
	if s.BallDiameter > 0 {
		a.projector.BallDiameter = s.BallDiameter
	}
	if s.Motion.Enabled {
		a.gate = capture.NewGate(capture.NewMotionDetector(s.Motion.Threshold), s.Motion.Hold, a.clock)
	}

	a.plugins = hook.NewManager(s.Hooks.Dir)
	if a.store != nil {
		a.dispatcher = hook.NewDispatcher(a.store.Hooks(), a.plugins,
			hook.NewExecutor(time.Duration(s.Hooks.TimeoutMs)*time.Millisecond))
	}

	a.states.Subscribe(a.onTransition)
	a.field.OnChange(a.onFieldChange)
	a.tracker.OnPitch(a.onPitch)
	return a
}

// newDetector starts the model service, falling back to a detector that
// never reports ready so tracking refuses to start.
func newDetector(cfg detector.Config) detector.Detector {
	d, err := detector.NewServiceDetector(cfg)
	if err == nil {
		log.Info().Msg("using detection model service")
		return d
	}
	log.Warn().Err(err).Msg("detection model service not available")
	mock := detector.NewMockDetector()
	mock.SetReady(false)
	return mock
}

// DiscoverPlugins scans the hook plugin directory.
func (a *App) DiscoverPlugins() error {
	return a.plugins.Discover()
}

// Plugins returns the hook plugin manager.
func (a *App) Plugins() *hook.Manager {
	return a.plugins
}

// Field returns the field controller.
func (a *App) Field() *field.Controller {
	return a.field
}

// Tracker returns the ball tracker.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

// States returns the tracking state machine.
func (a *App) States() *state.Machine {
	return a.states
}

// SetPublisher replaces the event publisher.
func (a *App) SetPublisher(p Publisher) {
	a.dataMu.Lock()
	defer a.dataMu.Unlock()
	a.events = p
}

// StartTracking opens the camera and starts the detection loop. It fails
// without a camera pose or a ready detection model.
func (a *App) StartTracking() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run != nil {
		return nil
	}
	if _, err := a.poses.Pose(); err != nil {
		if errors.Is(err, capture.ErrWorldTrackingUnsupported) {
			a.states.Set(model.StateError, err.Error())
		}
		return fmt.Errorf("camera pose: %w", err)
	}
	if err := a.tracker.Start(); err != nil {
		return err
	}
	if err := a.startRunLocked(); err != nil {
		a.tracker.Stop()
		return err
	}
	a.generation++
	return nil
}

// StopTracking stops the loop and closes the camera. The tracker stops
// accepting frames before the loop is torn down.
func (a *App) StopTracking() {
	a.mu.Lock()
	r := a.run
	a.run = nil
	a.generation++
	a.mu.Unlock()

	a.tracker.Stop()
	if r != nil {
		a.stopRun(r)
	}
}

// IsTracking reports whether the tracker is accepting frames.
func (a *App) IsTracking() bool {
	return a.tracker.IsTracking()
}

// State returns the current tracking state.
func (a *App) State() model.TrackingState {
	return a.states.Current()
}

// LastError returns the reason for the most recent error state.
func (a *App) LastError() string {
	return a.states.LastError()
}

// TrackerStats returns the tracker's frame counters.
func (a *App) TrackerStats() tracker.Stats {
	return a.tracker.Stats()
}

// LatestPitch returns the most recent classification.
func (a *App) LatestPitch() (model.PitchClassification, bool) {
	return a.tracker.Latest()
}

// ResetField discards the placed field.
func (a *App) ResetField() {
	a.field.Reset()
}

// HandleInterruption moves to the error state and restarts the loop in the
// background with a growing backoff. Viewers see the error state until a
// restart succeeds.
func (a *App) HandleInterruption(err error) {
	a.states.Set(model.StateError, err.Error())
	log.Warn().Err(err).Msg("tracking session interrupted")

	a.mu.Lock()
	if a.run == nil {
		a.mu.Unlock()
		return
	}
	a.generation++
	gen := a.generation
	a.mu.Unlock()
	go a.restart(gen)
}

// restart owns the session for as long as gen is current. Failed attempts
// leave no run behind, so the next attempt starts from a closed camera.
func (a *App) restart(gen uint64) {
	backoff := a.cfg.Session.RestartBackoff
	for attempt := 1; attempt <= a.cfg.Session.MaxRestarts; attempt++ {
		a.sleep(backoff * time.Duration(attempt))

		a.mu.Lock()
		if a.generation != gen {
			// Stopped or restarted by someone else meanwhile.
			a.mu.Unlock()
			return
		}
		if a.run != nil {
			a.stopRun(a.run)
			a.run = nil
		}
		err := a.tracker.Start()
		if err == nil {
			err = a.startRunLocked()
		}
		if err == nil {
			a.mu.Unlock()
			a.restoreState()
			log.Info().Int("attempt", attempt).Msg("tracking session restarted")
			return
		}
		a.mu.Unlock()
		log.Warn().Err(err).Int("attempt", attempt).Msg("restart failed")
	}

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		return
	}
	if a.run != nil {
		a.stopRun(a.run)
		a.run = nil
	}
	a.generation++
	a.mu.Unlock()
	log.Error().Int("attempts", a.cfg.Session.MaxRestarts).Msg("giving up on tracking session")
	a.tracker.Stop()
	a.states.Set(model.StateError, fmt.Sprintf("%v: restart failed", ErrSessionInterrupted))
}

func (a *App) restoreState() {
	if a.field.Configuration() != nil {
		a.states.Set(model.StateFieldPlaced, "session restarted")
		return
	}
	a.states.Set(model.StateSearchingForHomePlate, "session restarted")
}

// sleep waits d on the app clock so tests can drive restarts.
func (a *App) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	done := make(chan struct{})
	a.clock.AfterFunc(d, func() { close(done) })
	<-done
}

// Close stops tracking and releases the detector, motion gate and hooks.
func (a *App) Close() {
	a.StopTracking()
	a.field.Reset()
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if err := a.detector.Close(); err != nil {
		log.Warn().Err(err).Msg("close detector")
	}
	if a.gate != nil {
		a.gate.Close()
	}
	a.previewMu.Lock()
	if a.preview != nil {
		a.preview.Close()
		a.preview = nil
	}
	a.previewMu.Unlock()
}

func (a *App) publish(eventType string, data any) {
	a.dataMu.Lock()
	p := a.events
	a.dataMu.Unlock()
	if p != nil {
		p.Publish(eventType, data)
	}
}

func (a *App) onTransition(t state.Transition) {
	a.publish(EventState, t)
}

// onFieldChange keeps the store's active field in step with the controller.
func (a *App) onFieldChange(cfg *model.FieldConfiguration) {
	a.publish(EventField, cfg)
	if a.store == nil {
		return
	}

	if cfg == nil {
		if err := a.store.Fields().Deactivate(); err != nil {
			log.Warn().Err(err).Msg("deactivate stored field")
		}
		a.setFieldID("")
		return
	}
	id, err := a.store.Fields().SaveActive(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("save field")
		return
	}
	a.setFieldID(id)
}

func (a *App) setFieldID(id string) {
	a.dataMu.Lock()
	a.fieldID = id
	a.dataMu.Unlock()
}

func (a *App) onPitch(pc model.PitchClassification) {
	log.Info().
		Str("id", pc.ID).
		Str("outcome", pc.Outcome()).
		Float64("confidence", pc.Confidence).
		Msg("pitch classified")

	if a.store != nil {
		a.dataMu.Lock()
		fieldID := a.fieldID
		a.dataMu.Unlock()
		if err := a.store.Pitches().Create(store.NewPitch(pc, fieldID, a.field.Configuration())); err != nil {
			log.Warn().Err(err).Str("id", pc.ID).Msg("save pitch")
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Dispatch(pc)
	}
	a.publish(EventPitch, pc)
}
