// Package tracker turns projected ball detections into classified pitches.
//
// Frames are processed at a bounded rate. A frame that arrives while another
// is being processed, or sooner than MinInterval after the last processed
// frame, is dropped rather than queued.
package tracker

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/state"
	"github.com/ayusman/strikezone/internal/timeutil"
	"github.com/ayusman/strikezone/internal/units"
)

// ErrModelNotLoaded is returned by Start when the detection backend is not ready.
var ErrModelNotLoaded = errors.New("detection model not loaded")

// Speed estimator kinds.
const (
	EstimatorPair       = "pair"
	EstimatorRegression = "regression"
)

// Config holds tracker tunables.
type Config struct {
	Capacity         int           `mapstructure:"capacity"`
	MinInterval      time.Duration `mapstructure:"minInterval"`
	MinConfidence    float64       `mapstructure:"minConfidence"`
	TargetLabel      string        `mapstructure:"targetLabel"`
	MinSpeedMPH      float64       `mapstructure:"minSpeedMph"`
	MaxSpeedMPH      float64       `mapstructure:"maxSpeedMph"`
	Estimator        string        `mapstructure:"estimator"`
	RegressionWindow int           `mapstructure:"regressionWindow"`
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:         DefaultCapacity,
		MinInterval:      33 * time.Millisecond,
		MinConfidence:    0.3,
		TargetLabel:      "baseball",
		MinSpeedMPH:      5,
		MaxSpeedMPH:      120,
		Estimator:        EstimatorPair,
		RegressionWindow: 5,
	}
}

// Detection is one detector hit already projected into world space.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
	Position   r3.Vector       `json:"position"`
}

// Observation is the result of running the detector on one frame.
type Observation struct {
	Detections []Detection
	CameraPose geom.Pose
	CapturedAt time.Time
}

// ModelStatus reports whether the detection backend can serve requests.
type ModelStatus interface {
	Ready() bool
}

// FieldSource provides the committed field, or nil when none is placed.
type FieldSource interface {
	Configuration() *model.FieldConfiguration
}

// Sink receives each classification. It is called outside the tracker's lock.
type Sink func(model.PitchClassification)

// Stats counts frames since the last Start.
type Stats struct {
	Processed int `json:"processed"`
	Dropped   int `json:"dropped"`
	Emitted   int `json:"emitted"`
}

// Option configures optional collaborators.
type Option func(*Tracker)

// WithClock replaces the real clock.
func WithClock(c timeutil.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithEstimator overrides the estimator chosen from Config.
func WithEstimator(e SpeedEstimator) Option {
	return func(t *Tracker) { t.estimator = e }
}

// Tracker owns the trajectory history.
type Tracker struct {
	mu sync.Mutex

	cfg       Config
	model     ModelStatus
	field     FieldSource
	states    *state.Machine
	clock     timeutil.Clock
	estimator SpeedEstimator

	history       *History
	sinks         []Sink
	tracking      bool
	busy          bool
	session       uint64
	lastProcessed time.Time
	latest        *model.PitchClassification
	stats         Stats
}

// New creates a stopped tracker. status, field and states may be nil.
func New(cfg Config, status ModelStatus, field FieldSource, states *state.Machine, opts ...Option) *Tracker {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	} else if cfg.Capacity < MinCapacity {
		cfg.Capacity = MinCapacity
	}
	if cfg.TargetLabel == "" {
		cfg.TargetLabel = def.TargetLabel
	}
	if cfg.MaxSpeedMPH <= 0 {
		cfg.MinSpeedMPH, cfg.MaxSpeedMPH = def.MinSpeedMPH, def.MaxSpeedMPH
	}

	t := &Tracker{
		cfg:       cfg,
		model:     status,
		field:     field,
		states:    states,
		clock:     timeutil.RealClock{},
		estimator: NewEstimator(cfg.Estimator, cfg.RegressionWindow),
		history:   NewHistory(cfg.Capacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnPitch registers fn for every classification.
func (t *Tracker) OnPitch(fn Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, fn)
}

// Start clears the history and begins accepting frames.
func (t *Tracker) Start() error {
	if t.model != nil && !t.model.Ready() {
		return ErrModelNotLoaded
	}

	t.mu.Lock()
	t.history.Clear()
	t.tracking = true
	t.session++
	t.lastProcessed = time.Time{}
	t.latest = nil
	t.stats = Stats{}
	t.mu.Unlock()

	if t.states != nil && t.states.Current() == model.StateStopped {
		if t.field != nil && t.field.Configuration() != nil {
			t.states.Set(model.StateFieldPlaced, "tracking restarted")
		} else {
			t.states.Set(model.StateSearchingForHomePlate, "tracking restarted")
		}
	}
	log.Info().Int("capacity", t.cfg.Capacity).Str("estimator", t.cfg.Estimator).Msg("tracking started")
	return nil
}

// Stop halts processing and clears the history. A frame being processed
// when Stop is called emits nothing further, even if Start runs again
// before it finishes.
func (t *Tracker) Stop() {
	t.mu.Lock()
	wasTracking := t.tracking
	t.tracking = false
	t.session++
	t.history.Clear()
	t.mu.Unlock()

	if !wasTracking {
		return
	}
	if t.states != nil {
		t.states.Set(model.StateStopped, "tracking stopped")
	}
	log.Info().Msg("tracking stopped")
}

// IsTracking reports whether frames are being accepted.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// OnFrame processes obs unless the tracker is busy, stopped, or called too
// soon after the previous processed frame. It reports whether the frame was
// processed. Observations captured before the newest sample are discarded.
func (t *Tracker) OnFrame(obs Observation) bool {
	t.mu.Lock()
	if !t.tracking || t.busy {
		t.stats.Dropped++
		t.mu.Unlock()
		return false
	}
	now := t.clock.Now()
	if !t.lastProcessed.IsZero() && now.Sub(t.lastProcessed) < t.cfg.MinInterval {
		t.stats.Dropped++
		t.mu.Unlock()
		return false
	}
	if newest, ok := t.history.Last(0); ok && obs.CapturedAt.Before(newest.CapturedAt) {
		t.stats.Dropped++
		t.mu.Unlock()
		log.Debug().Time("captured_at", obs.CapturedAt).Time("newest", newest.CapturedAt).Msg("discarding out-of-order frame")
		return false
	}

	t.busy = true
	session := t.session
	t.lastProcessed = now
	t.stats.Processed++

	var field *model.FieldConfiguration
	if t.field != nil {
		field = t.field.Configuration()
	}

	var results []model.PitchClassification
	for _, d := range obs.Detections {
		if d.Confidence <= t.cfg.MinConfidence || d.Label != t.cfg.TargetLabel {
			continue
		}
		t.history.Push(model.TrackedBallSample{Position: d.Position, CapturedAt: obs.CapturedAt})
		results = append(results, t.classifyLocked(d, obs.CapturedAt, now, field))
	}
	sinks := t.sinks
	t.mu.Unlock()

	// busy stays with this frame across Stop and Start so a restarted
	// session never runs two frames at once.
	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()

	for i, r := range results {
		if !t.commitResult(r, session) {
			break
		}
		if i == 0 && t.states != nil {
			t.states.Advance(model.StateFieldPlaced, model.StateTrackingSpeed, "first pitch tracked")
		}
		for _, sink := range sinks {
			sink(r)
		}
	}
	return true
}

// commitResult records r as the latest pitch unless the session that
// accepted the frame has since been stopped.
func (t *Tracker) commitResult(r model.PitchClassification, session uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking || t.session != session {
		return false
	}
	t.latest = &r
	t.stats.Emitted++
	return true
}

func (t *Tracker) classifyLocked(d Detection, capturedAt, now time.Time, field *model.FieldConfiguration) model.PitchClassification {
	pc := model.PitchClassification{
		ID:         uuid.NewString(),
		Position:   d.Position,
		Confidence: d.Confidence,
		DetectedAt: now,
		CapturedAt: capturedAt,
	}

	if mps, ok := t.estimator.EstimateMPS(t.history.Slice()); ok {
		mph := units.MPSToMPH(mps)
		if mph > t.cfg.MinSpeedMPH && mph < t.cfg.MaxSpeedMPH {
			pc.SpeedMPH = &mph
		} else {
			log.Debug().Float64("mph", mph).Msg("speed out of range, treated as noise")
		}
	}

	if field != nil {
		strike := field.InStrikeZone(d.Position)
		pc.IsStrike = &strike
	}
	return pc
}

// History returns the trajectory samples, oldest first.
func (t *Tracker) History() []model.TrackedBallSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Slice()
}

// Latest returns the most recent classification since Start.
func (t *Tracker) Latest() (model.PitchClassification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return model.PitchClassification{}, false
	}
	return *t.latest, true
}

// Stats returns frame counters since the last Start.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}
