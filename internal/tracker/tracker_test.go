package tracker

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/state"
	"github.com/ayusman/strikezone/internal/timeutil"
)

var epoch = time.Date(2026, 4, 1, 19, 5, 0, 0, time.UTC)

type readiness bool

func (r readiness) Ready() bool { return bool(r) }

type staticField struct{ cfg *model.FieldConfiguration }

func (s staticField) Configuration() *model.FieldConfiguration { return s.cfg }

func placedField() *model.FieldConfiguration {
	dims := model.DefaultFieldDimensions()
	zone, _ := model.NewStrikeZone(dims)
	return &model.FieldConfiguration{
		PlatePosition: r3.Vector{Z: -2},
		YawSign:       -1,
		StrikeZone:    zone,
		Dimensions:    dims,
	}
}

type fixture struct {
	tr      *Tracker
	clock   *timeutil.MockClock
	states  *state.Machine
	pitches []model.PitchClassification
}

func newFixture(t *testing.T, cfg Config, field *model.FieldConfiguration) *fixture {
	t.Helper()
	f := &fixture{
		clock:  timeutil.NewMockClock(epoch),
		states: state.NewMachine(),
	}
	f.tr = New(cfg, readiness(true), staticField{cfg: field}, f.states, WithClock(f.clock))
	f.tr.OnPitch(func(p model.PitchClassification) { f.pitches = append(f.pitches, p) })
	require.NoError(t, f.tr.Start())
	return f
}

func ball(pos r3.Vector, conf float64) Detection {
	return Detection{Label: "baseball", Confidence: conf, Position: pos}
}

func frame(at time.Duration, dets ...Detection) Observation {
	return Observation{Detections: dets, CameraPose: geom.IdentityPose(), CapturedAt: epoch.Add(at)}
}

func TestStart_ModelNotLoaded(t *testing.T) {
	states := state.NewMachine()
	tr := New(DefaultConfig(), readiness(false), nil, states)

	err := tr.Start()

	assert.ErrorIs(t, err, ErrModelNotLoaded)
	assert.False(t, tr.IsTracking())
	assert.False(t, tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	assert.NotEqual(t, model.StateTrackingSpeed, states.Current())
}

func TestOnFrame_DropsWhenTooSoon(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	first := f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9)))
	second := f.tr.OnFrame(frame(5*time.Millisecond, ball(r3.Vector{Z: -0.1}, 0.9)))

	assert.True(t, first)
	assert.False(t, second)
	assert.Len(t, f.tr.History(), 1)
	assert.Len(t, f.pitches, 1)
	assert.Equal(t, Stats{Processed: 1, Dropped: 1, Emitted: 1}, f.tr.Stats())

	// The dropped frame is gone; nothing replays it later.
	f.clock.Advance(time.Second)
	assert.Len(t, f.tr.History(), 1)
	assert.Len(t, f.pitches, 1)
}

func TestOnFrame_AcceptsAfterInterval(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	f.clock.Advance(33 * time.Millisecond)
	assert.True(t, f.tr.OnFrame(frame(33*time.Millisecond, ball(r3.Vector{Z: -1}, 0.9))))
}

func TestOnFrame_DropsWhileBusy(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	var nested bool
	f.tr.OnPitch(func(model.PitchClassification) {
		f.clock.Advance(time.Second)
		nested = f.tr.OnFrame(frame(time.Second, ball(r3.Vector{X: 1}, 0.9)))
	})

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	assert.False(t, nested, "a frame arriving mid-processing must be dropped")
	assert.Len(t, f.tr.History(), 1)
}

func TestOnFrame_FiltersDetections(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	processed := f.tr.OnFrame(frame(0,
		ball(r3.Vector{X: 1}, 0.29),
		Detection{Label: "glove", Confidence: 0.95, Position: r3.Vector{X: 2}},
		ball(r3.Vector{X: 3}, 0.3),
		ball(r3.Vector{X: 4}, 0.31),
	))

	require.True(t, processed)
	require.Len(t, f.pitches, 1, "a detection at the floor is not above it")
	assert.Equal(t, 4.0, f.pitches[0].Position.X)
	assert.Equal(t, 0.31, f.pitches[0].Confidence)
}

func TestSpeed_OutOfRangeIsNil(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	f.clock.Advance(40 * time.Millisecond)
	require.True(t, f.tr.OnFrame(frame(30*time.Millisecond, ball(r3.Vector{Z: -3}, 0.9))))

	require.Len(t, f.pitches, 2)
	assert.Nil(t, f.pitches[0].SpeedMPH, "one sample has no speed")
	assert.Nil(t, f.pitches[1].SpeedMPH, "223.7 mph is noise")
}

func TestSpeed_InRange(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	f.clock.Advance(40 * time.Millisecond)
	require.True(t, f.tr.OnFrame(frame(10*time.Millisecond, ball(r3.Vector{X: 0.05}, 0.9))))

	require.Len(t, f.pitches, 2)
	require.NotNil(t, f.pitches[1].SpeedMPH)
	assert.InDelta(t, 11.185, *f.pitches[1].SpeedMPH, 1e-9)
}

func TestSpeed_RangeIsExclusive(t *testing.T) {
	tests := []struct {
		name    string
		mps     float64
		wantNil bool
	}{
		{"just above floor", 5.0/2.237 + 0.01, false},
		{"just above ceiling", 120.0/2.237 + 0.01, true},
		{"below floor", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig(), nil)
			require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
			f.clock.Advance(time.Second)
			require.True(t, f.tr.OnFrame(frame(time.Second, ball(r3.Vector{X: tt.mps}, 0.9))))

			require.Len(t, f.pitches, 2)
			assert.Equal(t, tt.wantNil, f.pitches[1].SpeedMPH == nil)
		})
	}
}

func TestHistory_Bounded(t *testing.T) {
	cfg := DefaultConfig()
	f := newFixture(t, cfg, nil)

	total := cfg.Capacity + 5
	for i := 0; i < total; i++ {
		at := time.Duration(i) * 50 * time.Millisecond
		require.True(t, f.tr.OnFrame(frame(at, ball(r3.Vector{X: float64(i)}, 0.9))), "frame %d", i)
		f.clock.Advance(50 * time.Millisecond)
	}

	h := f.tr.History()
	require.Len(t, h, cfg.Capacity)
	assert.Equal(t, 5.0, h[0].Position.X, "oldest samples evicted first")
	assert.Equal(t, float64(total-1), h[len(h)-1].Position.X)
	assert.Len(t, f.pitches, total)
}

func TestClassification(t *testing.T) {
	field := placedField()
	f := newFixture(t, DefaultConfig(), field)
	f.states.Set(model.StateFieldPlaced, "test")

	inside := field.PlateToWorld(field.StrikeZone.Center())
	edge := field.PlateToWorld(r3.Vector{X: field.StrikeZone.Min.X, Y: field.StrikeZone.Center().Y})
	outside := field.PlateToWorld(r3.Vector{X: field.StrikeZone.Min.X - 1e-6, Y: field.StrikeZone.Center().Y})

	for i, pos := range []r3.Vector{inside, edge, outside} {
		at := time.Duration(i) * time.Second
		f.clock.Set(epoch.Add(at))
		require.True(t, f.tr.OnFrame(frame(at, ball(pos, 0.9))))
	}

	require.Len(t, f.pitches, 3)
	got := make([]string, len(f.pitches))
	for i, p := range f.pitches {
		got[i] = p.Outcome()
	}
	if diff := cmp.Diff([]string{"strike", "strike", "ball"}, got); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.StateTrackingSpeed, f.states.Current())
}

func TestClassification_NoField(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))

	require.Len(t, f.pitches, 1)
	assert.Nil(t, f.pitches[0].IsStrike)
	assert.Equal(t, "unknown", f.pitches[0].Outcome())
	assert.NotEqual(t, model.StateTrackingSpeed, f.states.Current())
}

func TestOnFrame_DiscardsOutOfOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.True(t, f.tr.OnFrame(frame(100*time.Millisecond, ball(r3.Vector{}, 0.9))))
	f.clock.Advance(time.Second)

	assert.False(t, f.tr.OnFrame(frame(50*time.Millisecond, ball(r3.Vector{X: 1}, 0.9))))
	assert.Len(t, f.tr.History(), 1)
	assert.Len(t, f.pitches, 1)
}

func TestStop_ClearsAndHalts(t *testing.T) {
	f := newFixture(t, DefaultConfig(), placedField())
	f.states.Set(model.StateFieldPlaced, "test")

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9))))
	f.tr.Stop()

	assert.Empty(t, f.tr.History())
	assert.Equal(t, model.StateStopped, f.states.Current())
	f.clock.Advance(time.Second)
	assert.False(t, f.tr.OnFrame(frame(time.Second, ball(r3.Vector{}, 0.9))))

	require.NoError(t, f.tr.Start())
	assert.Equal(t, model.StateFieldPlaced, f.states.Current())
	_, ok := f.tr.Latest()
	assert.False(t, ok)
}

func TestStop_DuringEmission(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	var delivered int
	f.tr.OnPitch(func(model.PitchClassification) {
		delivered++
		f.tr.Stop()
	})

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9), ball(r3.Vector{X: 1}, 0.9))))

	assert.Equal(t, 1, delivered, "results after Stop must not be delivered")
	assert.Empty(t, f.tr.History())
}

func TestRestart_DuringEmission(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	var delivered int
	var reentered bool
	f.tr.OnPitch(func(model.PitchClassification) {
		delivered++
		if delivered > 1 {
			return
		}
		f.tr.Stop()
		require.NoError(t, f.tr.Start())
		f.clock.Advance(time.Second)
		reentered = f.tr.OnFrame(frame(time.Second, ball(r3.Vector{X: 5}, 0.9)))
	})

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{}, 0.9), ball(r3.Vector{X: 1}, 0.9))))

	assert.Equal(t, 1, delivered, "results from the old session must not leak into the new one")
	assert.False(t, reentered, "a frame still in flight keeps the tracker busy")
	assert.Zero(t, f.tr.Stats().Emitted)
	_, ok := f.tr.Latest()
	assert.False(t, ok)
	assert.Empty(t, f.tr.History())

	f.clock.Advance(time.Second)
	require.True(t, f.tr.OnFrame(frame(2*time.Second, ball(r3.Vector{X: 2}, 0.9))))
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, f.tr.Stats().Emitted)
}

func TestLatest(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	_, ok := f.tr.Latest()
	require.False(t, ok)

	require.True(t, f.tr.OnFrame(frame(0, ball(r3.Vector{Y: 1}, 0.8))))
	latest, ok := f.tr.Latest()
	require.True(t, ok)
	assert.Equal(t, f.pitches[0], latest)
	assert.NotEmpty(t, latest.ID)
	assert.Equal(t, epoch, latest.CapturedAt)
}

func TestRegressionEstimatorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Estimator = EstimatorRegression
	f := newFixture(t, cfg, nil)

	// 20 m/s along -Z, sampled every 40 ms.
	for i := 0; i < 4; i++ {
		at := time.Duration(i) * 40 * time.Millisecond
		require.True(t, f.tr.OnFrame(frame(at, ball(r3.Vector{Z: -0.8 * float64(i)}, 0.9))))
		f.clock.Advance(40 * time.Millisecond)
	}

	last := f.pitches[len(f.pitches)-1]
	require.NotNil(t, last.SpeedMPH)
	assert.InDelta(t, 20*2.237, *last.SpeedMPH, 1e-6)
}
