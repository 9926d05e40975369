// Package feed runs detection off the main loop and hands projected
// observations back to it.
package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/capture"
	"github.com/ayusman/strikezone/internal/detector"
	"github.com/ayusman/strikezone/internal/logging"
	"github.com/ayusman/strikezone/internal/tracker"
)

// Stats counts frames seen by the feed.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Busy      int64 `json:"busy"`
	Gated     int64 `json:"gated"`
	Failed    int64 `json:"failed"`
	Delivered int64 `json:"delivered"`
}

// Feed owns one inference worker. At most one frame is in flight; Submit
// drops frames while the worker is busy.
type Feed struct {
	detector  detector.Detector
	projector Projector
	gate      *capture.Gate
	frameLog  zerolog.Logger

	in      chan *capture.Frame
	out     chan tracker.Observation
	wg      sync.WaitGroup
	running atomic.Bool

	submitted, busy, gated, failed, delivered atomic.Int64
}

// New creates a stopped feed. gate may be nil.
func New(det detector.Detector, projector Projector, gate *capture.Gate) *Feed {
	return &Feed{
		detector:  det,
		projector: projector,
		gate:      gate,
		frameLog:  logging.Sampled(),
		in:        make(chan *capture.Frame),
		out:       make(chan tracker.Observation, 1),
	}
}

// Results delivers observations to the main loop.
func (f *Feed) Results() <-chan tracker.Observation {
	return f.out
}

// Start launches the worker. It stops when ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	if !f.running.CompareAndSwap(false, true) {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.running.Store(false)
		f.run(ctx)
	}()
}

// Wait blocks until the worker has exited.
func (f *Feed) Wait() {
	f.wg.Wait()
}

// Submit hands frame to the worker if it is idle. Otherwise the frame is
// closed and dropped. It reports whether the frame was accepted.
func (f *Feed) Submit(frame *capture.Frame) bool {
	f.submitted.Add(1)
	select {
	case f.in <- frame:
		return true
	default:
		f.busy.Add(1)
		frame.Close()
		return false
	}
}

// Stats returns a snapshot of the counters.
func (f *Feed) Stats() Stats {
	return Stats{
		Submitted: f.submitted.Load(),
		Busy:      f.busy.Load(),
		Gated:     f.gated.Load(),
		Failed:    f.failed.Load(),
		Delivered: f.delivered.Load(),
	}
}

func (f *Feed) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-f.in:
			obs, ok := f.process(frame)
			if !ok {
				continue
			}
			select {
			case f.out <- obs:
				f.delivered.Add(1)
			case <-ctx.Done():
				return
			default:
				// The main loop has not taken the previous result yet.
				f.busy.Add(1)
				f.frameLog.Debug().Msg("observation dropped, consumer busy")
			}
		}
	}
}

// process runs detection and projection for one frame and closes it.
func (f *Feed) process(frame *capture.Frame) (tracker.Observation, bool) {
	defer frame.Close()

	if f.gate != nil && !f.gate.Open(frame.Mat) {
		f.gated.Add(1)
		return tracker.Observation{}, false
	}

	dets, err := f.detector.Detect(frame.Mat)
	if err != nil {
		f.failed.Add(1)
		f.frameLog.Warn().Err(err).Msg("detection failed, frame skipped")
		return tracker.Observation{}, false
	}

	obs := tracker.Observation{
		CameraPose: frame.CameraPose,
		CapturedAt: frame.CapturedAt,
	}
	for _, d := range dets {
		pos, ok := f.projector.Project(d.Box, frame.CameraPose)
		if !ok {
			log.Debug().Str("label", d.Label).Msg("detection has an empty box")
			continue
		}
		obs.Detections = append(obs.Detections, tracker.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        d.Box,
			Position:   pos,
		})
	}
	return obs, true
}
