package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/strikezone/internal/capture"
	"github.com/ayusman/strikezone/internal/feed"
)

// Pipeline timing constants.
const (
	// IdleFPS is the capture rate while the motion gate is closed.
	IdleFPS = 10
	// MaxGrabFailures is how many consecutive failed grabs end a session.
	MaxGrabFailures = 30
)

// startRunLocked opens the camera and launches the feed worker and the
// main loop. a.mu must be held.
func (a *App) startRunLocked() error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		feed:   feed.New(a.detector, a.projector, a.gate),
	}
	r.feed.Start(ctx)
	a.run = r

	go func() {
		err := a.loop(ctx, r.feed)
		close(r.done)
		if err != nil {
			a.HandleInterruption(err)
		}
	}()

	log.Info().Int("fps", a.camera.FPS()).Bool("motion_gate", a.gate != nil).Msg("detection loop started")
	return nil
}

// stopRun cancels r and waits for its goroutines before closing the camera.
func (a *App) stopRun(r *run) {
	r.cancel()
	<-r.done
	r.feed.Wait()
	if err := a.camera.Close(); err != nil {
		log.Warn().Err(err).Msg("close camera")
	}
	log.Info().Msg("detection loop stopped")
}

// loop grabs posed frames on a ticker, hands them to the feed and passes the
// feed's observations to the tracker. It is the only caller of
// Tracker.OnFrame. While the motion gate is closed frames are grabbed at
// IdleFPS.
func (a *App) loop(ctx context.Context, f *feed.Feed) error {
	// The camera may still be at IdleFPS from a previous run.
	activeFPS := a.cfg.Camera.FPS
	if activeFPS <= 0 {
		activeFPS = a.camera.FPS()
	}
	a.camera.SetFPS(activeFPS)
	active := a.gate == nil || a.gate.Active()
	ticker := time.NewTicker(frameInterval(a.rate(active, activeFPS)))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil

		case obs := <-f.Results():
			a.tracker.OnFrame(obs)

		case <-ticker.C:
			frame, err := a.grabber.Grab()
			if err != nil {
				failures++
				a.frameLog.Warn().Err(err).Int("failures", failures).Msg("frame grab failed")
				if errors.Is(err, capture.ErrWorldTrackingUnsupported) || failures >= MaxGrabFailures {
					return fmt.Errorf("%w: %v", ErrSessionInterrupted, err)
				}
				continue
			}
			failures = 0
			a.setPreview(frame.Mat)
			f.Submit(frame)

			if a.gate == nil {
				continue
			}
			if now := a.gate.Active(); now != active {
				active = now
				fps := a.rate(active, activeFPS)
				a.camera.SetFPS(fps)
				ticker.Reset(frameInterval(fps))
				log.Debug().Bool("active", active).Int("fps", fps).Msg("capture rate changed")
			}
		}
	}
}

func (a *App) rate(active bool, activeFPS int) int {
	if active || activeFPS <= IdleFPS {
		return activeFPS
	}
	return IdleFPS
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// setPreview keeps a copy of the latest frame for the preview stream.
func (a *App) setPreview(m *gocv.Mat) {
	if m == nil {
		return
	}
	clone := m.Clone()
	a.previewMu.Lock()
	old := a.preview
	a.preview = &clone
	a.previewMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// ErrNoPreview is returned by ReadFrame before the first frame is grabbed.
var ErrNoPreview = errors.New("no preview frame yet")

// ReadFrame returns a copy of the most recent camera frame. The caller
// closes it.
func (a *App) ReadFrame() (*gocv.Mat, error) {
	a.previewMu.Lock()
	defer a.previewMu.Unlock()
	if a.preview == nil {
		return nil, ErrNoPreview
	}
	clone := a.preview.Clone()
	return &clone, nil
}
