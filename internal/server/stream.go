package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"
)

// DefaultStreamFPS is the preview rate. It is independent of the capture rate.
const DefaultStreamFPS = 15

// FrameSource yields frames for the preview stream. The caller closes each
// frame.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// StreamHandler serves MJPEG frames from a FrameSource.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler with the given source.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: time.Second / DefaultStreamFPS}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.writeFrame(w); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writeFrame sends one part. A missing frame is skipped; only a failed
// write ends the stream.
func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, err := h.frames.ReadFrame()
	if err != nil {
		return nil
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	frame.Close()
	if err != nil {
		return nil
	}
	defer buf.Close()

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", buf.Len()); err != nil {
		return err
	}
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
