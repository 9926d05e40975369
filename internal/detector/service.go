package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

const serviceScript = "scripts/ball_detector_service.py"

// ErrServiceNotFound is returned when neither a command nor the bundled
// script is available.
var ErrServiceNotFound = errors.New("ball detector service not found")

// ServiceDetector implements Detector using a model-serving subprocess.
// Frames are sent as a 4-byte big-endian length followed by JPEG bytes;
// the service answers with one JSON line per frame.
type ServiceDetector struct {
	config    Config
	command   string
	args      []string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewServiceDetector resolves the service command. The process is started
// lazily on first detection.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	command, args, err := resolveCommand(config)
	if err != nil {
		return nil, err
	}
	return &ServiceDetector{config: config, command: command, args: args}, nil
}

// Ready reports whether the service command can be launched.
func (d *ServiceDetector) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return true
	}
	_, err := exec.LookPath(d.command)
	return err == nil
}

// Detect sends frame to the service and returns its detections.
func (d *ServiceDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	dets, err := roundTrip(d.stdin, d.stdout, buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the service unusable; restart on the next frame.
		if shutdownErr := d.shutdown(); shutdownErr != nil {
			log.Debug().Err(shutdownErr).Msg("detector service exit")
		}
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()
	return dets, nil
}

// Close shuts down the service process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.command, d.args...)
	d.cmd.Env = os.Environ()
	if d.config.ModelPath != "" {
		d.cmd.Env = append(d.cmd.Env, "STRIKEZONE_MODEL="+d.config.ModelPath)
	}

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start detector service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()
	log.Info().Str("command", d.command).Msg("detector service started")
	return nil
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.config.IdleTimeoutSec <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(time.Duration(d.config.IdleTimeoutSec)*time.Second, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Debug().Err(err).Msg("idle detector service exit")
		}
	})
}

// roundTrip writes one length-prefixed frame and reads one JSON response line.
func roundTrip(w io.Writer, r *bufio.Reader, jpeg []byte) ([]Detection, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(jpeg)))

	if _, err := w.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseResponse([]byte(line))
}

// jsonDetection is the service's wire form; box is [x0, y0, x1, y1].
type jsonDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

func parseResponse(line []byte) ([]Detection, error) {
	var response struct {
		Detections []jsonDetection `json:"detections"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("detector service: %s", response.Error)
	}

	out := make([]Detection, len(response.Detections))
	for i, d := range response.Detections {
		out[i] = Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3]),
		}
	}
	return out, nil
}

func resolveCommand(config Config) (string, []string, error) {
	if config.Command != "" {
		return config.Command, config.Args, nil
	}

	script := findServiceScript()
	if script == "" {
		return "", nil, ErrServiceNotFound
	}
	python := findVenvPython()
	if python == "" {
		python = "python3"
	}
	return python, append([]string{script}, config.Args...), nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		serviceScript,
		filepath.Join("..", serviceScript),
		filepath.Join(execDir, serviceScript),
		filepath.Join(os.Getenv("HOME"), ".strikezone", serviceScript),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".strikezone/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
