// Package main provides a pitch hook plugin that announces each pitch
// through the system speech synthesizer.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/ayusman/strikezone/internal/hook"
)

// Settings is the per-hook configuration stored with the binding.
type Settings struct {
	Voice     string `json:"voice"`
	SpeedOnly bool   `json:"speedOnly"`
}

// stdout carries the response, so diagnostics go to stderr.
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Str("plugin", "announcer").Logger()

func main() {
	var ev hook.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}

	var settings Settings
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &settings); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	text := announcement(ev, settings)
	logger.Debug().Str("hook", ev.Hook).Str("text", text).Msg("announcing")

	if err := speak(text, settings.Voice); err != nil {
		writeErrorResponse(fmt.Sprintf("speech failed: %v", err))
		return
	}
	writeSuccessResponse(text)
}

// announcement renders a pitch as spoken text, e.g. "64 miles per hour, strike".
func announcement(ev hook.Event, s Settings) string {
	outcome := ev.Outcome
	if outcome == "" {
		outcome = ev.Pitch.Outcome()
	}

	if ev.Pitch.SpeedMPH == nil {
		if s.SpeedOnly {
			return "no speed"
		}
		return outcome
	}
	speed := fmt.Sprintf("%d miles per hour", int(math.Round(*ev.Pitch.SpeedMPH)))
	if s.SpeedOnly || outcome == "unknown" {
		return speed
	}
	return speed + ", " + outcome
}

func speak(text, voice string) error {
	bin := "espeak"
	if runtime.GOOS == "darwin" {
		bin = "say"
	}
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	}
	output, err := exec.Command(bin, append(args, text)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeErrorResponse(errMsg string) {
	logger.Error().Msg(errMsg)
	json.NewEncoder(os.Stdout).Encode(hook.Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse(text string) {
	data, _ := json.Marshal(map[string]string{"spoken": text})
	json.NewEncoder(os.Stdout).Encode(hook.Response{
		Success: true,
		Data:    data,
	})
}
