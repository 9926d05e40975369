// Package hook runs external executables for tracked pitches.
//
// A hook plugin lives in its own directory under the hooks dir with a
// hook.json manifest. For each pitch it receives one JSON Event on stdin and
// writes one JSON Response to stdout.
package hook

import (
	"encoding/json"

	"github.com/ayusman/strikezone/internal/model"
)

// ManifestFile is the manifest name looked for in each plugin directory.
const ManifestFile = "hook.json"

// Manifest describes a hook plugin.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Event is sent to a hook plugin on stdin.
type Event struct {
	Hook    string                    `json:"hook"`
	Outcome string                    `json:"outcome"`
	Pitch   model.PitchClassification `json:"pitch"`
	Config  json.RawMessage           `json:"config"`
}

// Response is read from a hook plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered hook plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
