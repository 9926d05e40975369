package hook

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/model"
)

// writeScript installs a shell hook plugin in dir and returns it.
func writeScript(t *testing.T, dir, name, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks need a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest:   Manifest{Name: name, Version: "1.0.0", Executable: name},
		Path:       dir,
		Executable: path,
	}
}

func strikeEvent() *Event {
	speed := 61.3
	strike := true
	return &Event{
		Hook:    "call strikes",
		Outcome: "strike",
		Pitch: model.PitchClassification{
			ID:         "p1",
			Position:   r3.Vector{Y: 0.8, Z: -3},
			Confidence: 0.9,
			SpeedMPH:   &speed,
			IsStrike:   &strike,
		},
		Config: json.RawMessage(`{"voice":"Samantha"}`),
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := writeScript(t, t.TempDir(), "ok.sh",
		`echo '{"success":true,"data":{"message":"called"}}'`+"\n")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, strikeEvent())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Errorf("Execute() = %+v, want success", resp)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "called" {
		t.Errorf("message = %q, want called", data["message"])
	}
}

func TestExecutor_Execute_ReadsEvent(t *testing.T) {
	plugin := writeScript(t, t.TempDir(), "echo.sh", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, strikeEvent())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var got Event
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("hook did not receive a JSON event: %v", err)
	}
	if got.Outcome != "strike" || got.Hook != "call strikes" {
		t.Errorf("event = %+v", got)
	}
	if got.Pitch.SpeedMPH == nil || *got.Pitch.SpeedMPH != 61.3 {
		t.Errorf("pitch speed = %v, want 61.3", got.Pitch.SpeedMPH)
	}
	if string(got.Config) != `{"voice":"Samantha"}` {
		t.Errorf("config = %s", got.Config)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		check   func(*testing.T, *Response, error)
	}{
		{
			name:    "error response",
			body:    `echo '{"success":false,"error":"no speaker"}'` + "\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, resp *Response, err error) {
				if err != nil {
					t.Fatalf("Execute() failed: %v", err)
				}
				if resp.Success || resp.Error != "no speaker" {
					t.Errorf("Execute() = %+v", resp)
				}
			},
		},
		{
			name:    "invalid json",
			body:    "echo 'not valid json'\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, _ *Response, err error) {
				if err == nil {
					t.Fatal("expected error for invalid JSON")
				}
			},
		},
		{
			name:    "non-zero exit",
			body:    "echo 'boom' >&2\nexit 1\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, _ *Response, err error) {
				if err == nil {
					t.Fatal("expected error for non-zero exit")
				}
			},
		},
		{
			name:    "timeout",
			body:    "sleep 10\necho '{\"success\":true}'\n",
			timeout: 100 * time.Millisecond,
			check: func(t *testing.T, _ *Response, err error) {
				if !errors.Is(err, ErrTimeout) {
					t.Fatalf("Execute() error = %v, want ErrTimeout", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := writeScript(t, t.TempDir(), "hook.sh", tt.body)
			resp, err := NewExecutor(tt.timeout).Execute(context.Background(), plugin, strikeEvent())
			tt.check(t, resp, err)
		})
	}
}
