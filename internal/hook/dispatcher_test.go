package hook

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/store"
)

type fakeBindings struct {
	hooks []*store.Hook
	err   error
	asked []string
}

func (f *fakeBindings) ListEnabled(outcome string) ([]*store.Hook, error) {
	f.asked = append(f.asked, outcome)
	if f.err != nil {
		return nil, f.err
	}
	var out []*store.Hook
	for _, h := range f.hooks {
		if h.Enabled && h.Outcome.Matches(outcome) {
			out = append(out, h)
		}
	}
	return out, nil
}

// installScriptHook writes a manifest plus a script that records its stdin.
func installScriptHook(t *testing.T, root, name string) string {
	t.Helper()
	dir := installManifest(t, root, Manifest{Name: name, Executable: "run.sh"})
	writeScript(t, dir, "run.sh", "cat > received.json\necho '{\"success\":true}'\n")
	return filepath.Join(dir, "received.json")
}

type recorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *recorder) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func TestDispatcher_RunsMatchingHooks(t *testing.T) {
	root := t.TempDir()
	strikeFile := installScriptHook(t, root, "strike-caller")
	ballFile := installScriptHook(t, root, "ball-caller")

	plugins := NewManager(root)
	if err := plugins.Discover(); err != nil {
		t.Fatal(err)
	}
	bindings := &fakeBindings{hooks: []*store.Hook{
		{ID: "1", Name: "strikes", PluginName: "strike-caller", Outcome: store.OutcomeStrike, Enabled: true},
		{ID: "2", Name: "balls", PluginName: "ball-caller", Outcome: store.OutcomeBall, Enabled: true},
	}}

	d := NewDispatcher(bindings, plugins, NewExecutor(5*time.Second))
	rec := &recorder{}
	d.OnResult(rec.record)

	strike := true
	d.Dispatch(model.PitchClassification{ID: "p1", IsStrike: &strike})
	d.Close()

	results := rec.all()
	if len(results) != 1 {
		t.Fatalf("expected 1 hook run, got %d", len(results))
	}
	r := results[0]
	if r.Err != nil || r.HookID != "1" || !r.Response.Success {
		t.Errorf("result = %+v", r)
	}
	if _, err := os.Stat(strikeFile); err != nil {
		t.Errorf("strike hook did not run: %v", err)
	}
	if _, err := os.Stat(ballFile); !os.IsNotExist(err) {
		t.Error("ball hook should not run for a strike")
	}
	if len(bindings.asked) != 1 || bindings.asked[0] != "strike" {
		t.Errorf("bindings queried with %v", bindings.asked)
	}
}

func TestDispatcher_SkipsMissingPlugin(t *testing.T) {
	bindings := &fakeBindings{hooks: []*store.Hook{
		{ID: "1", Name: "gone", PluginName: "uninstalled", Outcome: store.OutcomeAny, Enabled: true},
	}}

	d := NewDispatcher(bindings, NewManager(t.TempDir()), NewExecutor(time.Second))
	rec := &recorder{}
	d.OnResult(rec.record)
	d.Dispatch(model.PitchClassification{ID: "p1"})
	d.Close()

	if n := len(rec.all()); n != 0 {
		t.Errorf("expected no hook runs, got %d", n)
	}
	if bindings.asked[0] != "unknown" {
		t.Errorf("outcome = %q, want unknown", bindings.asked[0])
	}
}

func TestDispatcher_BindingError(t *testing.T) {
	bindings := &fakeBindings{err: errors.New("database is locked")}
	d := NewDispatcher(bindings, NewManager(t.TempDir()), NewExecutor(time.Second))
	d.Dispatch(model.PitchClassification{ID: "p1"})
	d.Close()
	if len(bindings.asked) != 1 {
		t.Errorf("expected one lookup, got %d", len(bindings.asked))
	}
}

func TestDispatcher_ClosedIgnoresPitches(t *testing.T) {
	bindings := &fakeBindings{}
	d := NewDispatcher(bindings, NewManager(t.TempDir()), NewExecutor(time.Second))
	d.Close()
	d.Dispatch(model.PitchClassification{ID: "p1"})
	if len(bindings.asked) != 0 {
		t.Error("closed dispatcher should not look up hooks")
	}
}
