package hook

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/store"
)

// Bindings lists the enabled hooks for a pitch outcome.
type Bindings interface {
	ListEnabled(outcome string) ([]*store.Hook, error)
}

// Result reports one hook run.
type Result struct {
	HookID   string
	Plugin   string
	Response *Response
	Err      error
}

// Dispatcher runs every bound hook for each pitch in the background.
type Dispatcher struct {
	bindings Bindings
	plugins  *Manager
	exec     *Executor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	onResult func(Result)
}

// NewDispatcher wires the stored bindings to discovered plugins.
func NewDispatcher(bindings Bindings, plugins *Manager, exec *Executor) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bindings: bindings,
		plugins:  plugins,
		exec:     exec,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnResult registers fn to observe each completed hook run.
func (d *Dispatcher) OnResult(fn func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onResult = fn
}

// Dispatch starts the hooks bound to pc's outcome and returns immediately.
func (d *Dispatcher) Dispatch(pc model.PitchClassification) {
	if d.ctx.Err() != nil {
		return
	}
	outcome := pc.Outcome()
	hooks, err := d.bindings.ListEnabled(outcome)
	if err != nil {
		log.Error().Err(err).Msg("failed to load pitch hooks")
		return
	}

	for _, h := range hooks {
		plugin, err := d.plugins.Get(h.PluginName)
		if err != nil {
			log.Warn().Str("hook", h.Name).Str("plugin", h.PluginName).Msg("hook plugin not installed")
			continue
		}
		ev := &Event{Hook: h.Name, Outcome: outcome, Pitch: pc, Config: h.Config}

		d.wg.Add(1)
		go func(h *store.Hook) {
			defer d.wg.Done()
			resp, err := d.exec.Execute(d.ctx, plugin, ev)
			d.report(Result{HookID: h.ID, Plugin: h.PluginName, Response: resp, Err: err})
		}(h)
	}
}

func (d *Dispatcher) report(r Result) {
	switch {
	case r.Err != nil:
		log.Warn().Err(r.Err).Str("hook", r.HookID).Msg("pitch hook failed")
	case !r.Response.Success:
		log.Warn().Str("hook", r.HookID).Str("error", r.Response.Error).Msg("pitch hook reported failure")
	default:
		log.Debug().Str("hook", r.HookID).Msg("pitch hook ran")
	}

	d.mu.Lock()
	fn := d.onResult
	d.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

// Close cancels running hooks and waits for them to exit.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
