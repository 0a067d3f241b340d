package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/isafeguard/engine/internal/config"
)

// DependencyFactory builds the per-stream Dependencies bundle for a given
// persisted StreamConfig, letting cmd/engine bind model-specific clip
// output paths while sharing process-wide collaborators (detector, bus,
// event store) across every stream the registry starts.
type DependencyFactory func(cfg config.StreamConfig) Dependencies

// ConfigStore persists StreamConfig documents (spec section 6.4);
// internal/config.StreamStore is the production implementation.
type ConfigStore interface {
	LoadAll() ([]config.StreamConfig, error)
	Save(cfg config.StreamConfig) error
}

// Registry is the process-wide {stream_id -> Engine} map (spec component
// C9), generalizing DESIGN NOTES §9's "global mutable registry -> explicit
// object with a lock" guidance: created once at process start by
// cmd/engine and passed by reference to command handlers, instead of a
// package-level global.
type Registry struct {
	env     *config.EnvConfig
	depsFor DependencyFactory
	store   ConfigStore
	onLog   func(string)

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewRegistry creates an empty Registry. depsFor is invoked once per
// StartStream call to build that stream's collaborators.
func NewRegistry(env *config.EnvConfig, depsFor DependencyFactory, store ConfigStore, onLog func(string)) *Registry {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Registry{
		env:     env,
		depsFor: depsFor,
		store:   store,
		onLog:   onLog,
		engines: make(map[string]*Engine),
	}
}

// StartAllPersisted iterates persisted configurations and starts each with
// is_active=true (spec section 4.9: "On startup, iterate persisted
// configurations and start each with is_active=true"). Per-stream startup
// failures are logged, not returned, matching the bulk-operation's
// best-effort contract (spec section 6.1).
func (r *Registry) StartAllPersisted(ctx context.Context) error {
	cfgs, err := r.store.LoadAll()
	if err != nil {
		return fmt.Errorf("registry: loading persisted stream configs: %w", err)
	}
	for _, cfg := range cfgs {
		if !cfg.IsActive {
			continue
		}
		if err := r.StartStream(ctx, cfg); err != nil {
			r.onLog(fmt.Sprintf("registry: stream %s failed to start at boot: %v", cfg.StreamID, err))
		}
	}
	return nil
}

// StartStream validates cfg, constructs a fresh Engine for it, and starts
// it, rejecting an already-registered stream_id outright rather than
// reusing an existing Engine (spec section 4.9: "re-start creates a fresh
// engine to avoid leaking state").
func (r *Registry) StartStream(ctx context.Context, cfg config.StreamConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	r.mu.Lock()
	if _, exists := r.engines[cfg.StreamID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("stream %s: %w", cfg.StreamID, ErrAlreadyRegistered)
	}

	eng, err := New(cfg, r.env, r.depsFor(cfg), r.onLog)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.engines[cfg.StreamID] = eng
	r.mu.Unlock()

	if err := eng.Start(ctx); err != nil {
		r.mu.Lock()
		delete(r.engines, cfg.StreamID)
		r.mu.Unlock()
		return fmt.Errorf("stream %s: %w", cfg.StreamID, err)
	}

	cfg.IsActive = true
	if err := r.store.Save(cfg); err != nil {
		r.onLog(fmt.Sprintf("stream %s: failed to persist is_active: %v", cfg.StreamID, err))
	}
	return nil
}

// StopStream tears down and removes a stream's Engine, persisting
// is_active=false.
func (r *Registry) StopStream(streamID string) error {
	r.mu.Lock()
	eng, ok := r.engines[streamID]
	if ok {
		delete(r.engines, streamID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("stream %s: %w", streamID, ErrNotFound)
	}

	eng.Stop()

	cfg := eng.Config()
	cfg.IsActive = false
	if err := r.store.Save(cfg); err != nil {
		r.onLog(fmt.Sprintf("stream %s: failed to persist is_active: %v", streamID, err))
	}
	return nil
}

// RestartStream stops then starts the named stream's Engine in place,
// using its latest in-memory configuration (spec section 4.8's Restart,
// exposed here through the registry's command surface).
func (r *Registry) RestartStream(ctx context.Context, streamID string) error {
	r.mu.RLock()
	eng, ok := r.engines[streamID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("stream %s: %w", streamID, ErrNotFound)
	}
	return eng.Restart(ctx)
}

// Get returns the Engine registered for streamID, if any, for command
// handlers that need to dispatch stream-specific operations (toggle
// intrusion detection, patrol commands, danger zone edits, ...).
func (r *Registry) Get(streamID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.engines[streamID]
	return eng, ok
}

// List returns the stream_ids currently registered, in no particular
// order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	return ids
}

// BulkResult is the per-stream outcome of a bulk start/stop call (spec
// section 6.1: "best effort; per-stream failures do not fail the batch").
type BulkResult struct {
	StreamID string
	Err      error
}

// BulkStartStreams starts every listed stream independently, collecting
// per-stream errors instead of aborting the batch on the first failure.
func (r *Registry) BulkStartStreams(ctx context.Context, cfgs []config.StreamConfig) []BulkResult {
	results := make([]BulkResult, len(cfgs))
	for i, cfg := range cfgs {
		results[i] = BulkResult{StreamID: cfg.StreamID, Err: r.StartStream(ctx, cfg)}
	}
	return results
}

// BulkStopStreams stops every listed stream_id independently.
func (r *Registry) BulkStopStreams(streamIDs []string) []BulkResult {
	results := make([]BulkResult, len(streamIDs))
	for i, id := range streamIDs {
		results[i] = BulkResult{StreamID: id, Err: r.StopStream(id)}
	}
	return results
}

// StopAll tears down every registered stream, in no particular order; used
// by cmd/engine on shutdown.
func (r *Registry) StopAll() {
	for _, id := range r.List() {
		if err := r.StopStream(id); err != nil {
			r.onLog(fmt.Sprintf("registry: stopping stream %s: %v", id, err))
		}
	}
}
