// Package engine coordinates surface id assignment: it consumes compositor
// lifecycle events, consults the rule store and the dynamic allocator, applies
// ids through the host, and mirrors the outcome into the key-value store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/saimizi/ivi-id-agent/internal/alloc"
	"github.com/saimizi/ivi-id-agent/internal/ipc"
	"github.com/saimizi/ivi-id-agent/internal/metrics"
	"github.com/saimizi/ivi-id-agent/internal/rules"
	"github.com/saimizi/ivi-id-agent/internal/util"
)

// Assignment errors scoped to a single surface's single attempt. They are
// logged and counted but never stop the engine, and a failed surface is not
// retried until the host emits a fresh configure event for it.
var (
	ErrNoConfig       = errors.New("no configuration for application")
	ErrHostRejectedID = errors.New("host rejected surface id")
)

// Compositor is the narrow view of the host the engine needs. The surface
// objects themselves are owned by the host; the engine only holds handles.
type Compositor interface {
	Surface(ctx context.Context, handle string) (ipc.SurfaceInfo, error)
	SetSurfaceID(ctx context.Context, handle string, id uint32) error
	SurfaceByID(ctx context.Context, id uint32) (string, error)
}

// Registry mirrors assignment outcomes into the external store. Both calls
// are best-effort and must not fail.
type Registry interface {
	Register(ctx context.Context, appID string, id uint32)
	Unregister(ctx context.Context, id uint32)
}

type subscribeFunc func(ctx context.Context, logger *util.Logger) (<-chan ipc.Event, error)

// Engine ties together the rule store, the allocator, and the host transport.
type Engine struct {
	comp      Compositor
	registry  Registry
	logger    *util.Logger
	collector *metrics.Collector
	subscribe subscribeFunc

	// mu orders control-surface reads against event handling. Lifecycle
	// events themselves are strictly sequential.
	mu    sync.Mutex
	store *rules.Store
	alloc *alloc.Allocator
}

// New creates an engine over a loaded rule store and allocator.
func New(comp Compositor, registry Registry, store *rules.Store, allocator *alloc.Allocator, collector *metrics.Collector, logger *util.Logger) *Engine {
	return &Engine{
		comp:      comp,
		registry:  registry,
		logger:    logger,
		collector: collector,
		store:     store,
		alloc:     allocator,
		subscribe: ipc.Subscribe,
	}
}

// Run subscribes to the lifecycle feed and processes events to completion,
// one at a time, until context cancellation or stream closure. Per-event
// failures are logged and never abort the loop.
func (e *Engine) Run(ctx context.Context) error {
	events, err := e.subscribe(ctx, e.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			e.dispatch(ctx, ev)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, ev ipc.Event) {
	switch ev.Kind {
	case ipc.EventConfigure:
		if ev.Payload == "" {
			e.logger.Warnf("configure event missing surface handle")
			return
		}
		if err := e.HandleConfigure(ctx, ev.Payload); err != nil {
			e.logger.Errorf("could not assign surface id for %s: %v", ev.Payload, err)
		}
	case ipc.EventRemove:
		if ev.Payload == "" {
			e.logger.Warnf("remove event missing surface handle")
			return
		}
		if err := e.HandleRemove(ctx, ev.Payload); err != nil {
			e.logger.Errorf("remove handling for %s failed: %v", ev.Payload, err)
		}
	default:
		e.logger.Debugf("ignoring event %q", ev.Kind)
	}
}

// HandleConfigure performs the single assignment attempt for a surface that
// became visible. Surfaces that already carry an id are left alone.
func (e *Engine) HandleConfigure(ctx context.Context, handle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, err := e.comp.Surface(ctx, handle)
	if err != nil {
		return fmt.Errorf("query surface %s: %w", handle, err)
	}
	if info.ID != ipc.InvalidID {
		e.logger.Debugf("surface %s already has id %d", handle, info.ID)
		return nil
	}

	obs, fallback := rules.Observe(info.AppID, info.Title)
	if fallback {
		e.logger.Infof("no app id found, using title instead: %s", obs.AppID)
	}
	if obs.AppID != "" {
		e.logger.Infof("found application: %s", obs.AppID)
	} else {
		e.logger.Warnf("surface %s declared no app id or title", handle)
	}

	if rule := e.store.Match(obs); rule != nil {
		if err := e.comp.SetSurfaceID(ctx, handle, rule.SurfaceID); err != nil {
			// A rejected set on the matched rule ends the attempt; it does
			// not fall through to the default pool the way a miss does.
			e.collector.RecordFailure("host rejected id")
			return fmt.Errorf("%w: surface %s, id %d: %v", ErrHostRejectedID, handle, rule.SurfaceID, err)
		}
		rule.Bound = handle
		e.registry.Register(ctx, obs.AppID, rule.SurfaceID)
		e.collector.RecordAssigned()
		e.logger.Infof("assigned surface id %d to %s", rule.SurfaceID, obs.AppID)
		return nil
	}

	if !e.alloc.Enabled() {
		e.collector.RecordFailure("no config")
		return fmt.Errorf("%w: app %q", ErrNoConfig, obs.AppID)
	}
	e.logger.Infof("no configuration for application, assigning from default pool")

	id, err := e.alloc.Allocate(func(id uint32) (bool, error) {
		holder, err := e.comp.SurfaceByID(ctx, id)
		if err != nil {
			return false, fmt.Errorf("query id %d holder: %w", id, err)
		}
		return holder != "" && holder != handle, nil
	})
	if err != nil {
		e.collector.RecordFailure(allocFailureReason(err))
		return fmt.Errorf("default assignment for surface %s: %w", handle, err)
	}
	if err := e.comp.SetSurfaceID(ctx, handle, id); err != nil {
		// The id stays consumed; pool ids are never handed out twice.
		e.collector.RecordFailure("host rejected id")
		return fmt.Errorf("%w: surface %s, pool id %d: %v", ErrHostRejectedID, handle, id, err)
	}
	e.registry.Register(ctx, obs.AppID, id)
	e.collector.RecordDefaultAssigned()
	e.logger.Infof("assigned default surface id %d to %s", id, obs.AppID)
	return nil
}

// HandleRemove unbinds whatever rule the surface occupied and withdraws the
// store mirror entry for the id the host reports. A surface the host no
// longer knows, or one that never got an id, unregisters nothing.
func (e *Engine) HandleRemove(ctx context.Context, handle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rule := e.store.Release(handle); rule != nil {
		e.logger.Debugf("released rule for surface id %d", rule.SurfaceID)
	}
	e.collector.RecordRemoved()

	info, err := e.comp.Surface(ctx, handle)
	if err != nil {
		e.logger.Debugf("surface %s gone before id lookup: %v", handle, err)
		return nil
	}
	if info.ID == ipc.InvalidID {
		return nil
	}
	e.registry.Unregister(ctx, info.ID)
	return nil
}

func allocFailureReason(err error) string {
	switch {
	case errors.Is(err, alloc.ErrPoolExhausted):
		return "pool exhausted"
	case errors.Is(err, alloc.ErrPolicyDisabled):
		return "policy disabled"
	case errors.Is(err, alloc.ErrIDInUse):
		return "id in use"
	default:
		return "host query failed"
	}
}
