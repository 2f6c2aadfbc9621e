// Package observability lets the application plug metrics or tracing into
// the import pipeline, the cache and the HTTP server without those packages
// depending on a backend.
//
// Hooks default to no-ops. main registers real implementations once at
// startup:
//
//	observability.SetPipelineHooks(&metrics{})
//
// and libraries emit events through the accessors:
//
//	observability.Pipeline().OnAllocateStart(ctx, ctl, strategy, len(models))
//	// ... allocate ...
//	observability.Pipeline().OnAllocateComplete(ctx, ctl, len(res.Receivers), time.Since(start), nil)
package observability

import (
	"context"
	"sync"
	"time"
)

// ===== Pipeline Hooks =====

// PipelineHooks receives events from the import pipeline.
type PipelineHooks interface {
	// Extract events: reading xlights_networks.xml and xlights_rgbeffects.xml.
	OnExtractStart(ctx context.Context, networksPath string)
	OnExtractComplete(ctx context.Context, controllers, models int, duration time.Duration, err error)

	// Allocate events, once per controller.
	OnAllocateStart(ctx context.Context, controller, strategy string, models int)
	OnAllocateComplete(ctx context.Context, controller string, receivers int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// ===== Cache Hooks =====

// CacheHooks receives events from cache lookups. keyType is "allocation" or
// "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ===== HTTP Hooks =====

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, status int, duration time.Duration)

	// OnError records a handler failure with its error code.
	OnError(ctx context.Context, method, path, code string, err error)
}

// ===== No-op Implementations =====

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnExtractStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnExtractComplete(context.Context, int, int, time.Duration, error)     {}
func (NoopPipelineHooks) OnAllocateStart(context.Context, string, string, int)                  {}
func (NoopPipelineHooks) OnAllocateComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                               {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)      {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)         {}

// ===== Global Hook Registry =====

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers server hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op defaults. Tests use it.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
