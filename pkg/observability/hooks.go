// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; binaries decide where
// they go. The defaults are no-ops, so nothing is recorded unless main
// registers an implementation such as [PrometheusHooks]:
//
//	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
//	observability.SetRenderHooks(hooks)
//	observability.SetCacheHooks(hooks)
//	observability.SetHTTPHooks(hooks)
//
// The renderer then reports each phase:
//
//	observability.Render().OnEngineStart(ctx, engine, format)
//	// ... run the layout engine ...
//	observability.Render().OnEngineComplete(ctx, engine, format, len(out), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// RenderHooks receives events from the diagram renderer.
type RenderHooks interface {
	// OnSerialize records conversion of a diagram to DOT.
	OnSerialize(ctx context.Context, diagram string, nodes, edges int, duration time.Duration, err error)

	// Engine events, once per output format that misses the cache.
	OnEngineStart(ctx context.Context, engine, format string)
	OnEngineComplete(ctx context.Context, engine, format string, size int, duration time.Duration, err error)

	// OnRenderComplete records the end of a full render of all formats.
	OnRenderComplete(ctx context.Context, diagram string, formats []string, duration time.Duration, err error)
}

// CacheHooks receives events from artifact cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// NoopRenderHooks discards render events.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnSerialize(context.Context, string, int, int, time.Duration, error) {}
func (NoopRenderHooks) OnEngineStart(context.Context, string, string)                       {}
func (NoopRenderHooks) OnEngineComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, []string, time.Duration, error) {}

// NoopCacheHooks discards cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	renderHooks RenderHooks = NoopRenderHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetRenderHooks registers render hooks. A nil h is ignored.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op defaults. Intended for tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	renderHooks = NoopRenderHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
