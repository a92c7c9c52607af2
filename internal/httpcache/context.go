package httpcache

import (
	"context"
	"sync/atomic"
)

type disabledKeyType int

var disabledKey disabledKeyType

// WithoutCache returns a context under which requests bypass the cache entirely,
// nothing is read from it and nothing is written to it.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, disabledKey, true)
}

// Disabled reports whether the cache is disabled for the given context.
func Disabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(disabledKey).(bool)
	return disabled
}

type hopsKeyType int

var hopsKey hopsKeyType

// Hops records whether any round trip made under a context reached the network.
// A redirect chain is only a cache hit when none of its hops did.
type Hops struct {
	network atomic.Bool
}

// TrackHops returns a context whose round trips through a Transport are recorded in
// the returned Hops.
func TrackHops(ctx context.Context) (context.Context, *Hops) {
	hops := &Hops{}
	return context.WithValue(ctx, hopsKey, hops), hops
}

// Network reports whether a request made under the tracked context was sent upstream.
func (h *Hops) Network() bool {
	return h.network.Load()
}

func markNetwork(ctx context.Context) {
	if hops, ok := ctx.Value(hopsKey).(*Hops); ok {
		hops.network.Store(true)
	}
}
