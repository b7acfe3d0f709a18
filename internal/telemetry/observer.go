package telemetry

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/systree/internal/framework"
)

// LogObserver writes cache traffic to a logger at trace level.
type LogObserver struct {
	log zerolog.Logger
}

func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log.With().Str("component", "cache").Logger()}
}

func (o *LogObserver) CacheHit(ctx *framework.Context, e *framework.CacheEntry) {
	o.log.Trace().Str("system", ctx.Path()).Str("entry", e.Description()).Msg("hit")
}

func (o *LogObserver) CacheRecompute(ctx *framework.Context, e *framework.CacheEntry, elapsed time.Duration) {
	o.log.Trace().
		Str("system", ctx.Path()).
		Str("entry", e.Description()).
		Dur("elapsed", elapsed).
		Msg("miss")
}

func (o *LogObserver) ValueChanged(ctx *framework.Context, t framework.Ticket, reached int) {
	o.log.Trace().
		Str("system", ctx.Path()).
		Stringer("ticket", t).
		Int("reached", reached).
		Msg("changed")
}

type tee []framework.Observer

// Tee fans cache traffic out to several observers in order.
func Tee(observers ...framework.Observer) framework.Observer {
	var out tee
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (t tee) CacheHit(ctx *framework.Context, e *framework.CacheEntry) {
	for _, o := range t {
		o.CacheHit(ctx, e)
	}
}

func (t tee) CacheRecompute(ctx *framework.Context, e *framework.CacheEntry, elapsed time.Duration) {
	for _, o := range t {
		o.CacheRecompute(ctx, e, elapsed)
	}
}

func (t tee) ValueChanged(ctx *framework.Context, ticket framework.Ticket, reached int) {
	for _, o := range t {
		o.ValueChanged(ctx, ticket, reached)
	}
}
