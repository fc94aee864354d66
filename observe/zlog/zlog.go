// Package zlog logs scope and task transitions through zerolog.
package zlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/NetPo4ki/go-fanout/scope"
)

// Observer implements scope.Observer by emitting one structured event per
// state transition.
type Observer struct {
	log zerolog.Logger
}

// New returns an observer writing through log.
func New(log zerolog.Logger) *Observer { return &Observer{log: log} }

func (o *Observer) ScopeCreated(_ context.Context) {
	o.log.Debug().Msg("scope created")
}

func (o *Observer) ScopeCancelled(_ context.Context, cause error) {
	o.log.Warn().AnErr("cause", cause).Msg("scope cancelled")
}

func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.log.Debug().Dur("wait", wait).Msg("scope joined")
}

func (o *Observer) TaskStarted(_ context.Context, name string) {
	o.log.Debug().Str("task", name).Msg("task started")
}

func (o *Observer) TaskFinished(_ context.Context, name string, dur time.Duration, kind scope.Kind, err error) {
	ev := o.log.Info()
	if kind != scope.KindSuccess {
		ev = o.log.Warn()
	}
	ev.Str("task", name).
		Dur("duration", dur).
		Str("outcome", kind.String()).
		Err(err).
		Msg("task finished")
}
