// Package bot connects the command registry to the Discord gateway.
package bot

import (
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/fx"
)

// Module provides bot service dependencies.
var Module = fx.Module("bot",
	fx.Provide(
		NewBot,
		NewEventSource,
	),
)

// NewEventSource exposes the session as an EventSource.
func NewEventSource(s *session.Session) EventSource {
	return s
}
