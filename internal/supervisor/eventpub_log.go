package supervisor

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name).Str("session", e.Session)
	if e.Role != "" {
		ev = ev.Str("role", e.Role)
	}
	ev.Fields(e.Fields).Msg("supervisor event")
}
