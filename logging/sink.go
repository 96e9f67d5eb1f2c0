package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink writes whole lines to a zerolog logger at the requested level.
type Sink struct {
	logger zerolog.Logger
}

// NewSink wraps l.
func NewSink(l zerolog.Logger) Sink {
	return Sink{logger: l}
}

// Default wraps the process-wide logger configured by Init.
func Default() Sink {
	return NewSink(log.Logger)
}

// With returns a sink that adds a string field to every line.
func (s Sink) With(key, value string) Sink {
	return Sink{logger: s.logger.With().Str(key, value).Logger()}
}

func (s Sink) Log(level zerolog.Level, msg string) {
	s.logger.WithLevel(level).Msg(msg)
}
