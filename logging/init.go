package logging

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	// The core packages stay silent until a command configures logging
	GlobalLogger = NewLogger(zerolog.Disabled)

	// Structured log files carry the stack traces of pkg/errors errors and readable timestamps
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339
}
