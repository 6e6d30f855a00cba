package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component returns the global logger tagged with a module name.
func Component(module string) zerolog.Logger {
	return log.Logger.With().Str("module", module).Logger()
}
