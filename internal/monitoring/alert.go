package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert raises an operational alert. Currently logs at error level; the
// labels match what an alerting pipeline would consume.
func Alert(message string, labels map[string]string) {
	log.Error().
		Str("alert", message).
		Fields(labels).
		Msg("ALERT: tenant database issue detected")
}
