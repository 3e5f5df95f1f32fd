package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/renewal"
)

// runDailyRenewals dispara el escaneo de estados y el motor de renovaciones una
// vez al día a la hora local indicada, hasta que ctx se cancele.
func runDailyRenewals(ctx context.Context, engine *renewal.Engine, hour int, log zerolog.Logger) {
	log = log.With().Str("component", "scheduler").Logger()
	for {
		wait := time.Until(nextRun(time.Now(), hour))
		log.Info().Dur("in", wait).Msg("próxima ejecución de renovaciones")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := engine.RefreshStatuses(ctx); err != nil {
			log.Error().Err(err).Msg("escaneo de estados")
		}
		if _, err := engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("ejecución de renovaciones")
		}
	}
}

// nextRun próxima ocurrencia de hour:00 estrictamente posterior a now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
