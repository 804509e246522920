package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwheel/taskwheel/internal/bus"
	"github.com/taskwheel/taskwheel/internal/wheel"
)

// RunWheel is the wheel thread (spec §5, worker W): it sleeps to each whole
// second boundary, ticks the wheel, and emits FireTask for every id in the
// due set, in the stable order Tick returns them. It is the only producer
// of FireTask events. Send is used (not TrySend) so a saturated bus delays
// firing rather than dropping it (spec §4.5).
func RunWheel(ctx context.Context, w *wheel.Wheel, b *bus.Bus, logger zerolog.Logger) {
	log := logger.With().Str("component", "wheel").Logger()
	next := time.Now().Truncate(time.Second).Add(time.Second)

	for {
		wait := time.Until(next)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		// Drift handling: process every boundary already passed, back to
		// back, in monotonic order, before sleeping again (spec §4.3).
		for !next.After(time.Now()) {
			due := w.Tick()
			for _, id := range due {
				b.Send(bus.Event{Kind: bus.FireTask, TaskID: id})
			}
			next = next.Add(time.Second)

			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		log.Trace().Time("next_boundary", next).Msg("wheel sleeping to next tick")
	}
}
