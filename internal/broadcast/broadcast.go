// Package broadcast fans a per-group callback out over every active
// group. One group's delivery failure never stops the rest: timeouts are
// skipped, a forbidden reply soft-deletes the group (the bot was removed),
// anything else is logged and the loop moves on.
package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gymbot/internal/models"
	"gymbot/internal/storage"
	"gymbot/internal/transport"
)

type Broadcaster struct {
	store   storage.Store
	log     zerolog.Logger
	limiter *rate.Limiter
}

func New(store storage.Store, log zerolog.Logger, ratePerSec int) *Broadcaster {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &Broadcaster{
		store:   store,
		log:     log.With().Str("comp", "broadcast").Logger(),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// ForEachGroup runs fn once per active group under the rate limiter.
// It returns only on context cancellation; per-group errors are consumed
// here, per the fan-out contract.
func (b *Broadcaster) ForEachGroup(ctx context.Context, jobName string, fn func(ctx context.Context, g *models.Group) error) error {
	run := uuid.NewString()[:8]
	log := b.log.With().Str("job", jobName).Str("run", run).Logger()

	groups, err := b.store.ActiveGroups(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing active groups failed")
		return err
	}
	log.Info().Int("groups", len(groups)).Msg("broadcast started")

	start := time.Now()
	var sent, failed, removed int
	for _, g := range groups {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx, g)
		switch {
		case err == nil:
			sent++
		case transport.IsForbidden(err):
			// The group presumably kicked the bot; keep its history but
			// drop it from every future broadcast.
			removed++
			log.Info().Int64("group", g.ID).Err(err).Msg("group forbade delivery, soft-deleting")
			if derr := b.store.SoftDeleteGroup(ctx, g.ID); derr != nil {
				log.Error().Int64("group", g.ID).Err(derr).Msg("soft-delete failed")
			}
		case transport.IsTimeout(err):
			failed++
			log.Warn().Int64("group", g.ID).Err(err).Msg("delivery timed out, skipping group")
		default:
			failed++
			log.Error().Int64("group", g.ID).Err(err).Msg("delivery failed, skipping group")
		}
	}

	evt := log.Info()
	if failed > 0 {
		evt = log.Warn()
	}
	evt.Int("sent", sent).
		Int("failed", failed).
		Int("removed", removed).
		Dur("took", time.Since(start)).
		Msg("broadcast finished")
	return nil
}
