package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/queue"
)

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, ev queue.NotificationEvent) error
}

const notifyTimeout = 5 * time.Second

// notify sends ev in the background.  Failures are logged only.
func notify(n Notifier, log zerolog.Logger, ev queue.NotificationEvent) {
	if n == nil || ev.UserID == 0 {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.Notify(ctx, ev); err != nil {
			log.Warn().Err(err).Str("kind", string(ev.Kind)).Uint64("user_id", ev.UserID).Msg("notification dropped")
		}
	}()
}
