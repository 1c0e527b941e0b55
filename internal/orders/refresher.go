package orders

import (
	"context"
	"log/slog"
	"time"

	"storefront/pkg/logkey"
)

// Refresher re-derives order statuses on a fixed interval, starting with an
// immediate pass.
type Refresher struct {
	conf     *Conf
	interval time.Duration
}

func NewRefresher(conf *Conf, interval time.Duration) *Refresher {
	return &Refresher{conf: conf, interval: interval}
}

// Run blocks until ctx is done. Refresh failures are logged, not returned.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		changed, err := r.conf.Refresh(ctx)
		if err != nil && ctx.Err() == nil {
			slog.Error("order status refresh failed", slog.String(logkey.ERROR, err.Error()))
		} else if changed {
			slog.Info("order statuses refreshed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
