package session

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/authdash/internal/constants"
)

// RefreshSchedule returns the constant-delay schedule the refresh timer uses:
// 90% of the token lifetime, truncated to whole seconds
func (c *Client) RefreshSchedule() cron.ConstantDelaySchedule {
	return cron.Every(constants.RefreshInterval(c.lifetime))
}

// StartRefreshTimer refreshes the token on RefreshSchedule until ctx is done.
// A refresh without a stored token is a no-op. The returned channel closes
// once the timer has stopped and any running refresh has returned.
func (c *Client) StartRefreshTimer(ctx context.Context) <-chan struct{} {
	scheduler := cron.New()
	scheduler.Schedule(c.RefreshSchedule(), cron.FuncJob(func() {
		if c.Token() == "" {
			return
		}
		if _, err := c.RefreshToken(ctx); err != nil {
			c.logger.DebugContext(ctx, "scheduled token refresh failed", "error", err)
		}
	}))
	scheduler.Start()
	c.logger.DebugContext(ctx, "token refresh timer started", "interval", c.RefreshSchedule().Delay)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return done
}
