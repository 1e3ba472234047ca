package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/http"
)

const (
	pollBackoffInitial = 1 * time.Second
	pollBackoffMax     = 60 * time.Second
)

// Poll long-polls getUpdates until ctx is done, passing every update to
// handle in order. Failed polls back off exponentially; handle must not
// block for long.
func (c *Client) Poll(ctx context.Context, handle func(Update)) error {
	var offset int64
	failures := 0

	for {
		updates, err := c.GetUpdates(ctx, offset, constants.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			delay := http.CalculateBackoff(failures, pollBackoffInitial, pollBackoffMax)
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
				delay = apiErr.RetryAfter
			}
			c.logger.Warn().Err(err).Int("attempt", failures).Dur("backoff", delay).Msg("getUpdates failed")
			if err := http.Sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		failures = 0
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			handle(u)
		}
	}
}
