package api

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
)

// serverBackOff waits exactly as long as the last rate-limit response asked.
// Any other failure stops retrying.
type serverBackOff struct {
	last *error
}

func (b serverBackOff) NextBackOff() time.Duration {
	var rl *RateLimitError
	if errors.As(*b.last, &rl) {
		return rl.RetryAfter
	}
	return backoff.Stop
}

func (b serverBackOff) Reset() {}

// retry runs op, retrying rate-limited attempts up to maxRetries times. The
// final error is returned unchanged, so an exhausted retry surfaces the
// *RateLimitError.
func (c *Client) retry(ctx context.Context, name string, op func() error) error {
	if c.maxRetries == 0 {
		// WithMaxRetries treats zero as unlimited.
		return op()
	}

	var last error
	b := backoff.WithContext(
		backoff.WithMaxRetries(serverBackOff{last: &last}, uint64(c.maxRetries)),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		last = op()
		return last
	}, b, func(err error, wait time.Duration) {
		c.logger.Printf("%s rate limited, retrying in %s", name, wait)
	})
}
