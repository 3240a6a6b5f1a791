package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/academyportal/internal/logger"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// retry вызывает connect, пока он не вернёт nil или не истечёт maxWait.
// Пауза между попытками удваивается от initialBackoff до maxBackoff.
func retry(ctx context.Context, what string, maxWait time.Duration, backoff time.Duration, connect func(context.Context) error) error {
	deadline := time.Now().Add(maxWait)
	for {
		err := connect(ctx)
		if err == nil {
			return nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return fmt.Errorf("%s (gave up after %v): %w", what, maxWait, err)
		}
		logger.Warnf("%s failed, retry in %v: %v", what, backoff, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
