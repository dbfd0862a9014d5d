package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// fetch retrieves locator with 1+retries attempts. Each attempt is bounded by
// timeout. Not-found answers and cancellation of ctx end the loop at once.
func (p *provisioner) fetch(ctx context.Context, locator string) ([]byte, error) {
	logger := ctxlog.From(ctx)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.retryInterval
	policy.MaxElapsedTime = 0

	var (
		data    []byte
		attempt int
	)
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.fetchTimeout)
		defer cancel()

		started := time.Now()
		payload, err := p.fetcher.Fetch(attemptCtx, locator)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(err, model.ErrSourceNotFound) {
				return backoff.Permanent(err)
			}
			logger.Debug("Fetch attempt failed",
				"locator", locator,
				"attempt", attempt,
				"error", err,
			)
			return err
		}

		logger.Debug("Fetched payload",
			"locator", locator,
			"attempt", attempt,
			"size_bytes", len(payload),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		data = payload
		return nil
	}

	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(p.cfg.retries))
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if model.IsCancellation(err) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to fetch",
			goerr.V("locator", locator),
			goerr.V("attempts", attempt))
	}

	return data, nil
}
