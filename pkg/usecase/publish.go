package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/utils/async"
)

// Publisher hands a finished report to stores and notifiers. Sinks run
// concurrently and the whole publication is bounded by a deadline.
type Publisher struct {
	stores    []interfaces.ReportStore
	notifiers []interfaces.Notifier
	timeout   time.Duration
}

// NewPublisher creates a Publisher. Notifiers are only called for runs that
// did not fully succeed.
func NewPublisher(stores []interfaces.ReportStore, notifiers []interfaces.Notifier, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{
		stores:    stores,
		notifiers: notifiers,
		timeout:   timeout,
	}
}

// Publish dispatches the report to every sink and waits for them up to the
// deadline. It returns the number of sinks that did not finish in time.
func (p *Publisher) Publish(ctx context.Context, report *model.ProvisionReport) int {
	logger := ctxlog.From(ctx)

	var done []<-chan struct{}
	for _, store := range p.stores {
		done = append(done, async.Dispatch(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			if err := store.Put(ctx, report); err != nil {
				return goerr.Wrap(err, "failed to store provisioning report", goerr.V("run_id", report.RunID))
			}
			return nil
		}))
	}

	if report.Outcome() != model.OutcomeSuccess {
		for _, notifier := range p.notifiers {
			done = append(done, async.Dispatch(ctx, func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, p.timeout)
				defer cancel()
				if err := notifier.Notify(ctx, report); err != nil {
					return goerr.Wrap(err, "failed to notify provisioning report", goerr.V("run_id", report.RunID))
				}
				return nil
			}))
		}
	}

	pending := async.WaitAll(p.timeout, done...)
	if pending > 0 {
		logger.Warn("Report publication did not finish before deadline",
			"pending", pending,
			"timeout", p.timeout,
		)
	}
	return pending
}
