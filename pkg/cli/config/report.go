package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/types"
	"github.com/m-mizutani/fontprov/pkg/infra/firestore"
	"github.com/m-mizutani/fontprov/pkg/infra/reportfile"
	"github.com/m-mizutani/fontprov/pkg/infra/slack"
)

// Report holds configuration of report destinations
type Report struct {
	File           string
	PublishTimeout time.Duration

	FirestoreProjectID  string
	FirestoreDatabaseID string
	FirestoreCollection string

	SlackWebhookURL string
	SlackChannel    string
}

// Flags returns CLI flags for report configuration
func (c *Report) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-file",
			Usage:       "Write the provisioning report as JSON to this file",
			Destination: &c.File,
			Sources:     cli.EnvVars("FONTPROV_REPORT_FILE"),
		},
		&cli.DurationFlag{
			Name:        "publish-timeout",
			Usage:       "Deadline for storing and notifying the report",
			Value:       10 * time.Second,
			Destination: &c.PublishTimeout,
			Sources:     cli.EnvVars("FONTPROV_PUBLISH_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Store reports in Firestore of this project",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("FONTPROV_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("FONTPROV_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection for reports",
			Value:       firestore.DefaultCollection,
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("FONTPROV_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Post partial or failed runs to this Slack incoming webhook",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("FONTPROV_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel overriding the webhook default",
			Destination: &c.SlackChannel,
			Sources:     cli.EnvVars("FONTPROV_SLACK_CHANNEL"),
		},
	}
}

// Build creates the configured stores and notifiers. The returned function
// releases clients.
func (c *Report) Build(ctx context.Context) ([]interfaces.ReportStore, []interfaces.Notifier, func(), error) {
	var (
		stores    []interfaces.ReportStore
		notifiers []interfaces.Notifier
		closers   []func()
	)
	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}

	if c.File != "" {
		stores = append(stores, reportfile.New(c.File))
	}

	if c.FirestoreProjectID != "" {
		store, err := firestore.New(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.FirestoreCollection)
		if err != nil {
			return nil, nil, cleanup, goerr.Wrap(err, "failed to set up Firestore report store")
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				slog.Default().Warn("failed to close Firestore client", slog.Any("error", err))
			}
		})
		stores = append(stores, store)
	}

	if c.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.New(c.SlackWebhookURL, c.SlackChannel))
	}

	return stores, notifiers, cleanup, nil
}

// Sentry holds error reporting configuration
type Sentry struct {
	DSN string
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for fatal errors",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("FONTPROV_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "production",
			Destination: &c.Env,
			Sources:     cli.EnvVars("FONTPROV_SENTRY_ENV"),
		},
	}
}

// Enabled reports whether a DSN is configured
func (c *Sentry) Enabled() bool {
	return c.DSN != ""
}

// Configure initializes the Sentry SDK when a DSN is set
func (c *Sentry) Configure() error {
	if !c.Enabled() {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.DSN,
		Environment: c.Env,
		Release:     types.ServiceName + "@" + types.Version,
	}); err != nil {
		return goerr.Wrap(err, "failed to initialize Sentry")
	}
	return nil
}

// Capture sends err to Sentry and waits for delivery up to timeout
func (c *Sentry) Capture(err error, timeout time.Duration) {
	if !c.Enabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
	sentry.Flush(timeout)
}
