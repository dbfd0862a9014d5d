package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// maxListed bounds the failures listed in one message
const maxListed = 10

// Notifier posts a report summary to a Slack incoming webhook
type Notifier struct {
	webhookURL string
	channel    string
}

// New creates a Notifier. channel overrides the webhook default when set.
func New(webhookURL, channel string) *Notifier {
	return &Notifier{webhookURL: webhookURL, channel: channel}
}

// Notify posts the report
func (n *Notifier) Notify(ctx context.Context, report *model.ProvisionReport) error {
	msg := buildMessage(report)
	msg.Channel = n.channel

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post report to Slack", goerr.V("run_id", report.RunID))
	}
	return nil
}

func buildMessage(r *model.ProvisionReport) *slack.WebhookMessage {
	outcome := r.Outcome()
	color := "good"
	switch outcome {
	case model.OutcomePartial:
		color = "warning"
	case model.OutcomeFailure:
		color = "danger"
	}

	fields := []slack.AttachmentField{
		{Title: "Catalog", Value: r.Catalog, Short: true},
		{Title: "Strategy", Value: string(r.Strategy), Short: true},
		{Title: "Installed", Value: fmt.Sprintf("%d / %d", r.Installed, r.Requested), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d (skipped %d)", r.Failed, r.Skipped), Short: true},
	}
	if r.IndexError != "" {
		fields = append(fields, slack.AttachmentField{Title: "Index", Value: r.IndexError})
	}

	var lines []string
	for i, f := range r.Failures() {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("... and %d more", len(r.Failures())-maxListed))
			break
		}
		lines = append(lines, fmt.Sprintf("• %s %s: %s %s", f.Family, f.Style, f.Kind, f.Reason))
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("Font provisioning %s on %s (run %s)", outcome, r.InstallDir, r.RunID),
		Attachments: []slack.Attachment{
			{
				Color:  color,
				Fields: fields,
				Text:   strings.Join(lines, "\n"),
			},
		},
	}
}
