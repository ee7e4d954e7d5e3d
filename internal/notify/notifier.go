package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/pipeline"
)

// SlackAPI abstracts the subset of the Slack client used by the
// notifier. This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier announces terminal publish runs in a Slack channel.
type SlackNotifier struct {
	api     SlackAPI
	channel string
}

// Compile-time interface check.
var _ pipeline.Notifier = (*SlackNotifier)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackNotifier creates a SlackNotifier posting to the given channel.
func NewSlackNotifier(api SlackAPI, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

// RunCompleted posts a run summary. Delivery failures are logged and
// never propagate: notifications must not affect run outcomes.
func (n *SlackNotifier) RunCompleted(_ context.Context, run *domain.PipelineRun) {
	// The plain-text summary doubles as the notification fallback for
	// clients that do not render blocks.
	_, _, err := n.api.PostMessage(n.channel,
		slacklib.MsgOptionText(FormatRunSummary(run), false),
		slacklib.MsgOptionBlocks(BuildRunBlocks(run)...),
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", run.ID.String()).
			Msg("notify.SlackNotifier.RunCompleted: post message")
	}
}

// FormatRunSummary renders one terminal run as a plain-text summary.
func FormatRunSummary(run *domain.PipelineRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Publish run %s: %s", run.ID, run.Status)
	if run.Error != "" {
		fmt.Fprintf(&b, "\nError: %s", run.Error)
	}

	platforms := make([]string, 0, len(run.Results))
	for platform := range run.Results {
		platforms = append(platforms, string(platform))
	}
	sort.Strings(platforms)

	for _, name := range platforms {
		res := run.Results[domain.Platform(name)]
		if res.Success {
			fmt.Fprintf(&b, "\n• %s: posted (%s)", name, res.PostID)
			continue
		}
		fmt.Fprintf(&b, "\n• %s: %s", name, res.Message)
	}
	return b.String()
}

// Nop discards notifications; used when Slack is not configured.
type Nop struct{}

var _ pipeline.Notifier = (*Nop)(nil) //nolint:gochecknoglobals // compile-time check

// NewNop returns a no-op notifier.
func NewNop() *Nop { return &Nop{} }

// RunCompleted does nothing.
func (*Nop) RunCompleted(context.Context, *domain.PipelineRun) {}
