package notify

import (
	"fmt"
	"sort"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/postpilothq/postpilot/internal/domain"
)

// BuildRunBlocks builds Slack Block Kit blocks for a terminal publish run:
// a status section, an error section when the run carried one, then one
// line per platform result in platform order.
func BuildRunBlocks(run *domain.PipelineRun) []slacklib.Block {
	header := fmt.Sprintf("%s *Publish run* `%s`\n*Status:* `%s`", statusEmoji(run.Status), run.ID, run.Status)
	blocks := []slacklib.Block{
		slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, header, false, false),
			nil,
			nil,
		),
	}

	if run.Error != "" {
		blocks = append(blocks, slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, "*Error:* "+run.Error, false, false),
			nil,
			nil,
		))
	}

	if len(run.Results) == 0 {
		return blocks
	}

	platforms := make([]string, 0, len(run.Results))
	for platform := range run.Results {
		platforms = append(platforms, string(platform))
	}
	sort.Strings(platforms)

	lines := make([]string, 0, len(platforms))
	for _, name := range platforms {
		res := run.Results[domain.Platform(name)]
		if res.Success {
			lines = append(lines, fmt.Sprintf(":white_check_mark: *%s*: posted (`%s`)", name, res.PostID))
			continue
		}
		lines = append(lines, fmt.Sprintf(":x: *%s*: %s", name, res.Message))
	}

	return append(blocks, slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, strings.Join(lines, "\n"), false, false),
		nil,
		nil,
	))
}

func statusEmoji(status domain.RunStatus) string {
	switch status {
	case domain.RunCompleted:
		return ":white_check_mark:"
	case domain.RunPartiallyCompleted:
		return ":warning:"
	default:
		return ":x:"
	}
}
