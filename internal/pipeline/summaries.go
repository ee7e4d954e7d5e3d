package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/postpilothq/postpilot/internal/domain"
)

// Transcript summaries stay short; full structures travel in the run
// payload, not the conversation.

func summarizeAnalysis(a *domain.ImageAnalysis) string {
	desc := a.Description
	if runes := []rune(desc); len(runes) > 200 {
		desc = string(runes[:200]) + "..."
	}
	if len(a.Themes) == 0 {
		return "Image analyzed: " + desc
	}
	return fmt.Sprintf("Image analyzed: %s (themes: %s)", desc, strings.Join(a.Themes, ", "))
}

func summarizeStrategy(s *domain.PlatformStrategy, fellBack bool) string {
	names := platformNames(s.Platforms)
	if fellBack {
		return fmt.Sprintf("No platforms proposed; falling back to all connected platforms: %s", strings.Join(names, ", "))
	}
	if s.Reasoning == "" {
		return "Targeting " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("Targeting %s: %s", strings.Join(names, ", "), s.Reasoning)
}

func summarizeContent(content map[domain.Platform]*domain.PlatformContent) string {
	platforms := make([]domain.Platform, 0, len(content))
	for p := range content {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return "Drafted content for " + strings.Join(platformNames(platforms), ", ")
}

func summarizeResult(r *domain.PostingResult) string {
	if r.Success {
		return fmt.Sprintf("Posted to %s (post id %s)", r.Platform, r.PostID)
	}
	if r.ErrorKind == domain.FailureCredentialsMissing {
		return fmt.Sprintf("Skipped %s: no connected account", r.Platform)
	}
	return fmt.Sprintf("Posting to %s failed: %s", r.Platform, r.Message)
}

func summarizeTerminal(run *domain.PipelineRun) string {
	if run.Status == domain.RunFailed && run.Error != "" && len(run.Results) == 0 {
		return fmt.Sprintf("Run failed during %s: %s", run.Stage, run.Error)
	}

	platforms := make([]domain.Platform, 0, len(run.Results))
	for p := range run.Results {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	parts := make([]string, 0, len(platforms))
	posted := 0
	for _, p := range platforms {
		r := run.Results[p]
		if r.Success {
			posted++
			parts = append(parts, fmt.Sprintf("%s: posted (%s)", p, r.PostID))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", p, r.ErrorKind))
		}
	}

	var verdict string
	switch run.Status {
	case domain.RunCompleted:
		verdict = "Run completed"
	case domain.RunPartiallyCompleted:
		verdict = "Run partially completed"
	default:
		verdict = "Run failed"
	}
	return fmt.Sprintf("%s: %d/%d platforms posted. %s", verdict, posted, len(platforms), strings.Join(parts, "; "))
}

func platformNames(platforms []domain.Platform) []string {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	return names
}
