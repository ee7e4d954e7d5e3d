package agents

import (
	"context"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/transcript"
)

// ImageAnalyzer extracts marketing-relevant structure from an image.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string, business *domain.BusinessProfile) (*domain.ImageAnalysis, error)
}

// PlatformStrategist decides which platforms a post should target.
type PlatformStrategist interface {
	PlanPlatforms(ctx context.Context, analysis *domain.ImageAnalysis, business *domain.BusinessProfile) (*domain.PlatformStrategy, error)
}

// ContentGenerator writes one platform-shaped post per selected platform.
// Returned content already satisfies the platform limits.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, analysis *domain.ImageAnalysis, strategy *domain.PlatformStrategy, business *domain.BusinessProfile) (map[domain.Platform]*domain.PlatformContent, error)
}

// TopicLabeler produces a short conversation label (2 to 6 words) from the
// first user message.
type TopicLabeler interface {
	LabelTopic(ctx context.Context, firstMessage string) (string, error)
}

// Assistant answers free-form marketing chat. onDelta receives the full
// accumulated reply after each chunk so callers can stream growing
// records; the return value is the final reply.
type Assistant interface {
	StreamReply(ctx context.Context, history []transcript.Record, prompt string, business *domain.BusinessProfile, onDelta func(string) error) (string, error)
}
