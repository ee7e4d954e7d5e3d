package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PublishRequest is the resolved intent behind "publish this image":
// who is posting, into which conversation, and with what business context.
// The business profile is looked up by the caller; the pipeline treats it
// as data.
type PublishRequest struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	UserID         uuid.UUID        `json:"user_id"`
	ImageURL       string           `json:"image_url"`
	Business       *BusinessProfile `json:"business,omitempty"`
}

// ImageAnalysis is the structured result of the image analysis stage.
type ImageAnalysis struct {
	Description     string   `json:"description"`
	Themes          []string `json:"themes"`
	MarketingAngles []string `json:"marketing_angles"`
}

// Validate rejects structurally unusable analysis output. A model reply
// that parses but carries no description or themes cannot drive the
// later stages.
func (a *ImageAnalysis) Validate() error {
	if a.Description == "" {
		return errors.New("domain: image analysis missing description")
	}
	if len(a.Themes) == 0 {
		return errors.New("domain: image analysis missing themes")
	}
	return nil
}

// PlatformStrategy is the structured result of the platform strategy stage.
type PlatformStrategy struct {
	Platforms       []Platform          `json:"platforms"`
	Reasoning       string              `json:"reasoning"`
	Recommendations map[Platform]string `json:"recommendations,omitempty"`
}

// Normalize drops unknown and duplicate platforms, preserving order.
// An empty result after normalization triggers the orchestrator's
// connected-platform fallback; it is not an error here.
func (s *PlatformStrategy) Normalize() {
	seen := make(map[Platform]bool, len(s.Platforms))
	kept := s.Platforms[:0]
	for _, p := range s.Platforms {
		parsed, err := ParsePlatform(string(p))
		if err != nil || seen[parsed] {
			continue
		}
		seen[parsed] = true
		kept = append(kept, parsed)
	}
	s.Platforms = kept
}

// Stage names a phase of the publishing pipeline.
type Stage string

const (
	StageReceived     Stage = "received"
	StageAnalyzing    Stage = "analyzing_image"
	StageStrategizing Stage = "strategizing_platforms"
	StageGenerating   Stage = "generating_content"
	StagePosting      Stage = "posting"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunPending            RunStatus = "pending"
	RunRunning            RunStatus = "running"
	RunCompleted          RunStatus = "completed"
	RunPartiallyCompleted RunStatus = "partially_completed"
	RunFailed             RunStatus = "failed"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunPartiallyCompleted, RunFailed:
		return true
	default:
		return false
	}
}

// PipelineRun is the accumulated state of one publish request as it moves
// through the stages. Results carries exactly one entry per selected
// platform once the posting barrier resolves.
type PipelineRun struct {
	ID             uuid.UUID                     `json:"id"`
	ConversationID uuid.UUID                     `json:"conversation_id"`
	UserID         uuid.UUID                     `json:"user_id"`
	ImageURL       string                        `json:"image_url"`
	Status         RunStatus                     `json:"status"`
	Stage          Stage                         `json:"stage"`
	Analysis       *ImageAnalysis                `json:"analysis,omitempty"`
	Strategy       *PlatformStrategy             `json:"strategy,omitempty"`
	Content        map[Platform]*PlatformContent `json:"content,omitempty"`
	Results        map[Platform]*PostingResult   `json:"results,omitempty"`
	Error          string                        `json:"error,omitempty"`
	StartedAt      time.Time                     `json:"started_at"`
	CompletedAt    *time.Time                    `json:"completed_at,omitempty"`
}

// ResolveStatus computes the terminal status from per-platform results:
// all succeeded, some succeeded, or none did.
func ResolveStatus(results map[Platform]*PostingResult) RunStatus {
	if len(results) == 0 {
		return RunFailed
	}
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	switch ok {
	case len(results):
		return RunCompleted
	case 0:
		return RunFailed
	default:
		return RunPartiallyCompleted
	}
}
