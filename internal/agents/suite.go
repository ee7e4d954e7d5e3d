package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/transcript"
)

// Suite implements every sub-agent contract over a single chat model.
// Each method is a pure call: prompt in, typed result or classified
// failure out. Nothing here mutates shared state or touches the
// publishing APIs.
type Suite struct {
	model model.ToolCallingChatModel
	now   func() time.Time
}

func NewSuite(m model.ToolCallingChatModel) *Suite {
	return &Suite{model: m, now: time.Now}
}

// AnalyzeImage describes the image at imageURL in marketing terms.
func (s *Suite) AnalyzeImage(ctx context.Context, imageURL string, business *domain.BusinessProfile) (*domain.ImageAnalysis, error) {
	user := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "Analyze this image." + businessContext(business)},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: imageURL}},
		},
	}

	raw, err := s.generate(ctx, promptAnalyze, user)
	if err != nil {
		return nil, fmt.Errorf("agents.Suite.AnalyzeImage: %w", err)
	}

	var analysis domain.ImageAnalysis
	if err := decodeStage(raw, &analysis); err != nil {
		return nil, fmt.Errorf("agents.Suite.AnalyzeImage: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("agents.Suite.AnalyzeImage: %w", domain.Permanent(err))
	}
	return &analysis, nil
}

// PlanPlatforms selects target platforms for the analyzed image.
func (s *Suite) PlanPlatforms(ctx context.Context, analysis *domain.ImageAnalysis, business *domain.BusinessProfile) (*domain.PlatformStrategy, error) {
	available := make([]string, 0, 2)
	for _, p := range domain.AllPlatforms() {
		available = append(available, string(p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available platforms: %s\n", strings.Join(available, ", "))
	writeJSONSection(&b, "Image analysis", analysis)
	b.WriteString(businessContext(business))

	raw, err := s.generate(ctx, promptStrategy, &schema.Message{Role: schema.User, Content: b.String()})
	if err != nil {
		return nil, fmt.Errorf("agents.Suite.PlanPlatforms: %w", err)
	}

	var strategy domain.PlatformStrategy
	if err := decodeStage(raw, &strategy); err != nil {
		return nil, fmt.Errorf("agents.Suite.PlanPlatforms: %w", err)
	}
	// Unknown platform names from the model are dropped, not fatal; an
	// empty result is the orchestrator's fallback trigger.
	strategy.Normalize()
	return &strategy, nil
}

// GenerateContent writes one post per selected platform and truncates
// each to its platform limits.
func (s *Suite) GenerateContent(ctx context.Context, analysis *domain.ImageAnalysis, strategy *domain.PlatformStrategy, business *domain.BusinessProfile) (map[domain.Platform]*domain.PlatformContent, error) {
	selected := make([]string, 0, len(strategy.Platforms))
	for _, p := range strategy.Platforms {
		selected = append(selected, string(p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Selected platforms: %s\n", strings.Join(selected, ", "))
	writeJSONSection(&b, "Image analysis", analysis)
	writeJSONSection(&b, "Platform strategy", strategy)
	b.WriteString(businessContext(business))

	raw, err := s.generate(ctx, promptContent, &schema.Message{Role: schema.User, Content: b.String()})
	if err != nil {
		return nil, fmt.Errorf("agents.Suite.GenerateContent: %w", err)
	}

	var out struct {
		Posts []*domain.PlatformContent `json:"posts"`
	}
	if err := decodeStage(raw, &out); err != nil {
		return nil, fmt.Errorf("agents.Suite.GenerateContent: %w", err)
	}

	content := make(map[domain.Platform]*domain.PlatformContent, len(strategy.Platforms))
	for _, post := range out.Posts {
		p, err := domain.ParsePlatform(string(post.Platform))
		if err != nil {
			continue
		}
		post.Platform = p
		post.EnforceLimits()
		content[p] = post
	}
	for _, p := range strategy.Platforms {
		if _, ok := content[p]; !ok {
			return nil, fmt.Errorf("agents.Suite.GenerateContent: %w",
				domain.Permanent(fmt.Errorf("agents: no content generated for %s", p)))
		}
	}
	return content, nil
}

// LabelTopic names a conversation from its first message.
func (s *Suite) LabelTopic(ctx context.Context, firstMessage string) (string, error) {
	raw, err := s.generate(ctx, promptTopic, &schema.Message{Role: schema.User, Content: firstMessage})
	if err != nil {
		return "", fmt.Errorf("agents.Suite.LabelTopic: %w", err)
	}

	var out struct {
		Topic string `json:"topic"`
	}
	if err := decodeStage(raw, &out); err != nil {
		return "", fmt.Errorf("agents.Suite.LabelTopic: %w", err)
	}

	topic := clampTopic(out.Topic)
	if topic == "" {
		return "", fmt.Errorf("agents.Suite.LabelTopic: %w",
			domain.Permanent(errors.New("agents: empty topic label")))
	}
	return topic, nil
}

// StreamReply streams the assistant's answer, invoking onDelta with the
// full accumulated reply after each chunk.
func (s *Suite) StreamReply(ctx context.Context, history []transcript.Record, prompt string, business *domain.BusinessProfile, onDelta func(string) error) (string, error) {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, &schema.Message{Role: schema.System, Content: promptChat(s.now(), business)})
	for _, rec := range history {
		if rec.Content == "" {
			continue
		}
		role := schema.Assistant
		if rec.Role == transcript.RoleUser {
			role = schema.User
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: rec.Content})
	}
	msgs = append(msgs, &schema.Message{Role: schema.User, Content: prompt})

	sr, err := s.model.Stream(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("agents.Suite.StreamReply: %w", domain.Transient(err))
	}
	defer sr.Close()

	var full strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("agents.Suite.StreamReply: %w", domain.Transient(err))
		}
		full.WriteString(chunk.Content)
		if onDelta != nil {
			if err := onDelta(full.String()); err != nil {
				return "", fmt.Errorf("agents.Suite.StreamReply: %w", err)
			}
		}
	}
	return full.String(), nil
}

// generate runs one non-streaming model call. Model API failures are
// classified transient.
func (s *Suite) generate(ctx context.Context, system string, user *schema.Message) (string, error) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: system},
		user,
	}
	out, err := s.model.Generate(ctx, msgs)
	if err != nil {
		return "", domain.Transient(fmt.Errorf("model generate: %w", err))
	}
	return out.Content, nil
}

// decodeStage parses a structured model reply. Unparseable output is a
// permanent failure.
func decodeStage(raw string, into any) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), into); err != nil {
		log.Debug().Str("raw", clip(raw, 512)).Msg("agents: unparseable model output")
		return domain.Permanent(fmt.Errorf("parse model output: %w", err))
	}
	return nil
}

func writeJSONSection(b *strings.Builder, title string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", title, data)
}

// clampTopic normalizes whitespace and caps the label at six words.
func clampTopic(s string) string {
	words := strings.Fields(s)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
