package agents_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilothq/postpilot/internal/agents"
	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/transcript"
)

func TestSuite_AnalyzeImage(t *testing.T) {
	t.Parallel()

	t.Run("decodes a fenced analysis reply", func(t *testing.T) {
		t.Parallel()

		model := reply("```json\n" +
			`{"description":"A latte with tulip art on a wooden bar.","themes":["cozy","craft"],"marketing_angles":["morning ritual"]}` +
			"\n```")
		suite := agents.NewSuite(model)

		analysis, err := suite.AnalyzeImage(context.Background(), "https://cdn.example.com/latte.jpg", testBusiness())

		require.NoError(t, err)
		assert.Equal(t, "A latte with tulip art on a wooden bar.", analysis.Description)
		assert.Equal(t, []string{"cozy", "craft"}, analysis.Themes)
		assert.Equal(t, []string{"morning ritual"}, analysis.MarketingAngles)

		msgs := model.lastRequest()
		require.Len(t, msgs, 2)
		assert.Equal(t, schema.System, msgs[0].Role)
		require.Len(t, msgs[1].MultiContent, 2)
		assert.Contains(t, msgs[1].MultiContent[0].Text, "Corner Roasters")
		require.NotNil(t, msgs[1].MultiContent[1].ImageURL)
		assert.Equal(t, "https://cdn.example.com/latte.jpg", msgs[1].MultiContent[1].ImageURL.URL)
	})

	t.Run("nil business falls back to generic context", func(t *testing.T) {
		t.Parallel()

		model := reply(`{"description":"A latte.","themes":["cozy"],"marketing_angles":[]}`)
		suite := agents.NewSuite(model)

		_, err := suite.AnalyzeImage(context.Background(), "https://cdn.example.com/latte.jpg", nil)

		require.NoError(t, err)
		msgs := model.lastRequest()
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].MultiContent[0].Text, "No specific business context")
	})

	t.Run("model failure is transient", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("model unavailable")
		model := &fakeChatModel{
			generateFn: func(context.Context, []*schema.Message) (*schema.Message, error) {
				return nil, errBoom
			},
		}
		suite := agents.NewSuite(model)

		_, err := suite.AnalyzeImage(context.Background(), "https://cdn.example.com/latte.jpg", nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})

	t.Run("unparseable output is permanent", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply("I could not analyze the image, sorry."))

		_, err := suite.AnalyzeImage(context.Background(), "https://cdn.example.com/latte.jpg", nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})

	t.Run("analysis without themes is permanent", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"description":"A latte.","themes":[],"marketing_angles":[]}`))

		_, err := suite.AnalyzeImage(context.Background(), "https://cdn.example.com/latte.jpg", nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})
}

func TestSuite_PlanPlatforms(t *testing.T) {
	t.Parallel()

	analysis := &domain.ImageAnalysis{
		Description: "A latte with tulip art.",
		Themes:      []string{"cozy"},
	}

	t.Run("selects known platforms", func(t *testing.T) {
		t.Parallel()

		model := reply(`{"platforms":["facebook","instagram"],"reasoning":"both audiences fit","recommendations":{"facebook":"post before 9am"}}`)
		suite := agents.NewSuite(model)

		strategy, err := suite.PlanPlatforms(context.Background(), analysis, testBusiness())

		require.NoError(t, err)
		assert.Equal(t, []domain.Platform{domain.PlatformFacebook, domain.PlatformInstagram}, strategy.Platforms)
		assert.Equal(t, "both audiences fit", strategy.Reasoning)
		assert.Equal(t, "post before 9am", strategy.Recommendations[domain.PlatformFacebook])

		msgs := model.lastRequest()
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].Content, "Available platforms: facebook, instagram")
		assert.Contains(t, msgs[1].Content, "A latte with tulip art.")
	})

	t.Run("unknown and duplicate platforms are dropped", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"platforms":["tiktok","facebook"," Facebook "],"reasoning":"r"}`))

		strategy, err := suite.PlanPlatforms(context.Background(), analysis, nil)

		require.NoError(t, err)
		assert.Equal(t, []domain.Platform{domain.PlatformFacebook}, strategy.Platforms)
	})

	t.Run("empty selection is not an error", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"platforms":[],"reasoning":"image does not fit the brand"}`))

		strategy, err := suite.PlanPlatforms(context.Background(), analysis, nil)

		require.NoError(t, err)
		assert.Empty(t, strategy.Platforms)
	})
}

func TestSuite_GenerateContent(t *testing.T) {
	t.Parallel()

	analysis := &domain.ImageAnalysis{Description: "A latte.", Themes: []string{"cozy"}}
	strategy := &domain.PlatformStrategy{
		Platforms: []domain.Platform{domain.PlatformFacebook, domain.PlatformInstagram},
	}

	t.Run("produces content per selected platform", func(t *testing.T) {
		t.Parallel()

		model := reply(`{"posts":[` +
			`{"platform":"facebook","caption":"Fresh pour.","hashtags":["coffee"],"call_to_action":"Stop by today"},` +
			`{"platform":"instagram","caption":"Latte art season.","hashtags":["latte","coffee"]}]}`)
		suite := agents.NewSuite(model)

		content, err := suite.GenerateContent(context.Background(), analysis, strategy, testBusiness())

		require.NoError(t, err)
		require.Len(t, content, 2)
		assert.Equal(t, "Fresh pour.", content[domain.PlatformFacebook].Caption)
		assert.Equal(t, "Stop by today", content[domain.PlatformFacebook].CallToAction)
		assert.Equal(t, domain.PlatformInstagram, content[domain.PlatformInstagram].Platform)

		msgs := model.lastRequest()
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].Content, "Selected platforms: facebook, instagram")
	})

	t.Run("enforces platform limits on model output", func(t *testing.T) {
		t.Parallel()

		hashtags := make([]string, 35)
		for i := range hashtags {
			hashtags[i] = "tag"
		}
		raw, err := json.Marshal(map[string]any{
			"posts": []map[string]any{
				{"platform": "facebook", "caption": "Fresh pour."},
				{"platform": "instagram", "caption": strings.Repeat("a", 2500), "hashtags": hashtags},
			},
		})
		require.NoError(t, err)
		suite := agents.NewSuite(reply(string(raw)))

		content, err := suite.GenerateContent(context.Background(), analysis, strategy, nil)

		require.NoError(t, err)
		ig := content[domain.PlatformInstagram]
		require.NotNil(t, ig)
		assert.Equal(t, 2200, utf8.RuneCountInString(ig.Caption))
		assert.Len(t, ig.Hashtags, 30)
	})

	t.Run("unknown platform entries are ignored", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"posts":[` +
			`{"platform":"tiktok","caption":"nope"},` +
			`{"platform":"facebook","caption":"Fresh pour."},` +
			`{"platform":"instagram","caption":"Latte art."}]}`))

		content, err := suite.GenerateContent(context.Background(), analysis, strategy, nil)

		require.NoError(t, err)
		assert.Len(t, content, 2)
	})

	t.Run("missing platform content is permanent", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"posts":[{"platform":"facebook","caption":"Fresh pour."}]}`))

		_, err := suite.GenerateContent(context.Background(), analysis, strategy, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "instagram")
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})
}

func TestSuite_LabelTopic(t *testing.T) {
	t.Parallel()

	t.Run("labels from the first message", func(t *testing.T) {
		t.Parallel()

		model := reply(`{"topic":"Spring menu launch"}`)
		suite := agents.NewSuite(model)

		topic, err := suite.LabelTopic(context.Background(), "Help me plan posts for our spring menu")

		require.NoError(t, err)
		assert.Equal(t, "Spring menu launch", topic)

		msgs := model.lastRequest()
		require.Len(t, msgs, 2)
		assert.Equal(t, "Help me plan posts for our spring menu", msgs[1].Content)
	})

	t.Run("clamps long labels to six words", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"topic":"one two three four five six seven eight"}`))

		topic, err := suite.LabelTopic(context.Background(), "hello")

		require.NoError(t, err)
		assert.Equal(t, "one two three four five six", topic)
	})

	t.Run("normalizes whitespace", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"topic":"  Launch \n  plan  "}`))

		topic, err := suite.LabelTopic(context.Background(), "hello")

		require.NoError(t, err)
		assert.Equal(t, "Launch plan", topic)
	})

	t.Run("empty label is permanent", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(reply(`{"topic":"   "}`))

		_, err := suite.LabelTopic(context.Background(), "hello")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})

	t.Run("model failure is transient", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("rate limited")
		suite := agents.NewSuite(&fakeChatModel{
			generateFn: func(context.Context, []*schema.Message) (*schema.Message, error) {
				return nil, errBoom
			},
		})

		_, err := suite.LabelTopic(context.Background(), "hello")

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})
}

func TestSuite_StreamReply(t *testing.T) {
	t.Parallel()

	t.Run("streams the growing reply", func(t *testing.T) {
		t.Parallel()

		suite := agents.NewSuite(chunked("Here", " are", " three ideas."))

		var seen []string
		final, err := suite.StreamReply(context.Background(), nil, "Give me post ideas", testBusiness(),
			func(full string) error {
				seen = append(seen, full)
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, "Here are three ideas.", final)
		assert.Equal(t, []string{"Here", "Here are", "Here are three ideas."}, seen)
	})

	t.Run("carries history and business context", func(t *testing.T) {
		t.Parallel()

		model := chunked("Sure.")
		suite := agents.NewSuite(model)

		history := []transcript.Record{
			{Role: transcript.RoleUser, Content: "What should I post this week?", Timestamp: "2025-03-01T09:00:00.000000000Z"},
			{Role: transcript.RoleAgent, Content: "Try a behind-the-scenes shot.", Timestamp: "2025-03-01T09:00:01.000000000Z"},
			{Role: transcript.RoleAgent, Content: "", Timestamp: "2025-03-01T09:00:02.000000000Z"},
		}

		_, err := suite.StreamReply(context.Background(), history, "And for the weekend?", testBusiness(), nil)

		require.NoError(t, err)
		msgs := model.lastRequest()
		require.Len(t, msgs, 4)
		assert.Equal(t, schema.System, msgs[0].Role)
		assert.Contains(t, msgs[0].Content, "Corner Roasters")
		assert.Equal(t, schema.User, msgs[1].Role)
		assert.Equal(t, "What should I post this week?", msgs[1].Content)
		assert.Equal(t, schema.Assistant, msgs[2].Role)
		assert.Equal(t, "And for the weekend?", msgs[3].Content)
	})

	t.Run("stream open failure is transient", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("connection reset")
		suite := agents.NewSuite(&fakeChatModel{
			streamFn: func(context.Context, []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
				return nil, errBoom
			},
		})

		_, err := suite.StreamReply(context.Background(), nil, "hello", nil, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})

	t.Run("mid-stream failure is transient", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("stream interrupted")
		sr, sw := schema.Pipe[*schema.Message](2)
		sw.Send(&schema.Message{Role: schema.Assistant, Content: "Par"}, nil)
		sw.Send(nil, errBoom)
		sw.Close()
		suite := agents.NewSuite(&fakeChatModel{
			streamFn: func(context.Context, []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
				return sr, nil
			},
		})

		_, err := suite.StreamReply(context.Background(), nil, "hello", nil, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})

	t.Run("delta callback failure aborts the stream", func(t *testing.T) {
		t.Parallel()

		errSink := errors.New("listener gone")
		suite := agents.NewSuite(chunked("Hello", " there"))

		_, err := suite.StreamReply(context.Background(), nil, "hello", nil,
			func(string) error { return errSink })

		require.Error(t, err)
		assert.ErrorIs(t, err, errSink)
	})
}
