package v1

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/server/middleware"
)

type PublishInput struct {
	Body struct {
		ConversationID uuid.UUID `json:"conversation_id,omitempty" doc:"Conversation to append the run to; a new one is created when omitted"`
		ImageURL       string    `json:"image_url" minLength:"1" maxLength:"2048" doc:"Publicly reachable image URL to publish"`
	}
}

type PublishOutput struct {
	Body *pipeline.Output
}

func RegisterPublishRoutes(api huma.API, runner Runner, businesses domain.BusinessRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "publish-image",
		Method:      http.MethodPost,
		Path:        "/publish",
		Summary:     "Publish an image across connected platforms",
		Tags:        []string{"Publish"},
	}, func(ctx context.Context, input *PublishInput) (*PublishOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		if err := validateImageURL(input.Body.ImageURL); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		conversationID := input.Body.ConversationID
		if conversationID == uuid.Nil {
			conversationID = uuid.New()
		}

		business, err := businesses.Get(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error500InternalServerError("failed to load business profile", err)
		}

		req := &domain.PublishRequest{
			ConversationID: conversationID,
			UserID:         userID,
			ImageURL:       input.Body.ImageURL,
			Business:       business,
		}

		// The run must survive a dropped client, so it gets a context
		// detached from the request.
		out, err := runner.Run(context.WithoutCancel(ctx), req)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("conversation belongs to another user")
			}
			return nil, huma.Error500InternalServerError("failed to run publish pipeline", err)
		}

		return &PublishOutput{Body: out}, nil
	})
}

func validateImageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("image_url is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("image_url must be an absolute http(s) URL")
	}
	return nil
}
