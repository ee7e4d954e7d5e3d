package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/server/middleware"
)

type GetBusinessOutput struct {
	Body *domain.BusinessProfile
}

type UpsertBusinessInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"200" doc:"Business name"`
		URL         string `json:"url,omitempty" maxLength:"2048" doc:"Business website"`
		Description string `json:"description,omitempty" maxLength:"2000" doc:"What the business does and who it serves"`
	}
}

type UpsertBusinessOutput struct {
	Body *domain.BusinessProfile
}

func RegisterBusinessRoutes(api huma.API, businesses domain.BusinessRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "get-business",
		Method:      http.MethodGet,
		Path:        "/business",
		Summary:     "Get the caller's business profile",
		Tags:        []string{"Business"},
	}, func(ctx context.Context, _ *struct{}) (*GetBusinessOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		profile, err := businesses.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("business profile not found")
			}
			return nil, huma.Error500InternalServerError("failed to get business profile", err)
		}

		return &GetBusinessOutput{Body: profile}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-business",
		Method:      http.MethodPut,
		Path:        "/business",
		Summary:     "Create or replace the caller's business profile",
		Tags:        []string{"Business"},
	}, func(ctx context.Context, input *UpsertBusinessInput) (*UpsertBusinessOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		profile := &domain.BusinessProfile{
			UserID:      userID,
			Name:        input.Body.Name,
			URL:         input.Body.URL,
			Description: input.Body.Description,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := businesses.Upsert(ctx, profile); err != nil {
			return nil, huma.Error500InternalServerError("failed to save business profile", err)
		}

		return &UpsertBusinessOutput{Body: profile}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-business",
		Method:      http.MethodDelete,
		Path:        "/business",
		Summary:     "Delete the caller's business profile",
		Tags:        []string{"Business"},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		if err := businesses.Delete(ctx, userID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("business profile not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete business profile", err)
		}

		return &struct{}{}, nil
	})
}
