package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/oauth2"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/server/middleware"
)

// PlatformStatus reports one platform connection without exposing the
// stored token.
type PlatformStatus struct {
	Platform    domain.Platform `json:"platform"`
	Connected   bool            `json:"connected"`
	AccountID   string          `json:"account_id,omitempty"`
	AccountName string          `json:"account_name,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

type ConnectPlatformInput struct {
	Platform string `path:"platform" doc:"Platform name (facebook, instagram)"`
	Body     struct {
		AccountID   string     `json:"account_id" minLength:"1" maxLength:"100" doc:"Graph object to post against (page ID or IG business account ID)"`
		AccountName string     `json:"account_name,omitempty" maxLength:"200" doc:"Display name of the linked account"`
		AccessToken string     `json:"access_token" minLength:"1" doc:"Platform access token; stored encrypted"`
		ExpiresAt   *time.Time `json:"expires_at,omitempty" doc:"Token expiry; omit for long-lived tokens"`
	}
}

type ConnectPlatformOutput struct {
	Body PlatformStatus
}

type PlatformStatusInput struct {
	Platform string `path:"platform" doc:"Platform name (facebook, instagram)"`
}

type PlatformStatusOutput struct {
	Body PlatformStatus
}

type DisconnectPlatformInput struct {
	Platform string `path:"platform" doc:"Platform name (facebook, instagram)"`
}

func RegisterCredentialRoutes(api huma.API, manager CredentialManager) {
	huma.Register(api, huma.Operation{
		OperationID: "connect-platform",
		Method:      http.MethodPut,
		Path:        "/credentials/{platform}",
		Summary:     "Connect a platform account",
		Tags:        []string{"Credentials"},
	}, func(ctx context.Context, input *ConnectPlatformInput) (*ConnectPlatformOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		platform, err := domain.ParsePlatform(input.Platform)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		creds := &domain.PlatformCredentials{
			UserID:      userID,
			Platform:    platform,
			AccountID:   input.Body.AccountID,
			AccountName: input.Body.AccountName,
			Token:       oauth2.Token{AccessToken: input.Body.AccessToken},
			UpdatedAt:   time.Now().UTC(),
		}
		if input.Body.ExpiresAt != nil {
			creds.Token.Expiry = *input.Body.ExpiresAt
		}

		if err := manager.Store(ctx, creds); err != nil {
			return nil, huma.Error500InternalServerError("failed to store credentials", err)
		}

		return &ConnectPlatformOutput{Body: statusFor(creds)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "platform-status",
		Method:      http.MethodGet,
		Path:        "/credentials/{platform}/status",
		Summary:     "Report whether a platform account is connected",
		Tags:        []string{"Credentials"},
	}, func(ctx context.Context, input *PlatformStatusInput) (*PlatformStatusOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		platform, err := domain.ParsePlatform(input.Platform)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		creds, err := manager.Connection(ctx, userID, platform)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &PlatformStatusOutput{Body: PlatformStatus{Platform: platform}}, nil
			}
			return nil, huma.Error500InternalServerError("failed to read credentials", err)
		}

		return &PlatformStatusOutput{Body: statusFor(creds)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disconnect-platform",
		Method:      http.MethodDelete,
		Path:        "/credentials/{platform}",
		Summary:     "Disconnect a platform account",
		Tags:        []string{"Credentials"},
	}, func(ctx context.Context, input *DisconnectPlatformInput) (*struct{}, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing user context")
		}

		platform, err := domain.ParsePlatform(input.Platform)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		if err := manager.Disconnect(ctx, userID, platform); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound(string(platform) + " account is not connected")
			}
			return nil, huma.Error500InternalServerError("failed to disconnect platform", err)
		}

		return &struct{}{}, nil
	})
}

func statusFor(creds *domain.PlatformCredentials) PlatformStatus {
	status := PlatformStatus{
		Platform:    creds.Platform,
		Connected:   true,
		AccountID:   creds.AccountID,
		AccountName: creds.AccountName,
		UpdatedAt:   &creds.UpdatedAt,
	}
	if !creds.Token.Expiry.IsZero() {
		expiry := creds.Token.Expiry
		status.ExpiresAt = &expiry
	}
	return status
}
