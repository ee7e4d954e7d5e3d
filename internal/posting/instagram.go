package posting

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/postpilothq/postpilot/internal/domain"
)

var _ Client = (*InstagramClient)(nil) //nolint:gochecknoglobals // compile-time check

// InstagramClient publishes image posts through the two-step container
// flow: create a media container, then publish it.
type InstagramClient struct {
	graph *GraphClient
}

// NewInstagramClient returns a client backed by graph.
func NewInstagramClient(graph *GraphClient) *InstagramClient {
	return &InstagramClient{graph: graph}
}

// Publish creates a media container for the image and caption, then
// publishes the container and returns the resulting media id.
func (c *InstagramClient) Publish(ctx context.Context, creds *domain.PlatformCredentials, imageURL string, content *domain.PlatformContent) (string, error) {
	createParams := url.Values{}
	createParams.Set("access_token", creds.Token.AccessToken)
	createParams.Set("image_url", imageURL)
	createParams.Set("caption", content.Message())
	createParams.Set("format", "json")

	var created struct {
		ID string `json:"id"`
	}
	if err := c.graph.Post(ctx, "/"+creds.AccountID+"/media", createParams, &created); err != nil {
		return "", fmt.Errorf("posting.InstagramClient.Publish: create container: %w", err)
	}
	if created.ID == "" {
		return "", domain.Permanent(errors.New("posting: no creation id returned from Instagram API"))
	}

	publishParams := url.Values{}
	publishParams.Set("access_token", creds.Token.AccessToken)
	publishParams.Set("creation_id", created.ID)
	publishParams.Set("format", "json")

	var published struct {
		ID string `json:"id"`
	}
	if err := c.graph.Post(ctx, "/"+creds.AccountID+"/media_publish", publishParams, &published); err != nil {
		return "", fmt.Errorf("posting.InstagramClient.Publish: publish container: %w", err)
	}
	if published.ID == "" {
		published.ID = created.ID
	}
	return published.ID, nil
}
