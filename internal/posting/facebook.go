package posting

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/postpilothq/postpilot/internal/domain"
)

var _ Client = (*FacebookClient)(nil) //nolint:gochecknoglobals // compile-time check

// FacebookClient publishes photo posts to a page feed.
type FacebookClient struct {
	graph *GraphClient
}

// NewFacebookClient returns a client backed by graph.
func NewFacebookClient(graph *GraphClient) *FacebookClient {
	return &FacebookClient{graph: graph}
}

// Publish uploads the image to the page with the rendered message as
// its caption and returns the created post id.
func (c *FacebookClient) Publish(ctx context.Context, creds *domain.PlatformCredentials, imageURL string, content *domain.PlatformContent) (string, error) {
	params := url.Values{}
	params.Set("access_token", creds.Token.AccessToken)
	params.Set("url", imageURL)
	params.Set("message", content.Message())
	params.Set("format", "json")

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := c.graph.Post(ctx, "/"+creds.AccountID+"/photos", params, &out); err != nil {
		return "", fmt.Errorf("posting.FacebookClient.Publish: %w", err)
	}

	// Photo uploads report both the photo id and the page post id.
	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	if postID == "" {
		return "", domain.Permanent(errors.New("posting: no post id returned from Facebook API"))
	}
	return postID, nil
}
