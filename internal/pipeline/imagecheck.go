package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrImageUnreachable is returned when the image URL cannot be fetched.
// It is a fatal validation failure: the run fails without retries and
// without any agent or posting calls.
var ErrImageUnreachable = errors.New("pipeline: image unreachable") //nolint:gochecknoglobals // sentinel error

// ReachabilityChecker probes an image URL before any model spend.
type ReachabilityChecker interface {
	CheckImage(ctx context.Context, imageURL string) error
}

// HTTPImageChecker verifies reachability with a HEAD probe, falling back
// to a ranged GET for servers that reject HEAD.
type HTTPImageChecker struct {
	client *http.Client
}

func NewHTTPImageChecker(timeout time.Duration) *HTTPImageChecker {
	return &HTTPImageChecker{client: &http.Client{Timeout: timeout}}
}

func (c *HTTPImageChecker) CheckImage(ctx context.Context, imageURL string) error {
	u, err := url.Parse(imageURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("pipeline.HTTPImageChecker: invalid image url %q: %w", imageURL, ErrImageUnreachable)
	}

	ok, err := c.probe(ctx, http.MethodHead, imageURL)
	if err == nil && ok {
		return nil
	}
	ok, err = c.probe(ctx, http.MethodGet, imageURL)
	if err != nil {
		return fmt.Errorf("pipeline.HTTPImageChecker: %v: %w", err, ErrImageUnreachable)
	}
	if !ok {
		return fmt.Errorf("pipeline.HTTPImageChecker: %s: %w", imageURL, ErrImageUnreachable)
	}
	return nil
}

func (c *HTTPImageChecker) probe(ctx context.Context, method, imageURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, imageURL, nil)
	if err != nil {
		return false, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusBadRequest, nil
}
