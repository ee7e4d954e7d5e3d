package posting_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/posting"
)

// newGraphServer starts a fake Graph API endpoint and returns a client
// pointed at it.
func newGraphServer(t *testing.T, handler http.HandlerFunc) *posting.GraphClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return posting.NewGraphClient(srv.URL)
}

func pageCredentials(accountID string) *domain.PlatformCredentials {
	return &domain.PlatformCredentials{
		AccountID: accountID,
		Token:     oauth2.Token{AccessToken: "page-token"},
	}
}

func graphError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "OAuthException", "code": 190},
	})
}

// ---------------------------------------------------------------------------
// GraphClient tests
// ---------------------------------------------------------------------------

func TestGraphClient_Post(t *testing.T) {
	t.Parallel()

	t.Run("decodes a successful reply", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/objects", r.URL.Path)
			assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "42"})
		})

		params := url.Values{}
		params.Set("access_token", "tok")

		var out struct {
			ID string `json:"id"`
		}
		err := graph.Post(context.Background(), "/objects", params, &out)

		require.NoError(t, err)
		assert.Equal(t, "42", out.ID)
	})

	t.Run("rate limiting is transient", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			graphError(w, http.StatusTooManyRequests, "(#4) Application request limit reached")
		})

		err := graph.Post(context.Background(), "/objects", url.Values{}, nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
		assert.Contains(t, err.Error(), "Application request limit reached")
	})

	t.Run("server errors are transient", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		err := graph.Post(context.Background(), "/objects", url.Values{}, nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			graphError(w, http.StatusBadRequest, "Invalid OAuth access token")
		})

		err := graph.Post(context.Background(), "/objects", url.Values{}, nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
		assert.Contains(t, err.Error(), "Invalid OAuth access token")
	})

	t.Run("plain text error bodies are kept", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		})

		err := graph.Post(context.Background(), "/objects", url.Values{}, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Forbidden")
	})

	t.Run("network failure is transient", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		graph := posting.NewGraphClient(addr)

		err := graph.Post(context.Background(), "/objects", url.Values{}, nil)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTransient, domain.ClassOf(err))
	})

	t.Run("malformed success body is permanent", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not valid json`))
		})

		var out struct{}
		err := graph.Post(context.Background(), "/objects", url.Values{}, &out)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})
}

// ---------------------------------------------------------------------------
// FacebookClient tests
// ---------------------------------------------------------------------------

func TestFacebookClient_Publish(t *testing.T) {
	t.Parallel()

	content := &domain.PlatformContent{
		Platform: domain.PlatformFacebook,
		Caption:  "Fresh out of the oven.",
		Hashtags: []string{"bakery"},
	}

	t.Run("uploads the photo with the rendered message", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/page-1/photos", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "page-token", q.Get("access_token"))
			assert.Equal(t, "https://cdn.example.com/bread.jpg", q.Get("url"))
			assert.Equal(t, "Fresh out of the oven.\n\n#bakery", q.Get("message"))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "789", "post_id": "page-1_789"})
		})
		client := posting.NewFacebookClient(graph)

		postID, err := client.Publish(context.Background(), pageCredentials("page-1"), "https://cdn.example.com/bread.jpg", content)

		require.NoError(t, err)
		assert.Equal(t, "page-1_789", postID)
	})

	t.Run("falls back to the photo id", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "789"})
		})
		client := posting.NewFacebookClient(graph)

		postID, err := client.Publish(context.Background(), pageCredentials("page-1"), "https://cdn.example.com/bread.jpg", content)

		require.NoError(t, err)
		assert.Equal(t, "789", postID)
	})

	t.Run("reply without ids is permanent", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		})
		client := posting.NewFacebookClient(graph)

		_, err := client.Publish(context.Background(), pageCredentials("page-1"), "https://cdn.example.com/bread.jpg", content)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no post id")
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})

	t.Run("api error is surfaced", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			graphError(w, http.StatusBadRequest, "Invalid OAuth access token")
		})
		client := posting.NewFacebookClient(graph)

		_, err := client.Publish(context.Background(), pageCredentials("page-1"), "https://cdn.example.com/bread.jpg", content)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid OAuth access token")
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})
}

// ---------------------------------------------------------------------------
// InstagramClient tests
// ---------------------------------------------------------------------------

func TestInstagramClient_Publish(t *testing.T) {
	t.Parallel()

	content := &domain.PlatformContent{
		Platform: domain.PlatformInstagram,
		Caption:  "Latte art season.",
		Hashtags: []string{"latte", "coffee"},
	}

	t.Run("creates then publishes the container", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var paths []string
		graph := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()

			switch r.URL.Path {
			case "/ig-1/media":
				q := r.URL.Query()
				assert.Equal(t, "https://cdn.example.com/latte.jpg", q.Get("image_url"))
				assert.Equal(t, "Latte art season.\n\n#latte #coffee", q.Get("caption"))
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-7"})
			case "/ig-1/media_publish":
				assert.Equal(t, "container-7", r.URL.Query().Get("creation_id"))
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
			default:
				http.NotFound(w, r)
			}
		})
		client := posting.NewInstagramClient(graph)

		mediaID, err := client.Publish(context.Background(), pageCredentials("ig-1"), "https://cdn.example.com/latte.jpg", content)

		require.NoError(t, err)
		assert.Equal(t, "media-42", mediaID)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"/ig-1/media", "/ig-1/media_publish"}, paths)
	})

	t.Run("create failure stops the flow", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var paths []string
		graph := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			graphError(w, http.StatusBadRequest, "Media posted before business account conversion")
		})
		client := posting.NewInstagramClient(graph)

		_, err := client.Publish(context.Background(), pageCredentials("ig-1"), "https://cdn.example.com/latte.jpg", content)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "create container")
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"/ig-1/media"}, paths)
	})

	t.Run("empty creation id is permanent", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": ""})
		})
		client := posting.NewInstagramClient(graph)

		_, err := client.Publish(context.Background(), pageCredentials("ig-1"), "https://cdn.example.com/latte.jpg", content)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no creation id")
		assert.Equal(t, domain.ErrorPermanent, domain.ClassOf(err))
	})

	t.Run("publish reply without id falls back to the container id", func(t *testing.T) {
		t.Parallel()

		graph := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ig-1/media" {
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "container-7"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{})
		})
		client := posting.NewInstagramClient(graph)

		mediaID, err := client.Publish(context.Background(), pageCredentials("ig-1"), "https://cdn.example.com/latte.jpg", content)

		require.NoError(t, err)
		assert.Equal(t, "container-7", mediaID)
	})
}
