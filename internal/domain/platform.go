package domain

import (
	"fmt"
	"strings"
)

// Platform identifies a supported social network target.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms lists every platform the pipeline can target, in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformFacebook, PlatformInstagram}
}

// ParsePlatform validates a platform name from user input.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformFacebook, PlatformInstagram:
		return p, nil
	default:
		return "", fmt.Errorf("domain: unknown platform %q", s)
	}
}

// CaptionLimit returns the maximum caption length in characters.
// Values follow the Graph API published limits.
func (p Platform) CaptionLimit() int {
	switch p {
	case PlatformInstagram:
		return 2200
	default:
		return 63206
	}
}

// HashtagLimit returns the maximum number of hashtags per post.
func (p Platform) HashtagLimit() int {
	return 30
}

// PlatformContent is the generated post body for one platform.
type PlatformContent struct {
	Platform     Platform `json:"platform"`
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action,omitempty"`
}

// EnforceLimits truncates the content to the platform's limits: the caption
// is cut to the maximum length, excess trailing hashtags are dropped.
// Truncation never fails the pipeline; content stays postable.
func (c *PlatformContent) EnforceLimits() {
	if limit := c.Platform.CaptionLimit(); limit > 0 {
		if runes := []rune(c.Caption); len(runes) > limit {
			c.Caption = string(runes[:limit])
		}
	}
	if limit := c.Platform.HashtagLimit(); limit > 0 && len(c.Hashtags) > limit {
		c.Hashtags = c.Hashtags[:limit]
	}
}

// Message composes the full post text: caption, then call to action, then
// hashtags on their own line. Hashtags gain a leading '#' when missing.
func (c *PlatformContent) Message() string {
	var b strings.Builder
	b.WriteString(c.Caption)
	if c.CallToAction != "" {
		b.WriteString("\n\n")
		b.WriteString(c.CallToAction)
	}
	if len(c.Hashtags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range c.Hashtags {
			if i > 0 {
				b.WriteByte(' ')
			}
			if !strings.HasPrefix(tag, "#") {
				b.WriteByte('#')
			}
			b.WriteString(tag)
		}
	}
	return b.String()
}

// FailureKind names the platform-scoped failure recorded in a PostingResult.
type FailureKind string

const (
	FailureCredentialsMissing FailureKind = "credentials_missing"
	FailurePosting            FailureKind = "posting_error"
)

// PostingResult is the outcome of publishing to a single platform.
// PostID is set iff Success; ErrorKind and Message are set iff not.
type PostingResult struct {
	Platform  Platform    `json:"platform"`
	Success   bool        `json:"success"`
	PostID    string      `json:"post_id,omitempty"`
	ErrorKind FailureKind `json:"error_kind,omitempty"`
	Message   string      `json:"message,omitempty"`
}
