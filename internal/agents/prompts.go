package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/internal/domain"
)

const promptAnalyze = `You are an expert at describing images in detail for marketing purposes.
Generate a comprehensive description of the provided image, the visual themes it carries, and the marketing angles it supports.
Respond with a single JSON object and nothing else:
{"description": "...", "themes": ["..."], "marketing_angles": ["..."]}`

const promptStrategy = `You are a social media strategist helping businesses grow.
Given an image analysis and the client's business context, choose which of the available platforms this post should target and why.
Only pick platforms from the available list. Respond with a single JSON object and nothing else:
{"platforms": ["..."], "reasoning": "...", "recommendations": {"<platform>": "..."}}`

const promptContent = `You are a social media copywriter helping businesses grow.
Write one post per selected platform, shaped to that platform's conventions: caption, hashtags without the leading '#', and an optional call to action.
Respond with a single JSON object and nothing else:
{"posts": [{"platform": "...", "caption": "...", "hashtags": ["..."], "call_to_action": "..."}]}`

const promptTopic = `You are a friendly personal assistant.
Label the conversation based on the user's initial message.
Always refer to the user as 'you' or 'you're'; never say 'User'.
Output a concise topic label (2 to 6 words).
Respond with a single JSON object and nothing else: {"topic": "..."}`

// promptChat builds the assistant system prompt with the current date and
// the client business context, when one exists.
func promptChat(now time.Time, business *domain.BusinessProfile) string {
	var b strings.Builder
	b.WriteString("You are a helpful marketing assistant and expert researcher specializing in helping businesses grow.\n")
	fmt.Fprintf(&b, "Today's date is %s.\n", now.Format("2006-01-02"))
	b.WriteString(businessContext(business))
	return b.String()
}

// businessContext renders the client context block shared by every
// sub-agent prompt.
func businessContext(business *domain.BusinessProfile) string {
	if business == nil || (business.Name == "" && business.URL == "" && business.Description == "") {
		return "\nNote: No specific business context is available. Provide general marketing advice and ask clarifying questions about the user's business when relevant.\n"
	}

	var b strings.Builder
	b.WriteString("\n--- CLIENT BUSINESS CONTEXT ---\n")
	if business.Name != "" {
		fmt.Fprintf(&b, "Business Name: %s\n", business.Name)
	}
	if business.URL != "" {
		fmt.Fprintf(&b, "Website: %s\n", business.URL)
	}
	if business.Description != "" {
		fmt.Fprintf(&b, "Business Description: %s\n", business.Description)
	}
	b.WriteString("\nWhen providing marketing advice, content suggestions, or research insights, always consider this specific business context. Tailor your responses to be directly relevant and actionable for this business.\n")
	return b.String()
}
