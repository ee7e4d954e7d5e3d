package agents_test

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/postpilothq/postpilot/internal/domain"
)

// Compile-time interface checks.
var (
	_ model.ToolCallingChatModel = (*fakeChatModel)(nil)
)

// ---------------------------------------------------------------------------
// fake chat model
// ---------------------------------------------------------------------------

// fakeChatModel scripts Generate and Stream replies and records every
// request for prompt-shape assertions.
type fakeChatModel struct {
	mu       sync.Mutex
	requests [][]*schema.Message

	generateFn func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error)
	streamFn   func(ctx context.Context, msgs []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

func (m *fakeChatModel) Generate(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.record(msgs)
	if m.generateFn != nil {
		return m.generateFn(ctx, msgs)
	}
	return &schema.Message{Role: schema.Assistant, Content: "{}"}, nil
}

func (m *fakeChatModel) Stream(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(msgs)
	if m.streamFn != nil {
		return m.streamFn(ctx, msgs)
	}
	return schema.StreamReaderFromArray([]*schema.Message{{Role: schema.Assistant, Content: ""}}), nil
}

func (m *fakeChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *fakeChatModel) record(msgs []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, msgs)
}

func (m *fakeChatModel) lastRequest() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// reply builds a fake model answering every Generate call with content.
func reply(content string) *fakeChatModel {
	return &fakeChatModel{
		generateFn: func(context.Context, []*schema.Message) (*schema.Message, error) {
			return &schema.Message{Role: schema.Assistant, Content: content}, nil
		},
	}
}

// chunked builds a fake model streaming the given chunks in order.
func chunked(parts ...string) *fakeChatModel {
	msgs := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		msgs = append(msgs, &schema.Message{Role: schema.Assistant, Content: p})
	}
	return &fakeChatModel{
		streamFn: func(context.Context, []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
			return schema.StreamReaderFromArray(msgs), nil
		},
	}
}

func testBusiness() *domain.BusinessProfile {
	return &domain.BusinessProfile{
		Name:        "Corner Roasters",
		URL:         "https://cornerroasters.example",
		Description: "Specialty coffee shop roasting in-house.",
	}
}
