package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postpilothq/postpilot/internal/agents"
	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/transcript"
)

const topicMaxWords = 6

// PubSubPublisher broadcasts transcript revisions to live subscribers.
type PubSubPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Service handles assistant conversations: it persists the transcript,
// labels new conversations, and streams replies.
type Service struct {
	convos      domain.ConversationRepository
	transcripts domain.TranscriptRepository
	businesses  domain.BusinessRepository
	assistant   agents.Assistant
	labeler     agents.TopicLabeler
	pubsub      PubSubPublisher
	keys        *transcript.KeyAllocator
}

// NewService wires the conversation service.
func NewService(
	convos domain.ConversationRepository,
	transcripts domain.TranscriptRepository,
	businesses domain.BusinessRepository,
	assistant agents.Assistant,
	labeler agents.TopicLabeler,
	pubsub PubSubPublisher,
) *Service {
	return &Service{
		convos:      convos,
		transcripts: transcripts,
		businesses:  businesses,
		assistant:   assistant,
		labeler:     labeler,
		pubsub:      pubsub,
		keys:        transcript.NewKeyAllocator(),
	}
}

// Send appends the user's message and streams the assistant's reply.
// onRecord, when set, first receives the user echo and then the reply
// as one growing record: every revision keeps the same timestamp key
// and is also published to subscribers. The final revision is
// persisted once complete.
func (s *Service) Send(ctx context.Context, userID, conversationID uuid.UUID, prompt string, onRecord func(transcript.Record) error) (transcript.Record, error) {
	conv, err := s.convos.Ensure(ctx, userID, conversationID)
	if err != nil {
		return transcript.Record{}, fmt.Errorf("chat.Service.Send: %w", err)
	}

	business, err := s.businesses.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return transcript.Record{}, fmt.Errorf("chat.Service.Send: load business: %w", err)
		}
		business = nil
	}

	if conv.EntryCount == 0 {
		s.labelTopic(ctx, conv, prompt)
	}

	// History is loaded before the new message so the prompt is not
	// duplicated in the model's context.
	history, err := s.transcripts.ListByConversation(ctx, conversationID)
	if err != nil {
		return transcript.Record{}, fmt.Errorf("chat.Service.Send: load history: %w", err)
	}

	userRec := transcript.Record{
		Role:      transcript.RoleUser,
		Content:   prompt,
		Timestamp: s.keys.Next(),
	}
	if err := s.transcripts.Append(ctx, conversationID, userRec); err != nil {
		return transcript.Record{}, fmt.Errorf("chat.Service.Send: append user record: %w", err)
	}
	s.publish(ctx, conversationID, userRec)
	if onRecord != nil {
		if err := onRecord(userRec); err != nil {
			return transcript.Record{}, fmt.Errorf("chat.Service.Send: echo user record: %w", err)
		}
	}

	agentKey := s.keys.Next()
	full, err := s.assistant.StreamReply(ctx, history, prompt, business, func(sofar string) error {
		rec := transcript.Record{
			Role:      transcript.RoleAgent,
			Content:   sofar,
			Timestamp: agentKey,
		}
		s.publish(ctx, conversationID, rec)
		if onRecord != nil {
			return onRecord(rec)
		}
		return nil
	})
	if err != nil {
		return transcript.Record{}, fmt.Errorf("chat.Service.Send: %w", err)
	}

	final := transcript.Record{
		Role:      transcript.RoleAgent,
		Content:   full,
		Timestamp: agentKey,
	}
	if err := s.transcripts.Append(ctx, conversationID, final); err != nil {
		// The reply already streamed to the client; keep serving it.
		log.Error().
			Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("chat.Service.Send: append agent record")
	}
	return final, nil
}

// History returns the conversation's transcript after verifying the
// caller owns it.
func (s *Service) History(ctx context.Context, userID, conversationID uuid.UUID) ([]transcript.Record, error) {
	if _, err := s.convos.GetByID(ctx, userID, conversationID); err != nil {
		return nil, fmt.Errorf("chat.Service.History: %w", err)
	}
	records, err := s.transcripts.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("chat.Service.History: %w", err)
	}
	return records, nil
}

// Get returns one conversation owned by the caller.
func (s *Service) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convos.GetByID(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("chat.Service.Get: %w", err)
	}
	return conv, nil
}

// List returns the caller's conversations, most recent first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	convos, err := s.convos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chat.Service.List: %w", err)
	}
	return convos, nil
}

// labelTopic names a fresh conversation after its first message. A
// labeling failure degrades to a prompt prefix and never blocks the
// conversation.
func (s *Service) labelTopic(ctx context.Context, conv *domain.Conversation, prompt string) {
	topic, err := s.labeler.LabelTopic(ctx, prompt)
	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", conv.ID.String()).
			Msg("chat.Service: topic labeling failed, using prompt prefix")
		topic = firstWords(prompt, topicMaxWords)
	}
	if topic == "" {
		return
	}
	if err := s.convos.SetTopic(ctx, conv.UserID, conv.ID, topic); err != nil {
		log.Error().
			Err(err).
			Str("conversation_id", conv.ID.String()).
			Msg("chat.Service: set topic")
	}
}

func (s *Service) publish(ctx context.Context, conversationID uuid.UUID, rec transcript.Record) {
	line, err := transcript.EncodeLine(rec)
	if err != nil {
		log.Error().
			Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("chat.Service: encode record")
		return
	}
	if err := s.pubsub.Publish(ctx, "conversation:"+conversationID.String(), line); err != nil {
		log.Error().
			Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("chat.Service: publish record")
	}
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
