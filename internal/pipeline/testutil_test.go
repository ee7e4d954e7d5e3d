package pipeline_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/transcript"
)

// Compile-time interface checks.
var (
	_ pipeline.Poster              = (*mockPoster)(nil)
	_ pipeline.ReachabilityChecker = (*mockChecker)(nil)
	_ domain.CredentialResolver    = (*mockResolver)(nil)
	_ domain.TranscriptRepository  = (*fakeTranscripts)(nil)
)

// ---------------------------------------------------------------------------
// Sub-agent mocks
// ---------------------------------------------------------------------------

type mockAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, imageURL string, business *domain.BusinessProfile) (*domain.ImageAnalysis, error)
}

func (m *mockAnalyzer) AnalyzeImage(ctx context.Context, imageURL string, business *domain.BusinessProfile) (*domain.ImageAnalysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, imageURL, business)
}

func (m *mockAnalyzer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockStrategist struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, analysis *domain.ImageAnalysis, business *domain.BusinessProfile) (*domain.PlatformStrategy, error)
}

func (m *mockStrategist) PlanPlatforms(ctx context.Context, analysis *domain.ImageAnalysis, business *domain.BusinessProfile) (*domain.PlatformStrategy, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, analysis, business)
}

func (m *mockStrategist) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, analysis *domain.ImageAnalysis, strategy *domain.PlatformStrategy, business *domain.BusinessProfile) (map[domain.Platform]*domain.PlatformContent, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, analysis *domain.ImageAnalysis, strategy *domain.PlatformStrategy, business *domain.BusinessProfile) (map[domain.Platform]*domain.PlatformContent, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, analysis, strategy, business)
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ---------------------------------------------------------------------------
// Reachability checker mock
// ---------------------------------------------------------------------------

type mockChecker struct {
	err error
}

func (m *mockChecker) CheckImage(context.Context, string) error { return m.err }

// ---------------------------------------------------------------------------
// Credential resolver mock
// ---------------------------------------------------------------------------

type mockResolver struct {
	connected []domain.Platform
	err       error
}

func (m *mockResolver) Resolve(_ context.Context, _ uuid.UUID, platform domain.Platform) (*domain.PlatformCredentials, error) {
	for _, p := range m.connected {
		if p == platform {
			return &domain.PlatformCredentials{Platform: platform}, nil
		}
	}
	return nil, domain.ErrNotConnected
}

func (m *mockResolver) Connected(context.Context, uuid.UUID) ([]domain.Platform, error) {
	return m.connected, m.err
}

// ---------------------------------------------------------------------------
// Poster mock
// ---------------------------------------------------------------------------

type mockPoster struct {
	mu    sync.Mutex
	calls []domain.Platform
	fn    func(ctx context.Context, userID uuid.UUID, platform domain.Platform, imageURL string, content *domain.PlatformContent) *domain.PostingResult
}

func (m *mockPoster) PostOne(ctx context.Context, userID uuid.UUID, platform domain.Platform, imageURL string, content *domain.PlatformContent) *domain.PostingResult {
	m.mu.Lock()
	m.calls = append(m.calls, platform)
	m.mu.Unlock()
	if m.fn == nil {
		return &domain.PostingResult{Platform: platform, Success: true, PostID: "post-" + string(platform)}
	}
	return m.fn(ctx, userID, platform, imageURL, content)
}

func (m *mockPoster) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// ---------------------------------------------------------------------------
// Store fakes: conversations, transcripts, pub/sub, notifier
// ---------------------------------------------------------------------------

type fakeConversations struct {
	mu        sync.Mutex
	ensured   int
	ensureErr error
}

func (f *fakeConversations) Ensure(_ context.Context, userID, id uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	f.ensured++
	return &domain.Conversation{ID: id, UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}, nil
}

func (f *fakeConversations) GetByID(context.Context, uuid.UUID, uuid.UUID) (*domain.Conversation, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeConversations) ListByUser(context.Context, uuid.UUID) ([]*domain.Conversation, error) {
	return nil, nil
}

func (f *fakeConversations) SetTopic(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

// fakeTranscripts reconciles appends the same way the store does:
// upsert by key, first insert fixes the position.
type fakeTranscripts struct {
	mu    sync.Mutex
	order []string
	byKey map[string]transcript.Record
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{byKey: make(map[string]transcript.Record)}
}

func (f *fakeTranscripts) Append(_ context.Context, _ uuid.UUID, rec transcript.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byKey[rec.Timestamp]; !ok {
		f.order = append(f.order, rec.Timestamp)
	}
	f.byKey[rec.Timestamp] = rec
	return nil
}

func (f *fakeTranscripts) ListByConversation(context.Context, uuid.UUID) ([]transcript.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transcript.Record, 0, len(f.order))
	for _, key := range f.order {
		out = append(out, f.byKey[key])
	}
	return out, nil
}

func (f *fakeTranscripts) CountByConversation(context.Context, uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.order)), nil
}

func (f *fakeTranscripts) records() []transcript.Record {
	out, _ := f.ListByConversation(context.Background(), uuid.Nil)
	return out
}

// fakePubSub records every published line in order.
type fakePubSub struct {
	mu    sync.Mutex
	lines [][]byte
}

func (f *fakePubSub) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, append([]byte(nil), payload...))
	return nil
}

func (f *fakePubSub) published() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.lines))
	copy(out, f.lines)
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	runs []*domain.PipelineRun
}

func (f *fakeNotifier) RunCompleted(_ context.Context, run *domain.PipelineRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
}

func (f *fakeNotifier) notified() []*domain.PipelineRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.PipelineRun, len(f.runs))
	copy(out, f.runs)
	return out
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

// fixture bundles an orchestrator with all collaborators mocked to a
// two-platform happy path; tests override the parts they exercise.
type fixture struct {
	analyzer     *mockAnalyzer
	strategist   *mockStrategist
	generator    *mockGenerator
	checker      *mockChecker
	resolver     *mockResolver
	poster       *mockPoster
	convos       *fakeConversations
	transcripts  *fakeTranscripts
	pubsub       *fakePubSub
	notifier     *fakeNotifier
	agentTimeout time.Duration
}

func newFixture() *fixture {
	return &fixture{
		agentTimeout: time.Second,
		analyzer: &mockAnalyzer{fn: func(context.Context, string, *domain.BusinessProfile) (*domain.ImageAnalysis, error) {
			return &domain.ImageAnalysis{Description: "a latte on a wooden table", Themes: []string{"coffee", "cozy"}}, nil
		}},
		strategist: &mockStrategist{fn: func(context.Context, *domain.ImageAnalysis, *domain.BusinessProfile) (*domain.PlatformStrategy, error) {
			return &domain.PlatformStrategy{
				Platforms: []domain.Platform{domain.PlatformFacebook, domain.PlatformInstagram},
				Reasoning: "visual product shot",
			}, nil
		}},
		generator: &mockGenerator{fn: func(_ context.Context, _ *domain.ImageAnalysis, strategy *domain.PlatformStrategy, _ *domain.BusinessProfile) (map[domain.Platform]*domain.PlatformContent, error) {
			out := make(map[domain.Platform]*domain.PlatformContent, len(strategy.Platforms))
			for _, p := range strategy.Platforms {
				out[p] = &domain.PlatformContent{Platform: p, Caption: "caption for " + string(p)}
			}
			return out, nil
		}},
		checker:     &mockChecker{},
		resolver:    &mockResolver{connected: []domain.Platform{domain.PlatformFacebook, domain.PlatformInstagram}},
		poster:      &mockPoster{},
		convos:      &fakeConversations{},
		transcripts: newFakeTranscripts(),
		pubsub:      &fakePubSub{},
		notifier:    &fakeNotifier{},
	}
}

func (f *fixture) orchestrator() *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		f.analyzer,
		f.strategist,
		f.generator,
		f.checker,
		f.resolver,
		f.poster,
		f.convos,
		f.transcripts,
		f.pubsub,
		f.notifier,
		f.agentTimeout,
	)
}

func publishRequest() *domain.PublishRequest {
	return &domain.PublishRequest{
		ConversationID: uuid.New(),
		UserID:         uuid.New(),
		ImageURL:       "https://cdn.example.com/latte.jpg",
		Business:       &domain.BusinessProfile{Name: "Corner Roasters"},
	}
}
