package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postpilothq/postpilot/internal/agents"
	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/transcript"
)

// ErrNoPlatforms is returned when neither the strategy nor the connected-platform fallback yields a target.
var ErrNoPlatforms = errors.New("pipeline: no platforms connected") //nolint:gochecknoglobals // sentinel error

// PubSubPublisher abstracts the Redis pub/sub publish operation.
type PubSubPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Poster publishes one platform post. Implementations encode failures in
// the result and never return an error.
type Poster interface {
	PostOne(ctx context.Context, userID uuid.UUID, platform domain.Platform, imageURL string, content *domain.PlatformContent) *domain.PostingResult
}

// Notifier is told about every terminal run.
type Notifier interface {
	RunCompleted(ctx context.Context, run *domain.PipelineRun)
}

// Output bundles the terminal run with the transcript slice appended
// during it, already reconciled by timestamp key.
type Output struct {
	Run     *domain.PipelineRun `json:"run"`
	Entries []transcript.Record `json:"entries"`
}

// Orchestrator drives one publish request through the staged pipeline:
// image analysis -> platform strategy -> content generation -> posting.
// Failures before posting abort the run; posting failures stay scoped to
// their platform. Every stage completion lands in the conversation
// transcript, and each run closes with exactly one terminal record.
type Orchestrator struct {
	analyzer      agents.ImageAnalyzer
	strategist    agents.PlatformStrategist
	generator     agents.ContentGenerator
	checker       ReachabilityChecker
	resolver      domain.CredentialResolver
	poster        Poster
	conversations domain.ConversationRepository
	entries       domain.TranscriptRepository
	pubsub        PubSubPublisher
	notifier      Notifier
	keys          *transcript.KeyAllocator
	agentTimeout  time.Duration
}

func NewOrchestrator(
	analyzer agents.ImageAnalyzer,
	strategist agents.PlatformStrategist,
	generator agents.ContentGenerator,
	checker ReachabilityChecker,
	resolver domain.CredentialResolver,
	poster Poster,
	conversations domain.ConversationRepository,
	entries domain.TranscriptRepository,
	pubsub PubSubPublisher,
	notifier Notifier,
	agentTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		analyzer:      analyzer,
		strategist:    strategist,
		generator:     generator,
		checker:       checker,
		resolver:      resolver,
		poster:        poster,
		conversations: conversations,
		entries:       entries,
		pubsub:        pubsub,
		notifier:      notifier,
		keys:          transcript.NewKeyAllocator(),
		agentTimeout:  agentTimeout,
	}
}

// Run executes one publish request to its terminal state and returns the
// run plus the transcript records it appended. Callers must pass a
// context detached from the originating request: a disconnected client
// never aborts a run in flight. A non-nil error means infrastructure
// failure before the run could start; a failed run is a regular Output.
func (o *Orchestrator) Run(ctx context.Context, req *domain.PublishRequest) (*Output, error) {
	now := time.Now()
	run := &domain.PipelineRun{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		ImageURL:       req.ImageURL,
		Status:         domain.RunRunning,
		Stage:          domain.StageReceived,
		StartedAt:      now,
	}
	rv := newRunView()

	// 1. Materialize the conversation and record the user intent. If the
	// store cannot take the first record there is no run to speak of.
	if _, err := o.conversations.Ensure(ctx, req.UserID, req.ConversationID); err != nil {
		return nil, fmt.Errorf("pipeline.Orchestrator.Run: ensure conversation: %w", err)
	}
	userRec := transcript.Record{
		Role:      transcript.RoleUser,
		Content:   "Publish this image:\n" + req.ImageURL,
		Timestamp: o.keys.Next(),
	}
	if err := o.entries.Append(ctx, req.ConversationID, userRec); err != nil {
		return nil, fmt.Errorf("pipeline.Orchestrator.Run: append user record: %w", err)
	}
	rv.apply(userRec)
	o.publish(ctx, req.ConversationID, userRec)

	// 2. Reachability gate before any model spend. Unreachable is fatal:
	// no retries, no agent calls, no posting calls.
	if err := o.checker.CheckImage(ctx, req.ImageURL); err != nil {
		o.failRun(ctx, run, rv, "image validation failed: "+err.Error())
		return &Output{Run: run, Entries: rv.records()}, nil
	}

	// 3. Image analysis.
	run.Stage = domain.StageAnalyzing
	key := o.keys.Next()
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Analyzing image..."))

	var analysis *domain.ImageAnalysis
	err := o.runStage(ctx, "analyze_image", func(ctx context.Context) error {
		a, err := o.analyzer.AnalyzeImage(ctx, req.ImageURL, req.Business)
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err != nil {
		o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Image analysis failed: "+err.Error()))
		o.failRun(ctx, run, rv, "image analysis failed: "+err.Error())
		return &Output{Run: run, Entries: rv.records()}, nil
	}
	run.Analysis = analysis
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, summarizeAnalysis(analysis)))

	// 4. Platform strategy. An empty platform set is not success with
	// nothing to post: fall back to every platform the user connected.
	run.Stage = domain.StageStrategizing
	key = o.keys.Next()
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Choosing platforms..."))

	var strategy *domain.PlatformStrategy
	err = o.runStage(ctx, "plan_platforms", func(ctx context.Context) error {
		s, err := o.strategist.PlanPlatforms(ctx, analysis, req.Business)
		if err != nil {
			return err
		}
		strategy = s
		return nil
	})
	fellBack := false
	if err == nil && len(strategy.Platforms) == 0 {
		fellBack = true
		var connected []domain.Platform
		connected, err = o.resolver.Connected(ctx, req.UserID)
		if err == nil && len(connected) == 0 {
			err = domain.Permanent(ErrNoPlatforms)
		}
		if err == nil {
			strategy.Platforms = connected
		}
	}
	if err != nil {
		o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Platform strategy failed: "+err.Error()))
		o.failRun(ctx, run, rv, "platform strategy failed: "+err.Error())
		return &Output{Run: run, Entries: rv.records()}, nil
	}
	run.Strategy = strategy
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, summarizeStrategy(strategy, fellBack)))

	// 5. Content generation. Truncation to platform limits happens in the
	// generator; by the time this stage completes every selected platform
	// has postable content.
	run.Stage = domain.StageGenerating
	key = o.keys.Next()
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Generating content..."))

	var content map[domain.Platform]*domain.PlatformContent
	err = o.runStage(ctx, "generate_content", func(ctx context.Context) error {
		c, err := o.generator.GenerateContent(ctx, analysis, strategy, req.Business)
		if err != nil {
			return err
		}
		content = c
		return nil
	})
	if err != nil {
		o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, "Content generation failed: "+err.Error()))
		o.failRun(ctx, run, rv, "content generation failed: "+err.Error())
		return &Output{Run: run, Entries: rv.records()}, nil
	}
	run.Content = content
	o.emit(ctx, run.ConversationID, rv, agentRec(key, run.Stage, summarizeContent(content)))

	// 6. Posting: one goroutine per platform, failures stay platform-
	// scoped. Each result is recorded the moment its platform finishes,
	// so a slow platform never delays the others' transcript records.
	run.Stage = domain.StagePosting
	results := make(map[domain.Platform]*domain.PostingResult, len(strategy.Platforms))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, platform := range strategy.Platforms {
		wg.Go(func() {
			res := o.poster.PostOne(ctx, req.UserID, platform, req.ImageURL, content[platform])
			mu.Lock()
			results[platform] = res
			mu.Unlock()
			o.emit(ctx, run.ConversationID, rv, agentRec(o.keys.Next(), domain.StagePosting, summarizeResult(res)))
		})
	}
	wg.Wait()

	// 7. Barrier resolved: compute the terminal status and close the run
	// with its single terminal record.
	run.Results = results
	run.Status = domain.ResolveStatus(results)
	completed := time.Now()
	run.CompletedAt = &completed
	o.emit(ctx, run.ConversationID, rv, agentRec(o.keys.Next(), domain.StagePosting, summarizeTerminal(run)))
	o.notify(ctx, run)

	log.Info().
		Str("run_id", run.ID.String()).
		Str("conversation_id", run.ConversationID.String()).
		Str("status", string(run.Status)).
		Msg("pipeline.Orchestrator.Run: run finished")

	return &Output{Run: run, Entries: rv.records()}, nil
}

// runStage applies the per-attempt timeout and the shared retry budget
// to one sub-agent call. A timeout classifies as transient.
func (o *Orchestrator) runStage(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return withRetry(ctx, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.agentTimeout)
		defer cancel()
		return fn(ctx)
	})
}

// failRun marks the run failed and emits its terminal record.
func (o *Orchestrator) failRun(ctx context.Context, run *domain.PipelineRun, rv *runView, msg string) {
	run.Status = domain.RunFailed
	run.Error = msg
	completed := time.Now()
	run.CompletedAt = &completed

	o.emit(ctx, run.ConversationID, rv, agentRec(o.keys.Next(), run.Stage, summarizeTerminal(run)))
	o.notify(ctx, run)

	log.Error().
		Str("run_id", run.ID.String()).
		Str("stage", string(run.Stage)).
		Str("error", msg).
		Msg("pipeline.Orchestrator: run failed")
}

// emit records rec durably and fans it out to live subscribers. After the
// run has started, a store failure is logged rather than fatal: the
// in-memory view still carries the record, so the caller's transcript
// slice stays complete.
func (o *Orchestrator) emit(ctx context.Context, conversationID uuid.UUID, rv *runView, rec transcript.Record) {
	rv.apply(rec)
	if err := o.entries.Append(ctx, conversationID, rec); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("pipeline.emit: failed to append transcript record")
	}
	o.publish(ctx, conversationID, rec)
}

func (o *Orchestrator) publish(ctx context.Context, conversationID uuid.UUID, rec transcript.Record) {
	line, err := transcript.EncodeLine(rec)
	if err != nil {
		return
	}
	channel := "conversation:" + conversationID.String()
	if err := o.pubsub.Publish(ctx, channel, line); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("pipeline.publish: failed to publish record")
	}
}

func (o *Orchestrator) notify(ctx context.Context, run *domain.PipelineRun) {
	if o.notifier == nil {
		return
	}
	o.notifier.RunCompleted(ctx, run)
}

func agentRec(key string, stage domain.Stage, content string) transcript.Record {
	return transcript.Record{
		Role:      transcript.RoleAgent,
		Content:   content,
		Timestamp: key,
		Stage:     string(stage),
	}
}

// runView is the run-local reconciled transcript. Posting goroutines
// emit concurrently, so applies are serialized here.
type runView struct {
	mu   sync.Mutex
	view *transcript.View
}

func newRunView() *runView {
	return &runView{view: transcript.NewView()}
}

func (rv *runView) apply(rec transcript.Record) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	if _, err := rv.view.Apply(rec); err != nil {
		log.Error().Err(err).Msg("pipeline.runView: dropped invalid record")
	}
}

func (rv *runView) records() []transcript.Record {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.view.Records()
}
