// Package mediator gates, deduplicates and classifies completion requests
// for the presentation layer.
//
// A submission moves through Validating to one of three ends: a local
// warning, a cache hit, or a client call whose outcome is cached and
// returned. Every path produces a domain.PresentationOutcome; Submit never
// returns an error and never panics on provider failures.
package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tjfontaine/tutorai/internal/cache"
	"github.com/tjfontaine/tutorai/internal/domain"
)

const (
	// DefaultMinTokens and DefaultMaxTokens bound max_tokens unless WithTokenRange overrides them.
	DefaultMinTokens = 50
	DefaultMaxTokens = 500
)

// Option configures a Mediator.
type Option func(*Mediator)

// WithTokenRange sets the accepted max_tokens range, inclusive.
func WithTokenRange(min, max int) Option {
	return func(m *Mediator) {
		m.minTokens = min
		m.maxTokens = max
	}
}

// WithPromptBudget rejects prompts whose estimated token count exceeds limit.
// A limit of zero disables the check.
func WithPromptBudget(counter domain.TokenCounter, limit int) Option {
	return func(m *Mediator) {
		m.counter = counter
		m.maxPromptTokens = limit
	}
}

// WithCoalescing collapses concurrent identical cache misses into one client call.
func WithCoalescing(enabled bool) Option {
	return func(m *Mediator) {
		m.coalesce = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mediator) {
		m.logger = logger
	}
}

// Stats reports mediator activity.
type Stats struct {
	Submissions int64       `json:"submissions"`
	Warnings    int64       `json:"warnings"`
	ClientCalls int64       `json:"client_calls"`
	Cache       cache.Stats `json:"cache"`
}

// Mediator owns the outcome cache and invokes the completion client on misses.
// It is safe for concurrent use.
type Mediator struct {
	client domain.Completer
	cache  *cache.Cache

	minTokens       int
	maxTokens       int
	counter         domain.TokenCounter
	maxPromptTokens int
	coalesce        bool

	group  singleflight.Group
	logger *slog.Logger
	tracer trace.Tracer

	submissions atomic.Int64
	warnings    atomic.Int64
	clientCalls atomic.Int64
}

// New creates a mediator around client and c. The mediator assumes exclusive
// ownership of c.
func New(client domain.Completer, c *cache.Cache, opts ...Option) *Mediator {
	m := &Mediator{
		client:    client,
		cache:     c,
		minTokens: DefaultMinTokens,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/tjfontaine/tutorai/internal/mediator"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready reports a configuration error when the client cannot be used.
func (m *Mediator) Ready() error {
	if rc, ok := m.client.(domain.ReadinessChecker); ok {
		return rc.Ready()
	}
	return nil
}

// TokenRange returns the accepted max_tokens bounds.
func (m *Mediator) TokenRange() (min, max int) {
	return m.minTokens, m.maxTokens
}

// Submit handles one user-initiated trigger.
func (m *Mediator) Submit(ctx context.Context, model, rawInputText string, maxTokens int) domain.PresentationOutcome {
	m.submissions.Add(1)

	ctx, span := m.tracer.Start(ctx, "mediator.submit",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.max_tokens", maxTokens),
		),
	)
	defer span.End()

	if err := m.Ready(); err != nil {
		span.SetAttributes(attribute.String("mediator.result", string(domain.PresentationConfigurationError)))
		return domain.ConfigurationError(domain.Describe(err))
	}

	text := strings.TrimSpace(rawInputText)
	if msg := m.validate(model, text, maxTokens); msg != "" {
		m.warnings.Add(1)
		span.SetAttributes(attribute.String("mediator.result", string(domain.PresentationValidationWarning)))
		m.logger.Debug("submission rejected", slog.String("reason", msg))
		return domain.ValidationWarning(msg)
	}

	req := domain.NewCompletionRequest(model, []domain.ChatMessage{domain.UserMessage(text)}, maxTokens)

	if outcome, ok := m.cache.Get(ctx, req); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		m.logger.Debug("cache hit", slog.String("model", model), slog.String("outcome", string(outcome.Kind)))
		result := domain.Present(outcome)
		result.Cached = true
		return result
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	outcome, shared := m.invoke(ctx, req)
	span.SetAttributes(attribute.String("mediator.result", string(outcome.Kind)))

	result := domain.Present(outcome)
	result.Cached = shared
	return result
}

// invoke calls the client on a miss and stores the outcome. shared is true
// when the outcome came from another caller's in-flight or just-finished call.
//
// A coalesced call runs detached from any one caller's cancellation, bounded
// only by the client's own timeout, so a caller that leaves early neither
// fails the callers still waiting nor aborts the call they share.
func (m *Mediator) invoke(ctx context.Context, req *domain.CompletionRequest) (domain.CompletionOutcome, bool) {
	if !m.coalesce {
		return m.call(ctx, req), false
	}

	key := m.cache.Key(ctx, req)
	detached := context.WithoutCancel(ctx)
	// ran is only set when this caller's closure is the one executed.
	var ran, reused atomic.Bool
	ch := m.group.DoChan(key, func() (any, error) {
		ran.Store(true)
		// A call for this key may have finished between Get and DoChan.
		if outcome, ok := m.cache.Peek(detached, req); ok {
			reused.Store(true)
			return outcome, nil
		}
		return m.call(detached, req), nil
	})

	select {
	case res := <-ch:
		return res.Val.(domain.CompletionOutcome), !ran.Load() || reused.Load()
	case <-ctx.Done():
		return canceled(ctx), false
	}
}

func (m *Mediator) call(ctx context.Context, req *domain.CompletionRequest) domain.CompletionOutcome {
	m.clientCalls.Add(1)
	outcome := m.client.Complete(ctx, req)

	if err := ctx.Err(); err != nil {
		// The caller gave up; whatever came back says nothing about the provider.
		m.logger.Debug("outcome not cached, caller context ended",
			slog.String("model", req.Model),
			slog.String("error", err.Error()),
		)
		if outcome.Kind == domain.OutcomeFailure {
			return canceled(ctx)
		}
		return outcome
	}

	stored := m.cache.Put(ctx, req, outcome)
	if outcome.Kind == domain.OutcomeFailure {
		m.logger.Warn("completion failure",
			slog.String("model", req.Model),
			slog.String("message", outcome.Message),
			slog.Bool("cached", stored),
		)
	}
	return outcome
}

// canceled is the outcome for a caller whose context ended before an answer.
func canceled(ctx context.Context) domain.CompletionOutcome {
	return domain.Failure(domain.Describe(domain.ErrCanceled(ctx.Err())))
}

// validate returns a warning message, or "" when the submission may proceed.
func (m *Mediator) validate(model, text string, maxTokens int) string {
	if text == "" {
		return domain.EmptyInputText
	}
	if strings.TrimSpace(model) == "" {
		return "Please select a model."
	}
	if maxTokens < m.minTokens || maxTokens > m.maxTokens {
		return fmt.Sprintf("Max tokens must be between %d and %d.", m.minTokens, m.maxTokens)
	}

	if m.maxPromptTokens > 0 && m.counter != nil {
		n, err := m.counter.CountText(model, text)
		if err != nil {
			m.logger.Warn("prompt token count failed", slog.String("error", err.Error()))
			return ""
		}
		if n > m.maxPromptTokens {
			return fmt.Sprintf("Your query is too long (about %d tokens, limit %d).", n, m.maxPromptTokens)
		}
	}
	return ""
}

// Stats returns a snapshot of mediator and cache activity.
func (m *Mediator) Stats() Stats {
	return Stats{
		Submissions: m.submissions.Load(),
		Warnings:    m.warnings.Load(),
		ClientCalls: m.clientCalls.Load(),
		Cache:       m.cache.Stats(),
	}
}
