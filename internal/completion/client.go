// Package completion performs single chat completion round trips and
// normalizes every result, including failures, into a domain.CompletionOutcome.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	openaiapi "github.com/tjfontaine/tutorai/internal/api/openai"
	"github.com/tjfontaine/tutorai/internal/domain"
)

// DefaultTimeout bounds a provider call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-call deadline. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client implements domain.Completer against an OpenAI-compatible endpoint.
type Client struct {
	api        *openaiapi.Client
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

var (
	_ domain.Completer        = (*Client)(nil)
	_ domain.ReadinessChecker = (*Client)(nil)
)

// New creates a client. An empty apiKey yields a client that reports a
// configuration error from Ready and never touches the network.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/tjfontaine/tutorai/internal/completion"),
	}

	for _, opt := range opts {
		opt(c)
	}

	var clientOpts []openaiapi.ClientOption
	if c.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(c.httpClient))
	}

	c.api = openaiapi.NewClient(c.apiKey, clientOpts...)
	return c
}

// Ready reports whether a credential is configured.
func (c *Client) Ready() error {
	if c.apiKey == "" {
		return domain.ErrConfiguration()
	}
	return nil
}

// Complete sends exactly one request and maps the result:
// non-empty content is Success, no content is Empty, any error is Failure.
func (c *Client) Complete(ctx context.Context, req *domain.CompletionRequest) domain.CompletionOutcome {
	if err := c.Ready(); err != nil {
		c.logger.Error("completion refused", slog.String("error", err.Error()))
		return domain.Failure(domain.Describe(err))
	}

	ctx, span := c.tracer.Start(ctx, "completion.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.max_tokens", req.MaxTokens),
			attribute.Int("llm.messages", len(req.Messages)),
		),
	)
	defer span.End()

	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, toAPIRequest(req))
	duration := time.Since(start)

	if err != nil {
		err = classify(parent, ctx, err, c.timeout)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("llm.outcome", string(domain.OutcomeFailure)))
		c.logger.Warn("completion failed",
			slog.String("model", req.Model),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return domain.Failure(domain.Describe(err))
	}

	outcome := toOutcome(resp)
	span.SetAttributes(
		attribute.String("llm.outcome", string(outcome.Kind)),
		attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
	)
	c.logger.Info("completion finished",
		slog.String("model", req.Model),
		slog.String("outcome", string(outcome.Kind)),
		slog.Duration("duration", duration),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return outcome
}

// toAPIRequest converts a domain request to the wire request.
func toAPIRequest(req *domain.CompletionRequest) *openaiapi.ChatCompletionRequest {
	messages := make([]openaiapi.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openaiapi.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	return &openaiapi.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
}

func toOutcome(resp *openaiapi.ChatCompletionResponse) domain.CompletionOutcome {
	if text := resp.FirstContent(); text != "" {
		return domain.Success(text)
	}
	return domain.Empty()
}

// classify turns transport-level errors into categorized domain errors.
// Errors already classified by the wire client pass through. parent is the
// caller's context and ctx the one bounded by the client timeout; only an
// expiry of ctx alone is reported as a timeout.
func classify(parent, ctx context.Context, err error, timeout time.Duration) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if parentErr := parent.Err(); parentErr != nil {
		return domain.ErrCanceled(parentErr).WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg := "request timed out"
		if timeout > 0 {
			msg = fmt.Sprintf("request timed out after %s", timeout)
		}
		return domain.ErrTimeout(msg).WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrTransport("request canceled").WithCause(err)
	}
	return domain.ErrTransport(err.Error()).WithCause(err)
}
