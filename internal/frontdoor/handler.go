package frontdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tjfontaine/tutorai/internal/catalog"
	"github.com/tjfontaine/tutorai/internal/domain"
	"github.com/tjfontaine/tutorai/internal/mediator"
	"github.com/tjfontaine/tutorai/internal/server"
)

// maxBodyBytes bounds submit request bodies.
const maxBodyBytes = 1 << 20

// Mediator is the subset of *mediator.Mediator the handlers use.
type Mediator interface {
	Submit(ctx context.Context, model, rawInputText string, maxTokens int) domain.PresentationOutcome
	Ready() error
	TokenRange() (min, max int)
	Stats() mediator.Stats
}

type Handler struct {
	mediator      Mediator
	catalog       *catalog.Catalog
	defaultTokens int
	logger        *slog.Logger
}

func NewHandler(m Mediator, c *catalog.Catalog, defaultTokens int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mediator:      m,
		catalog:       c,
		defaultTokens: defaultTokens,
		logger:        logger,
	}
}

// Registrations lists the adapter's routes.
func (h *Handler) Registrations() []HandlerRegistration {
	return []HandlerRegistration{
		{Path: "/v1/submit", Method: http.MethodPost, Handler: h.HandleSubmit},
		{Path: "/v1/models", Method: http.MethodGet, Handler: h.HandleListModels},
		{Path: "/v1/stats", Method: http.MethodGet, Handler: h.HandleStats},
		{Path: "/healthz", Method: http.MethodGet, Handler: h.HandleHealth},
	}
}

// SubmitRequest is the body of POST /v1/submit. Model may be a catalog
// display name or a provider model id; empty selects the catalog default.
type SubmitRequest struct {
	Model     string `json:"model"`
	Text      string `json:"text"`
	MaxTokens *int   `json:"max_tokens,omitempty"`
}

// TokenRange describes the accepted max_tokens values.
type TokenRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

type ModelList struct {
	Models       []domain.Model `json:"models"`
	DefaultModel string         `json:"default_model"`
	Tokens       TokenRange     `json:"tokens"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("request_id", server.GetRequestID(r.Context())))

	var req SubmitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		err = fmt.Errorf("invalid request body: %w", err)
		logger.Debug("failed to decode submit request", slog.String("error", err.Error()))
		server.AddError(r.Context(), err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	model := req.Model
	if model == "" {
		model = h.catalog.Default()
	}
	model = h.catalog.Resolve(model)

	maxTokens := h.defaultTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	server.AddLogField(r.Context(), "model", model)
	server.AddLogField(r.Context(), "max_tokens", strconv.Itoa(maxTokens))

	outcome := h.mediator.Submit(r.Context(), model, req.Text, maxTokens)

	server.AddLogField(r.Context(), "outcome", string(outcome.Kind))
	server.AddLogField(r.Context(), "cached", strconv.FormatBool(outcome.Cached))

	status := http.StatusOK
	switch outcome.Kind {
	case domain.PresentationConfigurationError:
		status = http.StatusServiceUnavailable
		server.AddError(r.Context(), errors.New(outcome.Message))
	case domain.PresentationError:
		server.AddError(r.Context(), errors.New(outcome.Message))
	}
	writeJSON(w, status, outcome)
}

func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	lo, hi := h.mediator.TokenRange()
	writeJSON(w, http.StatusOK, ModelList{
		Models:       h.catalog.Models(),
		DefaultModel: h.catalog.Default(),
		Tokens:       TokenRange{Min: lo, Max: hi, Default: h.defaultTokens},
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mediator.Stats())
}

// HandleHealth reports liveness. A missing credential does not fail the
// check; it is surfaced as ready=false with the configuration message.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "ready": true}
	if err := h.mediator.Ready(); err != nil {
		body["ready"] = false
		body["message"] = domain.Describe(err)
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
