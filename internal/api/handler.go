package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/lintconf/internal/resolver"
	"github.com/eugenenazirov/lintconf/internal/ruleset"
	"github.com/eugenenazirov/lintconf/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// maxDocumentBytes bounds the size of configuration documents accepted over HTTP.
const maxDocumentBytes = 1 << 20

// Handler wires the resolver and preset storage into HTTP handlers.
type Handler struct {
	resolver resolver.Resolver
	storage  storage.Storage
	logger   *zap.Logger

	clock func() time.Time

	mu         sync.RWMutex
	presetsSet map[string]time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for preset updates.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(res resolver.Resolver, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: res,
		storage:  store,
		logger:   zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		presetsSet: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	start := time.Now()
	cfg, err := h.resolver.ResolveDocument(doc)
	elapsed := time.Since(start)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	resp := resolveResponse{
		Config:           cfg,
		ResolutionTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, presetListResponse{Presets: h.storage.Presets()})
}

func (h *Handler) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cfg, err := h.storage.LoadPreset(name)
	if err != nil {
		if errors.Is(err, storage.ErrPresetNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	resp := presetResponse{
		Name:      name,
		Config:    cfg,
		UpdatedAt: h.presetUpdatedAt(name),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Invalid preset", "preset name must not be empty")
		return
	}

	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	cfg, err := h.resolver.ResolveDocument(doc)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	if err := h.storage.SetPreset(name, cfg); err != nil {
		if errors.Is(err, storage.ErrInvalidPreset) {
			writeError(w, http.StatusBadRequest, "Invalid preset", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	updatedAt := h.markPresetUpdated(name)
	h.logger.Info("preset stored",
		zap.String("preset", name),
		zap.Int("rules", len(cfg.Rules)),
		zap.Strings("extends", doc.Extends),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	resp := presetResponse{
		Name:      name,
		Config:    cfg,
		UpdatedAt: updatedAt,
		Message:   "Preset stored successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) presetUpdatedAt(name string) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presetsSet[name]
}

func (h *Handler) markPresetUpdated(name string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.clock()
	h.presetsSet[name] = now
	return now
}

func readDocument(w http.ResponseWriter, r *http.Request) (ruleset.Document, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to read request body")
		return ruleset.Document{}, false
	}
	if len(body) > maxDocumentBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", fmt.Sprintf("document exceeds %d bytes", maxDocumentBytes))
		return ruleset.Document{}, false
	}

	doc, err := ruleset.ParseDocument(body)
	if err != nil {
		writeResolveError(w, err)
		return ruleset.Document{}, false
	}
	return doc, true
}

func writeResolveError(w http.ResponseWriter, err error) {
	var presetErr *resolver.UnresolvablePresetError
	switch {
	case errors.As(err, &presetErr):
		suggestion := fmt.Sprintf("Register preset %q via PUT /api/presets/%s or fix the reference", presetErr.Ref, presetErr.Ref)
		writeError(w, http.StatusUnprocessableEntity, "Unresolvable preset", err.Error(), suggestion)
	case errors.Is(err, ruleset.ErrInvalidSeverity):
		writeError(w, http.StatusBadRequest, "Invalid severity", err.Error(), "Use one of off, warn, error")
	case errors.Is(err, ruleset.ErrInvalidDocument):
		writeError(w, http.StatusBadRequest, "Invalid document", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type resolveResponse struct {
	Config           ruleset.EffectiveConfig `json:"config"`
	ResolutionTimeMs int64                   `json:"resolutionTimeMs"`
}

type presetListResponse struct {
	Presets []string `json:"presets"`
}

type presetResponse struct {
	Name      string                  `json:"name"`
	Config    ruleset.EffectiveConfig `json:"config"`
	UpdatedAt time.Time               `json:"updatedAt"`
	Message   string                  `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// writeJSON encodes payload fully before writing the status; an encoding
// failure is reported as a 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Internal error","details":"response could not be encoded"}`+"\n")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
