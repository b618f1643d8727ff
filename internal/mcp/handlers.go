// File: internal/mcp/handlers.go
package mcp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// maxBodySize bounds POST bodies on the HTTP transport.
const maxBodySize = 1 << 20

// Handlers serves the HTTP flavour of the tool API.
type Handlers struct {
	log        *zap.Logger
	dispatcher *Dispatcher
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, dispatcher *Dispatcher) *Handlers {
	return &Handlers{
		log:        logger.Named("mcp_handlers"),
		dispatcher: dispatcher,
	}
}

// RegisterRoutes mounts the health, metrics and /api/v1 routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)
	r.Method(http.MethodGet, "/metrics", h.dispatcher.Metrics().Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", h.HandleListTools)
		r.Post("/command", h.HandleCommand)
		r.Post("/tools/{name}", h.HandleToolCall)
	})
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleListTools returns every tool with its input schema.
func (h *Handlers) HandleListTools(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"tools": h.dispatcher.Tools()}); err != nil {
		h.log.Error("Failed to encode tool list", zap.Error(err))
	}
}

// HandleCommand runs {"tool": ..., "params": {...}}. Every known tool answers
// 200 with its outcome, whatever the outcome status.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	h.run(w, r, strings.TrimSpace(req.Tool), req.Params)
}

// HandleToolCall runs the tool named in the path with the body as arguments.
func (h *Handlers) HandleToolCall(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&params); err != nil {
			h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid arguments: %v", err))
			return
		}
	}
	h.run(w, r, chi.URLParam(r, "name"), params)
}

func (h *Handlers) run(w http.ResponseWriter, r *http.Request, tool string, params map[string]any) {
	if tool == "" {
		h.respondWithError(w, http.StatusBadRequest, "tool is required")
		return
	}
	if !h.dispatcher.Has(tool) {
		h.respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown tool: %s", tool))
		return
	}
	h.log.Info("Received command", zap.String("tool", tool))
	out := h.dispatcher.Call(r.Context(), tool, params)
	h.respondWithOutcome(w, out)
}

func (h *Handlers) respondWithOutcome(w http.ResponseWriter, out tools.Outcome) {
	h.respond(w, http.StatusOK, CommandResponse{Status: "ok", Data: &out})
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, CommandResponse{Status: "error", Error: message})
}

func (h *Handlers) respond(w http.ResponseWriter, statusCode int, resp CommandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
