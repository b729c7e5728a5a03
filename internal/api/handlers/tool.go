// HTTP handlers for runtime tool registration and listing.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/pkg/uuid"
)

// ToolHandler handles the admin surface for runtime-registered tools.
type ToolHandler struct {
	registry *registry.Registry

	mu       sync.Mutex
	external map[string]externalRecord
}

// externalRecord captures the original registration request for
// introspection. The registry itself remains the source of truth for
// membership.
type externalRecord struct {
	ID           string
	Config       RegisterToolRequest
	RegisteredAt time.Time
}

// NewToolHandler creates a new ToolHandler instance.
func NewToolHandler(reg *registry.Registry) *ToolHandler {
	return &ToolHandler{
		registry: reg,
		external: make(map[string]externalRecord),
	}
}

// RegisterToolRequest is the request body for POST /tools/register.
type RegisterToolRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	EndpointURL string   `json:"endpoint_url"`
	HTTPMethod  string   `json:"http_method,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// registeredTool describes a tool in register/list responses.
type registeredTool struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Endpoint    string   `json:"endpoint,omitempty"`
	Method      string   `json:"method,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListToolsResponse is the response body for GET /tools/.
type ListToolsResponse struct {
	TotalTools    int      `json:"total_tools"`
	Tools         []string `json:"tools"`
	ExternalTools []string `json:"external_tools"`
}

// RegisterTool handles POST /tools/register
func (h *ToolHandler) RegisterTool(w http.ResponseWriter, r *http.Request) {
	var req RegisterToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HTTPMethod == "" {
		req.HTTPMethod = http.MethodGet
	}

	desc := registry.Descriptor{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Tags:        req.Tags,
		Invocation:  registry.RemoteInvocation(req.EndpointURL, req.HTTPMethod),
	}

	err := h.registry.Register(desc, registry.OriginExternal)
	if errors.Is(err, registry.ErrToolConflict) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Tool '%s' already exists", desc.Name))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record := externalRecord{
		ID:           uuid.NewV7().String(),
		Config:       req,
		RegisteredAt: time.Now().UTC(),
	}
	h.mu.Lock()
	h.external[desc.Name] = record
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Tool '%s' registered successfully", desc.Name),
		"tool": registeredTool{
			ID:          record.ID,
			Name:        desc.Name,
			Description: desc.Description,
			Endpoint:    desc.Invocation.Remote.Endpoint,
			Method:      desc.Invocation.Remote.Method,
			Tags:        req.Tags,
		},
	})
}

// UnregisterTool handles DELETE /tools/unregister/{name}
func (h *ToolHandler) UnregisterTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	err := h.registry.Unregister(name)
	if errors.Is(err, registry.ErrToolNotFound) {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("Tool '%s' is not a runtime-registered external tool", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unregister tool")
		return
	}

	h.mu.Lock()
	delete(h.external, name)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Tool '%s' unregistered successfully", name),
	})
}

// ListTools handles GET /tools/
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List()

	names := make([]string, 0, len(summaries))
	external := make([]string, 0)
	for _, s := range summaries {
		names = append(names, s.Name)
		if s.Origin == registry.OriginExternal {
			external = append(external, s.Name)
		}
	}

	writeJSON(w, http.StatusOK, ListToolsResponse{
		TotalTools:    len(names),
		Tools:         names,
		ExternalTools: external,
	})
}
