package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/eventbus"
)

// newToolRouter mounts a ToolHandler the way routes.go does, so URL params
// resolve through chi.
func newToolRouter(t *testing.T) (*registry.Registry, *chi.Mux) {
	t.Helper()
	reg := registry.New(eventbus.New(), 0)
	h := NewToolHandler(reg)

	r := chi.NewRouter()
	r.Get("/tools/", h.ListTools)
	r.Post("/tools/register", h.RegisterTool)
	r.Delete("/tools/unregister/{name}", h.UnregisterTool)
	return reg, r
}

func registerStaticEcho(t *testing.T, reg *registry.Registry) {
	t.Helper()
	err := reg.Register(registry.Descriptor{
		Name:        "echo",
		Description: "Echo back the input",
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		}),
	}, registry.OriginStatic)
	if err != nil {
		t.Fatalf("register static echo: %v", err)
	}
}

func postRegister(t *testing.T, router http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/tools/register", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterTool_Success(t *testing.T) {
	t.Parallel()
	reg, router := newToolRouter(t)

	rr := postRegister(t, router, map[string]any{
		"name":         "get_weather",
		"description":  "Fetch current weather",
		"endpoint_url": "https://api.example.com/weather",
		"tags":         []string{"weather"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Tool    struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Method string `json:"method"`
		} `json:"tool"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q; want success", resp.Status)
	}
	if resp.Tool.ID == "" {
		t.Error("tool id is empty; want generated id")
	}
	if resp.Tool.Method != http.MethodGet {
		t.Errorf("method = %q; want GET default", resp.Tool.Method)
	}

	summary, err := reg.Lookup("get_weather")
	if err != nil {
		t.Fatalf("tool not in registry after register: %v", err)
	}
	if summary.Invocation.Kind != registry.KindRemote {
		t.Errorf("invocation kind = %v; want remote", summary.Invocation.Kind)
	}
}

func TestRegisterTool_Duplicate(t *testing.T) {
	t.Parallel()
	_, router := newToolRouter(t)

	body := map[string]any{
		"name":         "get_weather",
		"description":  "Fetch current weather",
		"endpoint_url": "https://api.example.com/weather",
	}
	if rr := postRegister(t, router, body); rr.Code != http.StatusOK {
		t.Fatalf("first register status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := postRegister(t, router, body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status=%d want=400 body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp["error"] != "Tool 'get_weather' already exists" {
		t.Errorf("error = %q; want already-exists message", resp["error"])
	}
}

func TestRegisterTool_Validation(t *testing.T) {
	t.Parallel()
	_, router := newToolRouter(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing endpoint", map[string]any{"name": "x", "description": "d"}},
		{"missing name", map[string]any{"description": "d", "endpoint_url": "https://e"}},
		{"missing description", map[string]any{"name": "x", "endpoint_url": "https://e"}},
		{"unsupported method", map[string]any{"name": "x", "description": "d", "endpoint_url": "https://e", "http_method": "PATCH"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rr := postRegister(t, router, tc.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status=%d want=400 body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUnregisterTool_External(t *testing.T) {
	t.Parallel()
	reg, router := newToolRouter(t)

	postRegister(t, router, map[string]any{
		"name":         "temp_tool",
		"description":  "Temporary",
		"endpoint_url": "https://api.example.com/x",
	})

	req := httptest.NewRequest(http.MethodDelete, "/tools/unregister/temp_tool", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rr.Code, rr.Body.String())
	}
	if _, err := reg.Lookup("temp_tool"); err == nil {
		t.Error("tool still in registry after unregister")
	}
}

func TestUnregisterTool_NotFound(t *testing.T) {
	t.Parallel()
	reg, router := newToolRouter(t)
	registerStaticEcho(t, reg)

	for _, name := range []string{"echo", "never_registered"} {
		req := httptest.NewRequest(http.MethodDelete, "/tools/unregister/"+name, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("unregister %q status=%d want=404 body=%s", name, rr.Code, rr.Body.String())
			continue
		}
		var resp map[string]string
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		want := "Tool '" + name + "' is not a runtime-registered external tool"
		if resp["error"] != want {
			t.Errorf("error = %q; want %q", resp["error"], want)
		}
	}
}

func TestListTools_SplitsByOrigin(t *testing.T) {
	t.Parallel()
	reg, router := newToolRouter(t)
	registerStaticEcho(t, reg)
	postRegister(t, router, map[string]any{
		"name":         "get_weather",
		"description":  "Fetch current weather",
		"endpoint_url": "https://api.example.com/weather",
	})

	req := httptest.NewRequest(http.MethodGet, "/tools/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rr.Code, rr.Body.String())
	}

	var resp ListToolsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalTools != 2 {
		t.Errorf("total_tools = %d; want 2", resp.TotalTools)
	}
	if len(resp.Tools) != 2 || resp.Tools[0] != "echo" || resp.Tools[1] != "get_weather" {
		t.Errorf("tools = %v; want [echo get_weather] in registration order", resp.Tools)
	}
	if len(resp.ExternalTools) != 1 || resp.ExternalTools[0] != "get_weather" {
		t.Errorf("external_tools = %v; want [get_weather]", resp.ExternalTools)
	}
}
