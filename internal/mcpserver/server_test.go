package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/dynmcp/internal/domain/inventory"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/eventbus"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/sqlite"
)

// newConnectedBridge wires a bridge over a fully populated registry and
// returns the registry plus a live client session on in-memory transports.
func newConnectedBridge(t *testing.T) (*registry.Registry, *mcp.ClientSession) {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("sqlite.NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	bus := eventbus.New()
	reg := registry.New(bus, 0)
	if err := RegisterStatic(reg, inventory.NewService(db)); err != nil {
		t.Fatalf("RegisterStatic: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bridge := New(reg, zerolog.Nop())
	bridge.Start(ctx, bus)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := bridge.Connect(ctx, serverTransport); err != nil {
		t.Fatalf("bridge.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return reg, session
}

func listToolNames(t *testing.T, session *mcp.ClientSession) []string {
	t.Helper()
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

// waitForToolCount polls ListTools until the tool count matches or the
// deadline passes. Registry mutations reach the MCP server asynchronously
// through the event bus.
func waitForToolCount(t *testing.T, session *mcp.ClientSession, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(listToolNames(t, session)) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("tool count never reached %d; last seen %d", want, len(listToolNames(t, session)))
}

func TestBridge_ListsStaticTools(t *testing.T) {
	t.Parallel()
	_, session := newConnectedBridge(t)

	names := listToolNames(t, session)
	if len(names) != len(staticToolNames) {
		t.Fatalf("ListTools returned %d tools; want %d: %v", len(names), len(staticToolNames), names)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range staticToolNames {
		if !seen[want] {
			t.Errorf("tool %q missing from ListTools", want)
		}
	}
}

func TestBridge_CallEcho(t *testing.T) {
	t.Parallel()
	_, session := newConnectedBridge(t)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"message": "round trip"},
	})
	if err != nil {
		t.Fatalf("CallTool(echo): %v", err)
	}
	if res.IsError {
		t.Fatalf("echo returned IsError: %v", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] = %T; want *mcp.TextContent", res.Content[0])
	}
	if !strings.Contains(text.Text, "round trip") {
		t.Errorf("echo text = %q; want it to contain the message", text.Text)
	}
}

func TestBridge_CallErrorSurfacesAsToolError(t *testing.T) {
	t.Parallel()
	_, session := newConnectedBridge(t)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "calculate",
		Arguments: map[string]any{"operation": "divide", "a": 1, "b": 0},
	})
	if err != nil {
		t.Fatalf("CallTool(calculate): %v", err)
	}
	if !res.IsError {
		t.Fatal("divide by zero did not set IsError")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, "divide by zero") {
		t.Errorf("error content = %v; want divide-by-zero message", res.Content)
	}
}

func TestBridge_RuntimeRegistrationReachesClient(t *testing.T) {
	t.Parallel()
	reg, session := newConnectedBridge(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	}))
	t.Cleanup(backend.Close)

	err := reg.Register(registry.Descriptor{
		Name:        "external_ping",
		Description: "Ping an external backend",
		Invocation:  registry.RemoteInvocation(backend.URL, http.MethodGet),
	}, registry.OriginExternal)
	if err != nil {
		t.Fatalf("Register external: %v", err)
	}

	waitForToolCount(t, session, len(staticToolNames)+1)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "external_ping",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool(external_ping): %v", err)
	}
	if res.IsError {
		t.Fatalf("external_ping returned IsError: %v", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, "ok") {
		t.Errorf("external_ping content = %v; want backend response", res.Content)
	}

	if err := reg.Unregister("external_ping"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	waitForToolCount(t, session, len(staticToolNames))
}
