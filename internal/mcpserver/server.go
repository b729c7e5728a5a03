// Package mcpserver bridges the tool registry to an MCP protocol server.
// Static tools are mirrored in at startup; runtime registrations and
// removals arrive over the event bus and are applied to the live server,
// which notifies connected clients via tools/list_changed.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/internal/infra/eventbus"
	"github.com/matiasleandrokruk/dynmcp/internal/version"
)

// Bridge owns the MCP server and keeps its tool list in sync with the
// registry.
type Bridge struct {
	server *mcp.Server
	reg    *registry.Registry
	log    zerolog.Logger
}

// New creates a Bridge around a fresh MCP server. Call Start to mirror the
// registry and begin consuming change events.
func New(reg *registry.Registry, log zerolog.Logger) *Bridge {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dynmcp",
		Version: version.Version,
	}, nil)
	return &Bridge{server: server, reg: reg, log: log}
}

// Start subscribes to registry change events, mirrors the current registry
// contents into the MCP server, and launches the event loop. Subscribing
// before the initial sync means a concurrent registration is never lost:
// at worst a tool is added twice, which the MCP server treats as a replace.
func (b *Bridge) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(registry.TopicToolsChanged)

	for _, s := range b.reg.List() {
		b.addTool(s.Name)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				b.handleChange(evt)
			}
		}
	}()
}

func (b *Bridge) handleChange(evt eventbus.Event) {
	change, ok := evt.Payload.(registry.ChangeEvent)
	if !ok {
		b.log.Warn().Str("topic", evt.Topic).Msg("unexpected event payload type")
		return
	}

	switch change.Action {
	case registry.ActionRegistered:
		b.addTool(change.Tool)
		b.log.Info().Str("tool", change.Tool).Msg("tool added to mcp server")
	case registry.ActionUnregistered:
		b.server.RemoveTools(change.Tool)
		b.log.Info().Str("tool", change.Tool).Msg("tool removed from mcp server")
	default:
		b.log.Warn().Str("action", change.Action).Msg("unknown tool change action")
	}
}

// addTool mirrors one registry entry into the MCP server. The handler
// dispatches back through the registry so local and remote tools share a
// single invocation path.
func (b *Bridge) addTool(name string) {
	desc, err := b.reg.Lookup(name)
	if err != nil {
		b.log.Warn().Err(err).Str("tool", name).Msg("tool vanished before mcp sync")
		return
	}

	schema := desc.InputSchema
	if schema == nil {
		// Runtime-registered tools carry no schema; expose a permissive
		// object so clients can pass arbitrary arguments.
		schema = &jsonschema.Schema{Type: "object"}
	}

	b.server.AddTool(&mcp.Tool{
		Name:        desc.Name,
		Description: desc.Description,
		InputSchema: schema,
	}, b.toolHandler(desc.Name))
}

func (b *Bridge) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := b.reg.Invoke(ctx, name, args)
		if err != nil {
			b.log.Warn().Err(err).Str("tool", name).Msg("tool invocation failed")
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
		}, nil
	}
}

// ServeStdio runs the MCP server over stdin/stdout until the client
// disconnects or ctx is canceled.
func (b *Bridge) ServeStdio(ctx context.Context) error {
	return b.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns the streamable HTTP transport handler, mounted by the
// REST router under /mcp.
func (b *Bridge) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return b.server
	}, nil)
}

// Connect binds the server to a transport and returns the session. Used by
// tests with in-memory transports.
func (b *Bridge) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return b.server.Connect(ctx, t, nil)
}
