package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/matiasleandrokruk/dynmcp/internal/domain/calc"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/inventory"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
	"github.com/matiasleandrokruk/dynmcp/internal/version"
)

// itemPayload is the wire shape of an item in tool results.
type itemPayload struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

func toItemPayload(item *inventory.Item) itemPayload {
	return itemPayload{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
	}
}

// RegisterStatic installs the built-in tool set: the endpoint-derived tools
// wrapping the item and calculate services, plus the authored utility tools.
// Static tools cannot be removed at runtime.
func RegisterStatic(reg *registry.Registry, items *inventory.Service) error {
	descriptors := []registry.Descriptor{
		listItemsTool(items),
		getItemTool(items),
		createItemTool(items),
		updateItemTool(items),
		deleteItemTool(items),
		calculateTool(),
		healthCheckTool(),
		echoTool(),
		serverInfoTool(reg),
		apiReferenceTool(),
	}

	for _, d := range descriptors {
		if err := reg.Register(d, registry.OriginStatic); err != nil {
			return fmt.Errorf("register static tool %q: %w", d.Name, err)
		}
	}
	return nil
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Required:   required,
		Properties: props,
	}
}

func listItemsTool(items *inventory.Service) registry.Descriptor {
	return registry.Descriptor{
		Name:        "list_items",
		Description: "List all items in the inventory",
		Tags:        []string{"items"},
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			list, err := items.List(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]itemPayload, 0, len(list))
			for i := range list {
				out = append(out, toItemPayload(&list[i]))
			}
			return json.Marshal(map[string]any{"items": out, "total": len(out)})
		}),
	}
}

func getItemTool(items *inventory.Service) registry.Descriptor {
	return registry.Descriptor{
		Name:        "get_item",
		Description: "Get a single item by its id",
		Tags:        []string{"items"},
		InputSchema: objectSchema([]string{"item_id"}, map[string]*jsonschema.Schema{
			"item_id": {Type: "integer", Description: "Item id"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ItemID int64 `json:"item_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			item, err := items.Get(ctx, in.ItemID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(toItemPayload(item))
		}),
	}
}

func createItemTool(items *inventory.Service) registry.Descriptor {
	return registry.Descriptor{
		Name:        "create_item",
		Description: "Create a new item in the inventory",
		Tags:        []string{"items"},
		InputSchema: objectSchema([]string{"name", "price"}, map[string]*jsonschema.Schema{
			"name":        {Type: "string", Description: "Item name"},
			"description": {Type: "string", Description: "Optional item description"},
			"price":       {Type: "number", Description: "Item price, must be positive"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Name        string  `json:"name"`
				Description *string `json:"description"`
				Price       float64 `json:"price"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			item, err := items.Create(ctx, inventory.CreateItemInput{
				Name:        in.Name,
				Description: in.Description,
				Price:       in.Price,
			})
			if err != nil {
				return nil, err
			}
			return json.Marshal(toItemPayload(item))
		}),
	}
}

func updateItemTool(items *inventory.Service) registry.Descriptor {
	return registry.Descriptor{
		Name:        "update_item",
		Description: "Update an existing item; omitted fields keep their values",
		Tags:        []string{"items"},
		InputSchema: objectSchema([]string{"item_id"}, map[string]*jsonschema.Schema{
			"item_id":     {Type: "integer", Description: "Item id"},
			"name":        {Type: "string", Description: "New item name"},
			"description": {Type: "string", Description: "New item description"},
			"price":       {Type: "number", Description: "New item price, must be positive"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ItemID      int64    `json:"item_id"`
				Name        *string  `json:"name"`
				Description *string  `json:"description"`
				Price       *float64 `json:"price"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			item, err := items.Update(ctx, in.ItemID, inventory.UpdateItemInput{
				Name:        in.Name,
				Description: in.Description,
				Price:       in.Price,
			})
			if err != nil {
				return nil, err
			}
			return json.Marshal(toItemPayload(item))
		}),
	}
}

func deleteItemTool(items *inventory.Service) registry.Descriptor {
	return registry.Descriptor{
		Name:        "delete_item",
		Description: "Delete an item from the inventory",
		Tags:        []string{"items"},
		InputSchema: objectSchema([]string{"item_id"}, map[string]*jsonschema.Schema{
			"item_id": {Type: "integer", Description: "Item id"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				ItemID int64 `json:"item_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			if err := items.Delete(ctx, in.ItemID); err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{
				"message": fmt.Sprintf("Item %d deleted", in.ItemID),
			})
		}),
	}
}

func calculateTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "calculate",
		Description: "Perform a basic arithmetic operation on two numbers",
		Tags:        []string{"math"},
		InputSchema: objectSchema([]string{"operation", "a", "b"}, map[string]*jsonschema.Schema{
			"operation": {
				Type:        "string",
				Description: "Arithmetic operation to perform",
				Enum:        []any{calc.OpAdd, calc.OpSubtract, calc.OpMultiply, calc.OpDivide},
			},
			"a": {Type: "number", Description: "First operand"},
			"b": {Type: "number", Description: "Second operand"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Operation string  `json:"operation"`
				A         float64 `json:"a"`
				B         float64 `json:"b"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			result, err := calc.Calculate(in.Operation, in.A, in.B)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		}),
	}
}

func healthCheckTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "health_check",
		Description: "Check that the server is up and responding",
		Tags:        []string{"ops"},
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return json.Marshal(map[string]string{
				"status":  "healthy",
				"service": "dynmcp",
			})
		}),
	}
}

func echoTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "echo",
		Description: "Echo back the provided message",
		Tags:        []string{"util"},
		InputSchema: objectSchema([]string{"message"}, map[string]*jsonschema.Schema{
			"message": {Type: "string", Description: "Message to echo back"},
		}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			return json.Marshal(map[string]string{"echo": in.Message})
		}),
	}
}

func serverInfoTool(reg *registry.Registry) registry.Descriptor {
	return registry.Descriptor{
		Name:        "server_info",
		Description: "Report server name, version and the current tool count",
		Tags:        []string{"util"},
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return json.Marshal(map[string]any{
				"name":        "dynmcp",
				"version":     version.Version,
				"total_tools": len(reg.List()),
			})
		}),
	}
}

func apiReferenceTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "api_reference",
		Description: "Describe the REST endpoints exposed by this server",
		Tags:        []string{"util"},
		InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{}),
		Invocation: registry.LocalInvocation(func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			endpoints := []map[string]string{
				{"method": "GET", "path": "/health", "description": "Service health check"},
				{"method": "GET", "path": "/items", "description": "List items"},
				{"method": "POST", "path": "/items", "description": "Create an item"},
				{"method": "GET", "path": "/items/{id}", "description": "Get an item"},
				{"method": "PUT", "path": "/items/{id}", "description": "Update an item"},
				{"method": "DELETE", "path": "/items/{id}", "description": "Delete an item"},
				{"method": "POST", "path": "/calculate", "description": "Arithmetic operations"},
				{"method": "GET", "path": "/tools/", "description": "List registered tools"},
				{"method": "POST", "path": "/tools/register", "description": "Register an external tool"},
				{"method": "DELETE", "path": "/tools/unregister/{name}", "description": "Unregister an external tool"},
			}
			return json.Marshal(map[string]any{"endpoints": endpoints})
		}),
	}
}
