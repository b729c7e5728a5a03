// Route registration and go-chi router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matiasleandrokruk/dynmcp/internal/api/handlers"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/inventory"
	"github.com/matiasleandrokruk/dynmcp/internal/domain/registry"
)

// NewRouter creates and configures a chi router with all routes. mcpHandler
// serves the MCP streamable HTTP transport and is mounted under /mcp; pass
// nil to skip mounting (stdio mode runs without an HTTP surface).
func NewRouter(items *inventory.Service, reg *registry.Registry, mcpHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check — used by load balancers and the health_check tool
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"dynmcp"}`)) //nolint:errcheck
	})

	itemHandler := handlers.NewItemHandler(items)
	r.Route("/items", func(r chi.Router) {
		r.Get("/", itemHandler.ListItems)         // GET /items
		r.Post("/", itemHandler.CreateItem)       // POST /items
		r.Get("/{id}", itemHandler.GetItem)       // GET /items/{id}
		r.Put("/{id}", itemHandler.UpdateItem)    // PUT /items/{id}
		r.Delete("/{id}", itemHandler.DeleteItem) // DELETE /items/{id}
	})

	calculateHandler := handlers.NewCalculateHandler()
	r.Post("/calculate", calculateHandler.Calculate)

	toolHandler := handlers.NewToolHandler(reg)
	r.Route("/tools", func(r chi.Router) {
		r.Get("/", toolHandler.ListTools)                          // GET /tools/
		r.Post("/register", toolHandler.RegisterTool)              // POST /tools/register
		r.Delete("/unregister/{name}", toolHandler.UnregisterTool) // DELETE /tools/unregister/{name}
	})

	if mcpHandler != nil {
		r.Mount("/mcp", mcpHandler)
	}

	return r
}
