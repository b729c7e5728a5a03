// HTTP handlers for item CRUD endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/matiasleandrokruk/dynmcp/internal/domain/inventory"
)

// ItemHandler handles HTTP requests for item CRUD operations.
type ItemHandler struct {
	items *inventory.Service
}

// NewItemHandler creates a new ItemHandler instance.
func NewItemHandler(items *inventory.Service) *ItemHandler {
	return &ItemHandler{items: items}
}

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// UpdateItemRequest is the request body for updating an item. All fields are
// optional; absent fields keep their current values.
type UpdateItemRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// ItemResponse is the response body for item operations.
type ItemResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// ListItemsResponse is the response body for listing items.
type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// ListItems handles GET /items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(&item))
	}
	writeJSON(w, http.StatusOK, ListItemsResponse{Items: out, Total: len(out)})
}

// GetItem handles GET /items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if errors.Is(err, inventory.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Item %d not found", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// CreateItem handles POST /items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.items.Create(r.Context(), inventory.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if errors.Is(err, inventory.ErrInvalidItem) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// UpdateItem handles PUT /items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.items.Update(r.Context(), id, inventory.UpdateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if errors.Is(err, inventory.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Item %d not found", id))
		return
	}
	if errors.Is(err, inventory.ErrInvalidItem) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem handles DELETE /items/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.items.Delete(r.Context(), id)
	if errors.Is(err, inventory.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Item %d not found", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Item %d deleted", id)})
}

func toItemResponse(item *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
	}
}
