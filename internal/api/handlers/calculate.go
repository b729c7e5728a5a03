// HTTP handler for the calculate endpoint.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matiasleandrokruk/dynmcp/internal/domain/calc"
)

// CalculateHandler handles HTTP requests for arithmetic operations.
type CalculateHandler struct{}

// NewCalculateHandler creates a new CalculateHandler instance.
func NewCalculateHandler() *CalculateHandler {
	return &CalculateHandler{}
}

// CalculateRequest is the request body for POST /calculate.
type CalculateRequest struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

// Calculate handles POST /calculate
func (h *CalculateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := calc.Calculate(req.Operation, req.A, req.B)
	if errors.Is(err, calc.ErrDivideByZero) {
		writeError(w, http.StatusBadRequest, "Cannot divide by zero")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
