// Package calc implements the arithmetic operations exposed through the
// calculate endpoint and tool.
package calc

import (
	"errors"
	"fmt"
)

var (
	ErrDivideByZero     = errors.New("cannot divide by zero")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Operations supported by Calculate.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

type Result struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Result    float64 `json:"result"`
}

func Calculate(operation string, a, b float64) (*Result, error) {
	var value float64
	switch operation {
	case OpAdd:
		value = a + b
	case OpSubtract:
		value = a - b
	case OpMultiply:
		value = a * b
	case OpDivide:
		if b == 0 {
			return nil, ErrDivideByZero
		}
		value = a / b
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return &Result{Operation: operation, A: a, B: b, Result: value}, nil
}
