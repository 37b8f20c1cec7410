package core

import (
	"context"
	"strings"
)

// OperatorContext identifies the operator on whose behalf a store call is made.
// Every component that touches the store receives one explicitly.
type OperatorContext struct {
	OwnerID string
}

// Operator builds an OperatorContext for ownerID.
func Operator(ownerID string) OperatorContext {
	return OperatorContext{OwnerID: strings.TrimSpace(ownerID)}
}

// Valid reports whether an operator identity is present.
func (o OperatorContext) Valid() bool {
	return o.OwnerID != ""
}

func (o OperatorContext) require() error {
	if !o.Valid() {
		return ErrNotAuthenticated
	}
	return nil
}

type contextKey string

const ctxKeyOperator contextKey = "operator"

// ContextWithOperator stores the authenticated operator on ctx.
// Only the transport layer calls this; core components take the operator as
// an argument.
func ContextWithOperator(ctx context.Context, op OperatorContext) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, op)
}

// OperatorFromContext returns the operator stored by ContextWithOperator.
// The zero OperatorContext (not Valid) is returned when none is present.
func OperatorFromContext(ctx context.Context) OperatorContext {
	if op, ok := ctx.Value(ctxKeyOperator).(OperatorContext); ok {
		return op
	}
	return OperatorContext{}
}
