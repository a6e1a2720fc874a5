// Package net holds the request scoped values and the error envelope shared by transports
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const keyClient ctxKey = "client"

// WithRequestID stores reqID where chi's RequestID middleware keeps it
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithClient annotates context with the authenticated API client
func WithClient(ctx context.Context, client string) context.Context {
	if client == "" {
		return ctx
	}
	return context.WithValue(ctx, keyClient, client)
}

// Client returns the authenticated API client, empty on open routes
func Client(ctx context.Context) string {
	v, _ := ctx.Value(keyClient).(string)
	return v
}
