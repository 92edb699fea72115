// Package actorctx carries the authenticated staff member through request
// context. Authorization policy is out of scope; the ledger only records who
// performed each mutation.
package actorctx

import (
	"context"
	"strings"
)

type contextKey struct{}

func WithActorID(ctx context.Context, actorID string) context.Context {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, actorID)
}

func ActorIDFromContext(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(contextKey{}).(string)
	if !ok || actorID == "" {
		return "", false
	}
	return actorID, true
}
