package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxActorID ctxKey = iota
	ctxRole
)

func WithIdentity(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func ActorID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxActorID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("actor_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
