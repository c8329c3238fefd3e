package services

import "context"

type actorKey struct{}

// WithActor returns a context whose audit rows are attributed to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor carried by ctx, if any.
func ActorFrom(ctx context.Context) (string, bool) {
	a, ok := ctx.Value(actorKey{}).(string)
	return a, ok && a != ""
}

func actorPtr(ctx context.Context) *string {
	if a, ok := ActorFrom(ctx); ok {
		return &a
	}
	return nil
}
