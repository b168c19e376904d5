package shared

import "context"

// ActorInfo identifies the authenticated caller for the duration of a request.
type ActorInfo struct {
	UserID string
	Email  string
	Roles  []string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *ActorInfo) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) *ActorInfo {
	actor, _ := ctx.Value(actorContextKey{}).(*ActorInfo)
	return actor
}
