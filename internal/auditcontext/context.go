// Package auditcontext carries the acting principal through request contexts.
package auditcontext

import (
	"context"
	"strings"
)

type actorKey struct{}

type actor struct {
	actorType string
	actorID   string
}

// WithActor stores the acting principal (e.g. "user"/"system") in the context.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{actorType: actorType, actorID: actorID})
}

// ActorFromContext returns the actor type and ID, if set.
func ActorFromContext(ctx context.Context) (string, string, bool) {
	if ctx == nil {
		return "", "", false
	}
	a, ok := ctx.Value(actorKey{}).(actor)
	if !ok || a.actorType == "" {
		return "", "", false
	}
	return a.actorType, a.actorID, true
}

// Subject renders the actor as an authorization subject string
// ("system" or "user:<id>").
func Subject(ctx context.Context) string {
	actorType, actorID, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	if actorType == "system" {
		return "system"
	}
	if strings.TrimSpace(actorID) == "" {
		return ""
	}
	return actorType + ":" + actorID
}
