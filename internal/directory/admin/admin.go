// Package admin decides which actor IDs hold claim review authority.
package admin

import (
	"context"
	"strings"
)

// StaticAuthorizer grants review authority to a fixed allowlist of actor IDs.
type StaticAuthorizer struct {
	actors map[string]struct{}
}

// NewStaticAuthorizer builds an authorizer from actor IDs; blanks are ignored.
func NewStaticAuthorizer(actorIDs []string) *StaticAuthorizer {
	a := &StaticAuthorizer{actors: make(map[string]struct{}, len(actorIDs))}
	for _, actor := range actorIDs {
		actor = strings.TrimSpace(actor)
		if actor != "" {
			a.actors[actor] = struct{}{}
		}
	}
	return a
}

// IsAdmin reports whether actorID is on the allowlist.
func (a *StaticAuthorizer) IsAdmin(_ context.Context, actorID string) (bool, error) {
	_, ok := a.actors[actorID]
	return ok, nil
}
