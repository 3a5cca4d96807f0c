package testutil

import (
	"context"
	"net/http"
	"time"

	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/middleware/admin"
	"placeclaim/pkg/requestcontext"
)

// RequestAs simulates the auth and metadata middleware for an authenticated caller.
func RequestAs(req *http.Request, userID id.UserID, clientIP string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithClientMetadata(ctx, clientIP, "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)")
	return req.WithContext(ctx)
}

// RequestAsAdmin simulates the admin middleware.
func RequestAsAdmin(req *http.Request, actorID, clientIP string) *http.Request {
	ctx := admin.WithAdminActorID(req.Context(), actorID)
	ctx = requestcontext.WithClientMetadata(ctx, clientIP, "curl/8.4.0")
	return req.WithContext(ctx)
}

// UserContext builds a service-level context for a user at a fixed time.
func UserContext(userID id.UserID, clientIP string, now time.Time) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithClientMetadata(ctx, clientIP, "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)")
	return requestcontext.WithTime(ctx, now)
}
