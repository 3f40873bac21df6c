// internal/server/context.go
package server

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	contextKeyUserID    contextKey = "userID"
	contextKeySessionID contextKey = "sessionID"
)

func getUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(contextKeyUserID).(int64)
	return userID, ok
}

func getSessionID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeySessionID).(string)
	return id
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/admin/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
