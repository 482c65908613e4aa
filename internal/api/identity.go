package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/workspace"
)

const (
	// HeaderSessionID carries the anonymous session id.
	HeaderSessionID = "X-Session-ID"
	// sessionQueryParam is accepted where headers cannot be set, e.g. websockets.
	sessionQueryParam = "session"

	workspaceKey = "workspace"
)

// IdentityMiddleware resolves the caller and attaches its workspace. A bearer
// token identifies a user; otherwise the session id selects an anonymous session.
func (s *Server) IdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := s.resolveIdentity(ctx.Request())
		if err != nil {
			return s.HandleError(ctx, err, "Authentication failed", http.StatusUnauthorized)
		}

		ws, err := s.workspaceFor(ctx, id)
		if err != nil {
			return s.HandleError(ctx, err, "Failed to open session", http.StatusInternalServerError)
		}
		ctx.Set(workspaceKey, ws)
		return next(ctx)
	}
}

func (s *Server) resolveIdentity(r *http.Request) (identity.Identity, error) {
	if auth := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return s.cfg.JWT.Resolve(auth)
	}
	sessionID := r.Header.Get(HeaderSessionID)
	if sessionID == "" {
		sessionID = r.URL.Query().Get(sessionQueryParam)
	}
	return identity.Anonymous(sessionID), nil
}

// workspaceFor returns the cached workspace of id, opening one on first use.
// Every hit extends the idle lifetime.
func (s *Server) workspaceFor(ctx echo.Context, id identity.Identity) (*workspace.Workspace, error) {
	partition := id.Partition()
	if v, ok := s.workspaces.Get(partition); ok {
		ws := v.(*workspace.Workspace)
		s.workspaces.Set(partition, ws, cache.DefaultExpiration)
		return ws, nil
	}

	ws, err := s.cfg.Workspaces.Open(ctx.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if err := s.workspaces.Add(partition, ws, cache.DefaultExpiration); err != nil {
		// another request opened it first
		ws.Close()
		if v, ok := s.workspaces.Get(partition); ok {
			return v.(*workspace.Workspace), nil
		}
		return nil, err
	}
	s.logger.Debug("workspace opened", logger.String("partition", partition))
	return ws, nil
}

func workspaceFrom(ctx echo.Context) *workspace.Workspace {
	return ctx.Get(workspaceKey).(*workspace.Workspace)
}
