package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/product"
)

// GetPreferences handles GET /preferences.
func (s *Server) GetPreferences(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, workspaceFrom(ctx).Preferences.GetPreferences())
}

// UpdatePreferences handles PUT /preferences. The body replaces the stored preferences.
func (s *Server) UpdatePreferences(ctx echo.Context) error {
	var prefs product.UserPreferences
	if err := ctx.Bind(&prefs); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	updated, err := workspaceFrom(ctx).Preferences.Update(ctx.Request().Context(), prefs)
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return s.HandleError(ctx, err, "Invalid preferences", http.StatusBadRequest)
	case err != nil:
		return s.HandleError(ctx, err, "Failed to save preferences", http.StatusServiceUnavailable)
	}
	return ctx.JSON(http.StatusOK, updated)
}

// ListNotifications handles GET /notifications?limit=N.
func (s *Server) ListNotifications(ctx echo.Context) error {
	if s.cfg.Notifications == nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}
	limit := 0
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return s.HandleError(ctx, err, "limit must be a non-negative integer", http.StatusBadRequest)
		}
		limit = n
	}
	items := s.cfg.Notifications.List(limit)
	if items == nil {
		items = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, items)
}
