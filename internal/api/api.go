// Package api serves the v1 HTTP API over the scan pipeline.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/foodscan/internal/buildinfo"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/workspace"
)

const (
	// DefaultSessionTTL is how long an idle identity keeps its workspace.
	DefaultSessionTTL = time.Hour
	// maxUploadSize bounds request bodies, label images included.
	maxUploadSize = "10M"
	// maxTraceIDLength bounds client-supplied request IDs.
	maxTraceIDLength = 64
)

// Opener builds the workspace of an identity. *workspace.Factory implements it.
type Opener interface {
	Open(ctx context.Context, id identity.Identity) (*workspace.Workspace, error)
}

// Subscriber delivers committed events. *events.EventBus implements it.
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// NotificationLister returns recent notifications. *notification.Service implements it.
type NotificationLister interface {
	List(limit int) []notification.Notification
}

// Config wires a Server.
type Config struct {
	Workspaces Opener
	JWT        *identity.JWTResolver
	// Events feeds the websocket stream. Optional.
	Events Subscriber
	// Notifications backs GET /notifications. Optional.
	Notifications NotificationLister
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	SessionTTL  time.Duration
	BuildInfo   *buildinfo.Context
	Logger      logger.Logger
}

// Server owns the echo instance and the per-identity workspace cache.
type Server struct {
	Echo       *echo.Echo
	Group      *echo.Group
	cfg        Config
	workspaces *cache.Cache
	startTime  time.Time
	logger     logger.Logger
}

// New creates the server and registers every route.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module("api")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.BuildInfo == nil {
		cfg.BuildInfo = buildinfo.New("", "")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:       e,
		cfg:        cfg,
		workspaces: cache.New(cfg.SessionTTL, cfg.SessionTTL/2),
		startTime:  time.Now(),
		logger:     cfg.Logger,
	}
	s.workspaces.OnEvicted(func(partition string, v any) {
		if ws, ok := v.(*workspace.Workspace); ok {
			ws.Close()
			s.logger.Debug("workspace evicted", logger.String("partition", partition))
		}
	})

	e.Use(middleware.Recover())
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(cfg.Metrics))
	}

	s.Group = e.Group("/api/v1")
	s.Group.Use(middleware.CORS())
	s.Group.Use(middleware.BodyLimit(maxUploadSize))
	s.Group.Use(s.TraceMiddleware())
	s.Group.Use(s.LoggingMiddleware())
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	s.Group.GET("/health", s.HealthCheck)

	g := s.Group.Group("", s.IdentityMiddleware)
	g.POST("/scan/barcode", s.ScanBarcode)
	g.POST("/scan/label", s.ScanLabel)
	g.POST("/avoid", s.Avoid)
	g.GET("/products", s.ListProducts)
	g.DELETE("/products", s.ClearProducts)
	g.GET("/products/:id", s.GetProduct)
	g.DELETE("/products/:id", s.DeleteProduct)
	g.GET("/products/:id/evaluation", s.GetEvaluation)
	g.GET("/preferences", s.GetPreferences)
	g.PUT("/preferences", s.UpdatePreferences)
	g.GET("/notifications", s.ListNotifications)
	g.GET("/events", s.StreamEvents)
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server listening", logger.String("address", addr))
	if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and closes every cached workspace.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	items := s.workspaces.Items()
	s.workspaces.Flush()
	for _, item := range items {
		if ws, ok := item.Object.(*workspace.Workspace); ok {
			ws.Close()
		}
	}
	return err
}

// TraceMiddleware tags the request context with a trace ID, taken from the
// X-Request-ID header when the client sent one, and echoes it back.
func (s *Server) TraceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			traceID := req.Header.Get(echo.HeaderXRequestID)
			if traceID == "" || len(traceID) > maxTraceIDLength {
				traceID = uuid.NewString()[:8]
			}
			ctx.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), traceID)))
			ctx.Response().Header().Set(echo.HeaderXRequestID, traceID)
			return next(ctx)
		}
	}
}

// LoggingMiddleware logs every API request with its status and latency.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.Int("status", ctx.Response().Status),
				logger.String("ip", ctx.RealIP()),
				logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			s.logger.WithContext(req.Context()).Debug("API request", fields...)
			return err
		}
	}
}

// HealthCheck reports version and uptime.
func (s *Server) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.cfg.BuildInfo.Version,
		"build_date": s.cfg.BuildInfo.BuildDate,
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"sessions":   s.workspaces.ItemCount(),
	})
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err and writes an ErrorResponse with code.
func (s *Server) HandleError(ctx echo.Context, err error, message string, code int) error {
	reqCtx := ctx.Request().Context()
	correlationID := logger.TraceIDFromContext(reqCtx)
	if correlationID == "" {
		correlationID = uuid.NewString()[:8]
	}
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	reqLog := s.logger.WithContext(reqCtx)
	log := reqLog.Info
	if code >= http.StatusInternalServerError {
		log = reqLog.Error
	}
	log("API error",
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method))

	return ctx.JSON(code, resp)
}
