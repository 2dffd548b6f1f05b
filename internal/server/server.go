package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
	"github.com/Prasann123/Tradition-RAG/internal/runtime"
)

// Handlers are the collaborators behind the /api routes.
type Handlers struct {
	Agent     Invoker
	Travel    TripPlanner
	Ingest    Ingestor
	Telemetry *telemetry.Telemetry

	// Retrievers and Generator back /send-message; the route is only
	// registered when both are set.
	Retrievers   core.RetrieverResolver
	Generator    core.TextGenerator
	ChatDefaults core.RequestConfig
}

// httpErrorHandler renders every error as {"error": msg} and logs it.
func httpErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
}

// New builds the echo instance with every route registered.
func New(cfg config.ServerConfig, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = httpErrorHandler(log.New(log.Writer(), "[HTTP] ", log.LstdFlags))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MaxUploadBytes+1<<20)))
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	registerDocs(e)
	if h.Telemetry != nil {
		e.GET("/metrics", echo.WrapHandler(h.Telemetry.Handler()))
	}

	api := e.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(runtime.EchoAuthMiddleware([]byte(cfg.JWTSecret)))
	}
	(&AgentHandler{Agent: h.Agent}).Register(api)
	(&TravelHandler{Planner: h.Travel}).Register(api)
	(&DocumentsHandler{
		Ingest:         h.Ingest,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}).Register(api)
	if h.Retrievers != nil && h.Generator != nil {
		(&ChatHandler{
			Retrievers: h.Retrievers,
			LLM:        h.Generator,
			Defaults:   h.ChatDefaults,
			Logger:     log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
		}).Register(api)
	}
	return e
}

// Run builds the application, serves until ctx is cancelled and shuts down
// gracefully.
func Run(ctx context.Context, cfg *config.Config, addr string) error {
	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	tracing, _, err := runtime.SetupTracing(ctx, cfg.Telemetry, runtime.TracingOptions{ServiceName: cfg.Telemetry.ServiceName})
	if err != nil {
		return err
	}
	defer tracing.Shutdown(context.Background())

	app.Janitor.Start(ctx)

	e := New(cfg.Server, Handlers{
		Agent:     app.Orchestrator,
		Travel:    app.Planner,
		Ingest:    app.Ingest,
		Telemetry: app.Telemetry,

		Retrievers:   app.Registry,
		Generator:    app.Generation,
		ChatDefaults: app.Defaults,
	})
	if addr == "" {
		addr = cfg.Server.Address
	}
	if addr == "" {
		addr = ":10001"
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
