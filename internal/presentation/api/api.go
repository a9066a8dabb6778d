package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/synchat/internal/infrastructure/configs"
	"github.com/hilthontt/synchat/internal/infrastructure/ratelimiter"
	chatHandler "github.com/hilthontt/synchat/internal/presentation/handler/chat"
	healthHandler "github.com/hilthontt/synchat/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/synchat/internal/presentation/handler/rooms"
	uploadHandler "github.com/hilthontt/synchat/internal/presentation/handler/uploads"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	uploadHandler  *uploadHandler.Handler
	chatHandler    *chatHandler.Handler
	healthHandler  *healthHandler.Handler
	metricsHandler http.Handler
	logger         *zap.SugaredLogger
	ratelimiter    ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	uploadHandler *uploadHandler.Handler,
	chatHandler *chatHandler.Handler,
	healthHandler *healthHandler.Handler,
	metricsHandler http.Handler,
	logger *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		uploadHandler:  uploadHandler,
		chatHandler:    chatHandler,
		healthHandler:  healthHandler,
		metricsHandler: metricsHandler,
		logger:         logger,
		ratelimiter:    ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(app.enableCors)

	// long-lived connections, so no request timeout or rate limit
	r.Get("/ws", app.chatHandler.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)

		r.Get("/create", app.roomHandler.CreateAndRedirectHandler)
		r.Get("/chat/{roomId}", app.roomHandler.GetRoomHandler)
		r.Get("/uploads/{roomId}/{filename}", app.uploadHandler.ServeHandler)

		r.Route("/api", func(r chi.Router) {
			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", app.roomHandler.CreateRoomHandler)
				r.Get("/{roomId}", app.roomHandler.GetRoomHandler)
				r.Delete("/{roomId}", app.roomHandler.DeleteRoomHandler)
				r.Post("/{roomId}/upload", app.uploadHandler.UploadHandler)
			})

			r.Get("/health", app.healthHandler.GetHealth)
		})
	})

	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetReady)
	if app.metricsHandler != nil {
		r.Handle("/metrics", app.metricsHandler)
	}

	return otelhttp.NewHandler(r, "synchat-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves until ctx is cancelled and then shuts the server down gracefully.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()
		app.logger.Infow("shutting down server", "addr", srv.Addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
