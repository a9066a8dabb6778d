package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hilthontt/synchat/internal/application/registry"
	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/blob"
	"github.com/hilthontt/synchat/internal/infrastructure/configs"
	"github.com/hilthontt/synchat/internal/infrastructure/db"
	"github.com/hilthontt/synchat/internal/infrastructure/logging"
	"github.com/hilthontt/synchat/internal/infrastructure/metrics"
	"github.com/hilthontt/synchat/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/synchat/internal/infrastructure/repository"
	"github.com/hilthontt/synchat/internal/infrastructure/tracing"
	"github.com/hilthontt/synchat/internal/infrastructure/ws"
	"github.com/hilthontt/synchat/internal/presentation/api"
	"github.com/hilthontt/synchat/internal/presentation/handler/chat"
	"github.com/hilthontt/synchat/internal/presentation/handler/health"
	"github.com/hilthontt/synchat/internal/presentation/handler/rooms"
	"github.com/hilthontt/synchat/internal/presentation/handler/uploads"
	"github.com/spf13/afero"
)

const (
	serviceName = "synchat-api"
)

func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize the logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(serviceName, cfg.Tracing)
	if err != nil {
		logger.Fatalw("failed to initialize the tracer", "error", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warnw("tracer shutdown failed", "error", err)
		}
	}()

	var (
		roomRepository    domain.RoomRepository
		messageRepository domain.MessageRepository
		checks            = map[string]health.Check{}
	)

	if cfg.Storage.Driver == "memory" {
		roomRepository = repository.NewRoomRepository()
		messageRepository = repository.NewMessageRepository()
	} else {
		database, err := db.Open(cfg.Storage)
		if err != nil {
			logger.Fatalw("failed to open database", "driver", cfg.Storage.Driver, "error", err)
		}
		defer func() {
			if err := db.Close(database); err != nil {
				logger.Warnw("failed to close database", "error", err)
			}
		}()

		roomRepository = repository.NewSQLRoomRepository(database)
		messageRepository = repository.NewSQLMessageRepository(database)
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	logger.Infow("storage ready", "driver", cfg.Storage.Driver)

	blobStore, err := blob.NewLocalStorage(afero.NewOsFs(), cfg.Uploads.Dir, cfg.Uploads.MaxSize, logger)
	if err != nil {
		logger.Fatalw("failed to prepare upload storage", "dir", cfg.Uploads.Dir, "error", err)
	}

	m := metrics.New()

	roomRegistry := registry.New(roomRepository, messageRepository, blobStore, logger,
		registry.WithMetrics(m),
		registry.WithTracer(tracing.GetTracer("synchat/registry")),
	)

	coreOpts := []ws.CoreOption{
		ws.WithRoomGuard(roomRegistry),
		ws.WithCoreMetrics(m),
		ws.WithPersistTimeout(cfg.Gateway.PersistTimeout),
	}
	if cfg.Gateway.RequireActiveRoom {
		coreOpts = append(coreOpts, ws.WithRequireActiveRoom())
	}
	wsCore := ws.NewCore(messageRepository, logger, coreOpts...)
	go wsCore.Run(ctx)

	var rl ratelimiter.Limiter = ratelimiter.Noop{}
	if cfg.RateLimiter.Enabled {
		fixed := ratelimiter.NewFixedWindow(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
		defer fixed.Close()
		rl = fixed
	}

	app := api.NewApplication(
		*cfg,
		rooms.NewHandler(roomRegistry, logger),
		uploads.NewHandler(roomRegistry, blobStore, m, logger, cfg.Uploads.MaxSize),
		chat.NewHandler(ctx, wsCore, cfg.HTTP.AllowedOrigins, cfg.Gateway.ClientBuffer, logger),
		health.NewHandler(logger, checks),
		m.Handler(),
		logger,
		rl,
	)

	if err := app.Run(ctx, app.Mount()); err != nil {
		logger.Errorw("server stopped with error", "error", err)
	}

	stop()
	<-wsCore.Done()
}
