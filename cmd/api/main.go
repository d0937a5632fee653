package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/application/query"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	infrakafka "github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/observability"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/interfaces/stream"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	// Ledger: PostgreSQL o, para desarrollo local, en memoria.
	var (
		txRunner  ledger.TxRunner
		stock     query.StockReader
		movements query.MovementReader
		health    = map[string]httpRouter.HealthCheck{}
	)
	switch cfg.DB.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner, stock, movements = store, store.StockItems(), store.Movements()
		log.Warn().Msg("ledger en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner = postgres.NewTxRunner(pool)
		stock = postgres.NewStockItemRepository(pool)
		movements = postgres.NewMovementRepository(pool)
		health["postgres"] = pool.Ping
	}

	// Caché de consultas; sin Redis las consultas van directo al ledger.
	var queryCache ports.QueryCache
	rdb, err := cache.NewRedis(ctx, cfg.Redis.CacheURL())
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible, caché deshabilitada")
	} else {
		defer rdb.Close()
		queryCache = cache.NewStore(rdb, cfg.Cache.Prefix, cfg.Cache.TTL, log.Component("cache"))
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	processor := ledger.NewProcessor(txRunner, queryCache, log.Component("ledger"))

	var dlq stream.DeadLetter
	if cfg.Kafka.DLQTopic != "" {
		w, err := infrakafka.NewDeadLetterWriter(cfg.Kafka, log.Component("dlq"))
		if err != nil {
			log.Fatal().Err(err).Msg("dead-letter de kafka")
		}
		defer w.Close()
		dlq = w
	}

	consumerLog := log.Component("consumer")
	consumer := stream.NewConsumer(
		func() (stream.Reader, error) { return infrakafka.NewReader(cfg.Kafka, consumerLog) },
		processor,
		stream.Options{
			MaxConcurrentTasks: cfg.Kafka.MaxConcurrentTasks,
			RestartBackoff:     cfg.Kafka.RestartBackoff,
			DeadLetter:         dlq,
		},
		consumerLog,
	)
	go consumer.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:     query.NewStockQueryService(stock, queryCache, log.Component("query")),
		Movements: query.NewMovementQueryService(movements, queryCache, log.Component("query")),
		Health:    health,
		Service:   cfg.App.Name,
		Log:       log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	consumer.Stop()
	if err := consumer.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("mensajes en vuelo cancelados")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
