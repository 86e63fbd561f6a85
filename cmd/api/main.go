package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/cache"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	infrapdf "github.com/jhoicas/Kardex-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Kardex-api/internal/interfaces/http"
	"github.com/jhoicas/Kardex-api/pkg/config"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios de lectura directa (fuera de transacción).
	entryRepo := postgres.NewLedgerEntryRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)

	var balanceRepo repository.BalanceRepository = postgres.NewBalanceRepository(pool)
	var txRunner appkardex.TxRunner = postgres.NewTxRunner(pool, cfg.Kardex.LockTimeout)

	// Caché Redis del consolidado (opcional; sin REDIS_ADDR se lee directo de
	// Postgres). Las lecturas pasan por el decorador read-through y cada
	// transacción confirmada invalida el consolidado de sus productos.
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisCache.Close()
		balanceRepo = cache.NewCachedBalanceRepository(balanceRepo, redisCache, cfg.Kardex.AggregateTTL)
		txRunner = cache.NewInvalidatingTxRunner(txRunner, redisCache)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("caché Redis habilitada para el consolidado")
	}

	movementUC := appkardex.NewMovementUseCase(txRunner)
	reservationUC := appkardex.NewReservationUseCase(txRunner, reservationRepo, movementUC)
	stockQueryUC := appkardex.NewStockQueryUseCase(entryRepo, balanceRepo, reservationRepo, txRunner)
	reconcileUC := appkardex.NewReconcileUseCase(entryRepo, balanceRepo, reservationRepo, log)

	// PDF: reporte kardex por producto y ubicación
	pdfGenerator := infrapdf.NewMarotoKardexGenerator()
	reportUC := appkardex.NewReportUseCase(entryRepo, pdfGenerator)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Kardex API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Movements:    movementUC,
		Queries:      stockQueryUC,
		Reservations: reservationUC,
		Reports:      reportUC,
		Reconcile:    reconcileUC,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
