package http

import (
	"github.com/gofiber/fiber/v2"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
)

// Roles conocidos por la API.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleSistema   = "sistema"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Movements    *appkardex.MovementUseCase
	Queries      *appkardex.StockQueryUseCase
	Reservations *appkardex.ReservationUseCase
	Reports      *appkardex.ReportUseCase
	Reconcile    *appkardex.ReconcileUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Kardex: movimientos, traslados y consulta del libro
	kardexHandler := NewKardexHandler(deps.Movements, deps.Queries, deps.Reports)
	kardexGroup := protected.Group("/kardex")
	kardexGroup.Post("/movements", RequireRole(RoleAdmin, RoleBodeguero, RoleSistema), kardexHandler.RegisterMovement)
	kardexGroup.Post("/transfers", RequireRole(RoleAdmin, RoleBodeguero), kardexHandler.Transfer)
	kardexGroup.Get("/:productID/:locationID", kardexHandler.ListEntries)
	kardexGroup.Get("/:productID/:locationID/report", kardexHandler.Report)

	// Stock: saldos por ubicación y consolidado
	stockHandler := NewStockHandler(deps.Queries)
	stockGroup := protected.Group("/stock")
	stockGroup.Get("/:productID", stockHandler.GetAggregate)
	stockGroup.Get("/:productID/locations/:locationID", stockHandler.GetLocationBalance)
	stockGroup.Post("/:productID/rebuild", RequireRole(RoleAdmin), stockHandler.Rebuild)

	// Reservas
	reservationHandler := NewReservationHandler(deps.Reservations)
	reservations := protected.Group("/reservations")
	reservations.Post("/", reservationHandler.Create)
	reservations.Get("/:id", reservationHandler.Get)
	reservations.Post("/:id/release", reservationHandler.Release)
	reservations.Post("/:id/commit", reservationHandler.Commit)

	// Reconciliación (solo admin)
	reconcileHandler := NewReconcileHandler(deps.Reconcile)
	protected.Get("/reconcile/:productID", RequireRole(RoleAdmin), reconcileHandler.Check)
}
