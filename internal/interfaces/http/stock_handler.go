package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
)

// StockHandler maneja las consultas de saldos y consolidados (protegido).
type StockHandler struct {
	queries *appkardex.StockQueryUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(queries *appkardex.StockQueryUseCase) *StockHandler {
	return &StockHandler{queries: queries}
}

// GetAggregate godoc
// @Summary      Consolidado de stock de un producto en todas las ubicaciones
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productID  path  string  true  "ID del producto"
// @Success      200  {object}  dto.AggregateDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{productID} [get]
func (h *StockHandler) GetAggregate(c *fiber.Ctx) error {
	productID := c.Params("productID")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID requerido"})
	}
	agg, err := h.queries.Aggregate(c.Context(), productID)
	if err != nil {
		return domainError(c, err)
	}
	out := dto.AggregateDTO{
		ProductID:      agg.ProductID,
		StockQuantity:  agg.StockQuantity,
		AvailableStock: agg.AvailableStock,
		Inventory:      make(map[string]dto.LocationStockDTO, len(agg.Inventory)),
	}
	for loc, ls := range agg.Inventory {
		out.Inventory[loc] = dto.LocationStockDTO{Stock: ls.Stock, Reserved: ls.Reserved, Available: ls.Available}
	}
	return c.JSON(out)
}

// GetLocationBalance godoc
// @Summary      Saldo de un producto en una ubicación
// @Description  Sin as_of devuelve el saldo vigente (con reservado y disponible).
//
//	Con as_of (RFC3339) reconstruye el saldo histórico a esa fecha.
//
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productID   path   string  true   "ID del producto"
// @Param        locationID  path   string  true   "ID de la ubicación"
// @Param        as_of       query  string  false  "Fecha RFC3339 para consulta histórica"
// @Success      200  {object}  dto.LocationBalanceDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{productID}/locations/{locationID} [get]
func (h *StockHandler) GetLocationBalance(c *fiber.Ctx) error {
	productID := c.Params("productID")
	locationID := c.Params("locationID")
	if productID == "" || locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID y locationID requeridos"})
	}

	if asOfRaw := c.Query("as_of"); asOfRaw != "" {
		asOf, err := time.Parse(time.RFC3339, asOfRaw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "as_of debe ser RFC3339"})
		}
		state, err := h.queries.BalanceAsOf(c.Context(), productID, locationID, asOf)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(dto.LocationBalanceDTO{
			ProductID:   productID,
			LocationID:  locationID,
			OnHand:      state.OnHand,
			Available:   state.OnHand,
			AverageCost: state.AverageCost,
			Backordered: state.OnHand < 0,
		})
	}

	bal, err := h.queries.CurrentBalance(c.Context(), productID, locationID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(dto.LocationBalanceDTO{
		ProductID:   bal.ProductID,
		LocationID:  bal.LocationID,
		OnHand:      bal.OnHand,
		Reserved:    bal.Reserved,
		Available:   bal.Available(),
		AverageCost: bal.AverageCost,
		Backordered: bal.Backordered(),
	})
}

// Rebuild godoc
// @Summary      Recalcular el consolidado de un producto desde el libro
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productID  path  string  true  "ID del producto"
// @Success      200  {object}  dto.AggregateDTO
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/{productID}/rebuild [post]
func (h *StockHandler) Rebuild(c *fiber.Ctx) error {
	productID := c.Params("productID")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID requerido"})
	}
	agg, err := h.queries.Rebuild(c.Context(), productID)
	if err != nil {
		return domainError(c, err)
	}
	out := dto.AggregateDTO{
		ProductID:      agg.ProductID,
		StockQuantity:  agg.StockQuantity,
		AvailableStock: agg.AvailableStock,
		Inventory:      make(map[string]dto.LocationStockDTO, len(agg.Inventory)),
	}
	for loc, ls := range agg.Inventory {
		out.Inventory[loc] = dto.LocationStockDTO{Stock: ls.Stock, Reserved: ls.Reserved, Available: ls.Available}
	}
	return c.JSON(out)
}
