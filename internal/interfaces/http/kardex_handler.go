package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// KardexHandler maneja las peticiones HTTP del libro de kardex (protegido).
type KardexHandler struct {
	movements *appkardex.MovementUseCase
	queries   *appkardex.StockQueryUseCase
	reports   *appkardex.ReportUseCase
}

// NewKardexHandler construye el handler.
func NewKardexHandler(movements *appkardex.MovementUseCase, queries *appkardex.StockQueryUseCase, reports *appkardex.ReportUseCase) *KardexHandler {
	return &KardexHandler{movements: movements, queries: queries, reports: reports}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de kardex
// @Tags         kardex
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, location_id (o from/to para TRANSFER), type, quantity, unit_cost (entradas)"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/kardex/movements [post]
func (h *KardexHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	input := appkardex.MovementInput{
		ProductID:      in.ProductID,
		LocationID:     in.LocationID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		ReferenceID:    in.ReferenceID,
		ReferenceType:  in.ReferenceType,
		Timestamp:      in.Timestamp,
		UserID:         userID,
		Notes:          in.Notes,
		AllowBackorder: in.AllowBackorder,
		Backfill:       in.Backfill,
		CostReset:      in.CostReset,
	}
	if err := h.movements.RegisterMovement(c.Context(), input); err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "movimiento registrado"})
}

// Transfer godoc
// @Summary      Transferir stock entre ubicaciones (partida doble)
// @Tags         kardex
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_location_id, to_location_id, quantity"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/kardex/transfers [post]
func (h *KardexHandler) Transfer(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	input := appkardex.MovementInput{
		ProductID:      in.ProductID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Type:           appkardex.TypeTransfer,
		Quantity:       in.Quantity,
		ReferenceID:    in.ReferenceID,
		Timestamp:      in.Timestamp,
		UserID:         userID,
		Notes:          in.Notes,
	}
	if err := h.movements.RegisterMovement(c.Context(), input); err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "transferencia registrada"})
}

// ListEntries godoc
// @Summary      Kardex de un producto en una ubicación
// @Description  Devuelve los asientos en orden lógico (timestamp, secuencia de inserción).
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        productID   path   string  true   "ID del producto"
// @Param        locationID  path   string  true   "ID de la ubicación"
// @Param        limit       query  int     false  "Tamaño de página (def. 20, máx. 100)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.LedgerEntryDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/kardex/{productID}/{locationID} [get]
func (h *KardexHandler) ListEntries(c *fiber.Ctx) error {
	productID := c.Params("productID")
	locationID := c.Params("locationID")
	if productID == "" || locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID y locationID requeridos"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	entries, err := h.queries.ListEntries(c.Context(), productID, locationID)
	if err != nil {
		return domainError(c, err)
	}
	total := len(entries)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	out := make([]dto.LedgerEntryDTO, 0, end-start)
	for _, e := range entries[start:end] {
		out = append(out, toLedgerEntryDTO(e))
	}
	return c.JSON(fiber.Map{
		"total":   total,
		"limit":   page.Limit,
		"offset":  page.Offset,
		"entries": out,
	})
}

// Report godoc
// @Summary      Reporte kardex en PDF
// @Tags         kardex
// @Security     Bearer
// @Produce      application/pdf
// @Param        productID   path  string  true  "ID del producto"
// @Param        locationID  path  string  true  "ID de la ubicación"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/kardex/{productID}/{locationID}/report [get]
func (h *KardexHandler) Report(c *fiber.Ctx) error {
	productID := c.Params("productID")
	locationID := c.Params("locationID")
	if productID == "" || locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID y locationID requeridos"})
	}
	pdfBytes, err := h.reports.GeneratePDF(c.Context(), productID, locationID)
	if err != nil {
		return domainError(c, err)
	}
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `inline; filename="kardex_`+productID+`_`+locationID+`.pdf"`)
	return c.Send(pdfBytes)
}

func toLedgerEntryDTO(e *entity.LedgerEntry) dto.LedgerEntryDTO {
	return dto.LedgerEntryDTO{
		ID:                e.ID,
		ProductID:         e.ProductID,
		LocationID:        e.LocationID,
		Type:              e.Type,
		QuantityChange:    e.QuantityChange,
		BalanceAfter:      e.BalanceAfter,
		UnitCost:          e.UnitCost,
		AverageCostBefore: e.AverageCostBefore,
		AverageCostAfter:  e.AverageCostAfter,
		ReferenceID:       e.ReferenceID,
		ReferenceType:     e.ReferenceType,
		Timestamp:         e.Timestamp,
		UserID:            e.UserID,
		Notes:             e.Notes,
	}
}
