package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
)

// ReservationHandler maneja el ciclo de vida de reservas (protegido).
type ReservationHandler struct {
	reservations *appkardex.ReservationUseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(reservations *appkardex.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Create godoc
// @Summary      Reservar stock disponible
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "product_id, location_id, quantity"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	id, err := h.reservations.Reserve(c.Context(), appkardex.ReserveInput{
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Quantity:    in.Quantity,
		ReferenceID: in.ReferenceID,
		UserID:      userID,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReservationResponse{
		ID:         id,
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Status:     "ACTIVE",
	})
}

// Get godoc
// @Summary      Consultar una reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [get]
func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.reservations.Get(c.Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(dto.ReservationResponse{
		ID:         r.ID,
		ProductID:  r.ProductID,
		LocationID: r.LocationID,
		Quantity:   r.Quantity,
		Status:     r.Status,
	})
}

// Release godoc
// @Summary      Liberar una reserva activa
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.reservations.Release(c.Context(), id); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "reserva liberada"})
}

// Commit godoc
// @Summary      Consumir una reserva (genera la venta en el kardex)
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/commit [post]
func (h *ReservationHandler) Commit(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if err := h.reservations.Commit(c.Context(), id, userID); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "reserva consumida"})
}
