package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
)

// ReconcileHandler expone la verificación de consistencia del libro (solo admin).
type ReconcileHandler struct {
	reconcile *appkardex.ReconcileUseCase
}

// NewReconcileHandler construye el handler.
func NewReconcileHandler(reconcile *appkardex.ReconcileUseCase) *ReconcileHandler {
	return &ReconcileHandler{reconcile: reconcile}
}

// Check godoc
// @Summary      Verificar consistencia del kardex de un producto
// @Description  Rejuega el libro y contrasta pares de traslado, cadena de saldos
//
//	y cachés denormalizadas. Los hallazgos se reportan, nunca se corrigen solos.
//
// @Tags         reconcile
// @Security     Bearer
// @Produce      json
// @Param        productID  path  string  true  "ID del producto"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/reconcile/{productID} [get]
func (h *ReconcileHandler) Check(c *fiber.Ctx) error {
	productID := c.Params("productID")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "productID requerido"})
	}
	findings, err := h.reconcile.Check(c.Context(), productID)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]dto.FindingDTO, 0, len(findings))
	for _, f := range findings {
		out = append(out, dto.FindingDTO{Code: f.Code, Detail: f.Detail})
	}
	return c.JSON(fiber.Map{
		"product_id": productID,
		"consistent": len(out) == 0,
		"findings":   out,
	})
}
