package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

// StockHandler movimientos, niveles y alertas de stock (solo admin).
type StockHandler struct {
	ledger *inventory.LedgerUseCase
	alerts *inventory.AlertsUseCase
	log    *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *inventory.LedgerUseCase, alerts *inventory.AlertsUseCase, log *logger.Logger) *StockHandler {
	return &StockHandler{ledger: ledger, alerts: alerts, log: log}
}

// ApplyMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  Aplica una entrada o salida y actualiza el nivel en la misma transacción.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                    false  "Clave para repetir la respuesta"
// @Param        body             body    dto.ApplyMovementRequest  true   "product_id, movement_type (in|out), quantity, reference_type"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /stock/movements [post]
func (h *StockHandler) ApplyMovement(c *fiber.Ctx) error {
	var in dto.ApplyMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.ApplyMovement(c.UserContext(), GetPrincipal(c), inventory.MovementInput{
		ProductID:     in.ProductID,
		Type:          in.MovementType,
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ReverseMovement godoc
// @Summary      Revertir movimiento
// @Description  Elimina el movimiento y ajusta el nivel de forma inversa.
// @Tags         stock
// @Security     Bearer
// @Param        id   path  string  true  "ID del movimiento"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /stock/movements/{id} [delete]
func (h *StockHandler) ReverseMovement(c *fiber.Ctx) error {
	if err := h.ledger.ReverseMovement(c.UserContext(), GetPrincipal(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMovement godoc
// @Summary      Obtener movimiento
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /stock/movements/{id} [get]
func (h *StockHandler) GetMovement(c *fiber.Ctx) error {
	out, err := h.ledger.GetMovement(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ListMovements godoc
// @Summary      Listar movimientos
// @Description  Del más reciente al más antiguo.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Router       /stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	out, err := h.ledger.ListMovements(c.UserContext(), GetPrincipal(c), c.Query("product_id"), pageFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ListLevels godoc
// @Summary      Listar niveles de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.LevelListResponse
// @Router       /stock/levels [get]
func (h *StockHandler) ListLevels(c *fiber.Ctx) error {
	out, err := h.ledger.ListLevels(c.UserContext(), GetPrincipal(c), pageFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetLevel godoc
// @Summary      Nivel de stock de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.LevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /stock/levels/{product_id} [get]
func (h *StockHandler) GetLevel(c *fiber.Ctx) error {
	out, err := h.ledger.GetLevelByProduct(c.UserContext(), GetPrincipal(c), c.Params("product_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// VerifyLevel godoc
// @Summary      Verificar nivel contra el ledger
// @Description  Recalcula Σ entradas − Σ salidas y lo compara con la cantidad actual.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /stock/levels/{product_id}/verify [get]
func (h *StockHandler) VerifyLevel(c *fiber.Ctx) error {
	out, err := h.ledger.VerifyLevel(c.UserContext(), GetPrincipal(c), c.Params("product_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// CreateLevel godoc
// @Summary      Crear nivel de stock
// @Description  initial_quantity > 0 se registra como movimiento de ajuste.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLevelRequest  true  "product_id, initial_quantity, minimum_quantity, maximum_quantity, location"
// @Success      201   {object}  dto.LevelUpdateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /stock/levels [post]
func (h *StockHandler) CreateLevel(c *fiber.Ctx) error {
	var in dto.CreateLevelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.CreateLevel(c.UserContext(), GetPrincipal(c), inventory.CreateLevelInput{
		ProductID:       in.ProductID,
		InitialQuantity: in.InitialQuantity,
		MinimumQuantity: in.MinimumQuantity,
		MaximumQuantity: in.MaximumQuantity,
		Location:        in.Location,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ReplaceLevel godoc
// @Summary      Reemplazar configuración del nivel
// @Description  Los campos omitidos vuelven a su valor por defecto (mínimo 0, sin máximo, sin ubicación).
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del nivel"
// @Param        body  body  dto.UpdateLevelRequest  true  "Configuración completa"
// @Success      200   {object}  dto.LevelUpdateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /stock/levels/{id} [put]
func (h *StockHandler) ReplaceLevel(c *fiber.Ctx) error {
	var in dto.UpdateLevelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	input := toUpdateLevelInput(in)
	if input.MinimumQuantity == nil {
		zero := 0
		input.MinimumQuantity = &zero
	}
	if input.MaximumQuantity == nil {
		input.ClearMaximum = true
	}
	if input.Location == nil {
		empty := ""
		input.Location = &empty
	}
	return h.updateLevel(c, input)
}

// PatchLevel godoc
// @Summary      Editar parcialmente el nivel
// @Description  current_quantity se traduce en un movimiento sintético de ajuste.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del nivel"
// @Param        body  body  dto.UpdateLevelRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.LevelUpdateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /stock/levels/{id} [patch]
func (h *StockHandler) PatchLevel(c *fiber.Ctx) error {
	var in dto.UpdateLevelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.updateLevel(c, toUpdateLevelInput(in))
}

func (h *StockHandler) updateLevel(c *fiber.Ctx, in inventory.UpdateLevelInput) error {
	out, err := h.ledger.UpdateLevel(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

func toUpdateLevelInput(in dto.UpdateLevelRequest) inventory.UpdateLevelInput {
	return inventory.UpdateLevelInput{
		CurrentQuantity: in.CurrentQuantity,
		MinimumQuantity: in.MinimumQuantity,
		MaximumQuantity: in.MaximumQuantity,
		ClearMaximum:    in.ClearMaximum,
		Location:        in.Location,
	}
}

// ListAlerts godoc
// @Summary      Alertas de bajo stock
// @Description  Productos con cantidad actual en o por debajo del mínimo, mayor déficit primero.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.LowStockAlert
// @Router       /stock/alerts [get]
func (h *StockHandler) ListAlerts(c *fiber.Ctx) error {
	out, err := h.alerts.ListLowStock(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":  len(out),
		"alerts": out,
	})
}

// AlertsReport godoc
// @Summary      Reporte PDF de bajo stock
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /stock/alerts/report [get]
func (h *StockHandler) AlertsReport(c *fiber.Ctx) error {
	pdf, filename, err := h.alerts.LowStockReport(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
