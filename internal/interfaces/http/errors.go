package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/pkg/jwt"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorTable se recorre en orden: los errores específicos van antes que su clase base.
var errorTable = []errorMapping{
	{jwt.ErrExpiredToken, fiber.StatusUnauthorized, "TOKEN_EXPIRED", "el token expiró"},
	{domain.ErrInactiveUser, fiber.StatusUnauthorized, "INACTIVE_USER", "usuario inactivo"},
	{domain.ErrUnknownPrincipal, fiber.StatusUnauthorized, "UNKNOWN_PRINCIPAL", "el usuario del token no existe"},
	{domain.ErrInvalidCredential, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "credenciales inválidas"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHENTICATED", "autenticación requerida"},

	{domain.ErrInsufficientStock, fiber.StatusBadRequest, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrNegativeStock, fiber.StatusBadRequest, "NEGATIVE_STOCK_ON_REVERSAL", "la reversión dejaría el stock en negativo"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION", "transición de estado no permitida"},

	{domain.ErrProductNotFound, fiber.StatusNotFound, "PRODUCT_NOT_FOUND", "producto no encontrado"},
	{domain.ErrMovementNotFound, fiber.StatusNotFound, "MOVEMENT_NOT_FOUND", "movimiento no encontrado"},
	{domain.ErrLevelNotFound, fiber.StatusNotFound, "LEVEL_NOT_FOUND", "nivel de stock no encontrado"},
	{domain.ErrOrderNotFound, fiber.StatusNotFound, "ORDER_NOT_FOUND", "pedido no encontrado"},
	{domain.ErrTargetUserNotFound, fiber.StatusNotFound, "TARGET_USER_NOT_FOUND", "usuario destino no encontrado"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND", "usuario no encontrado"},
	{domain.ErrCategoryNotFound, fiber.StatusNotFound, "CATEGORY_NOT_FOUND", "categoría no encontrada"},
	{domain.ErrSupplierNotFound, fiber.StatusNotFound, "SUPPLIER_NOT_FOUND", "proveedor no encontrado"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},

	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS", "el email ya está registrado"},
	{domain.ErrLevelAlreadyExists, fiber.StatusConflict, "LEVEL_EXISTS", "el producto ya tiene nivel de stock"},
	{domain.ErrInUse, fiber.StatusConflict, "IN_USE", "el recurso está referenciado"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "ya existe un recurso con ese nombre"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflicto con el estado actual"},

	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser positiva"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},

	{inventory.ErrReportUnavailable, fiber.StatusServiceUnavailable, "REPORT_UNAVAILABLE", "generador de reportes no disponible"},
}

// writeError traduce un error de dominio al cuerpo {code, message}. Lo no mapeado es 500 y se registra.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	if reason, ok := domain.DenyReason(err); ok {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code: "FORBIDDEN", Message: "acceso denegado", Reason: reason,
		})
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: m.message})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// pageFrom lee limit/offset del query string con los límites de dto.PageRequest.
func pageFrom(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	return p
}
