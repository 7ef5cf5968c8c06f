package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/pkg/jwt"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

// LocalPrincipal clave de c.Locals con el principal resuelto.
const LocalPrincipal = "principal"

// principalResolver contrato mínimo del verificador de identidad (lo implementa *auth.AuthUseCase).
type principalResolver interface {
	Resolve(ctx context.Context, token string) (authz.Principal, error)
}

// AuthMiddleware valida el Bearer Token, resuelve el principal contra la BD y lo deja en c.Locals.
func AuthMiddleware(resolver principalResolver, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		p, err := resolver.Resolve(c.UserContext(), tokenString)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredential) && !errors.Is(err, jwt.ErrExpiredToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido"})
			}
			return writeError(c, log, err)
		}
		c.Locals(LocalPrincipal, p)
		return c.Next()
	}
}

// RequireAdmin corta con 403 forbidden_role si el principal no es admin. Va DESPUÉS de AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p.ID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHENTICATED", Message: "autenticación requerida"})
		}
		if !p.Admin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code: "FORBIDDEN", Message: "acceso denegado", Reason: domain.ReasonForbiddenRole,
			})
		}
		return c.Next()
	}
}

// GetPrincipal devuelve el principal del contexto; vacío si no pasó por AuthMiddleware.
func GetPrincipal(c *fiber.Ctx) authz.Principal {
	p, _ := c.Locals(LocalPrincipal).(authz.Principal)
	return p
}

// GetUserID devuelve el ID del principal.
func GetUserID(c *fiber.Ctx) string {
	return GetPrincipal(c).ID
}
