package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

// HeaderIdempotencyKey cabecera que identifica un POST repetible.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marca las respuestas servidas desde el almacén.
const HeaderIdempotentReplay = "Idempotent-Replay"

const maxIdempotencyKeyLen = 128

// Idempotency repite la primera respuesta 2xx de un POST para el mismo
// (principal, método, ruta, Idempotency-Key). La clave se reserva antes de ejecutar el
// handler: un reintento que llega mientras la original sigue en curso recibe 409.
// Sin cabecera la petición pasa tal cual. Va DESPUÉS de AuthMiddleware.
func Idempotency(store cache.IdempotencyStore, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "Idempotency-Key demasiado larga"})
		}
		scope := cache.Scope{
			PrincipalID: GetUserID(c),
			Method:      c.Method(),
			Route:       c.Route().Path,
			Key:         key,
		}

		prev, reserved, err := store.Reserve(c.UserContext(), scope)
		if err != nil {
			log.Warn().Err(err).Msg("idempotency: reserva falló, se procesa la petición")
			return c.Next()
		}
		if prev != nil {
			c.Set(HeaderIdempotentReplay, "true")
			if prev.ContentType != "" {
				c.Set(fiber.HeaderContentType, prev.ContentType)
			}
			return c.Status(prev.Status).Send(prev.Body)
		}
		if !reserved {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_IN_PROGRESS",
				Message: "una petición con la misma Idempotency-Key sigue en curso",
			})
		}

		if err := c.Next(); err != nil {
			release(c, store, scope, log)
			return err
		}
		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			release(c, store, scope, log)
			return nil
		}
		resp := cache.Response{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.Remember(c.UserContext(), scope, resp); err != nil {
			log.Warn().Err(err).Msg("idempotency: no se pudo guardar la respuesta")
			release(c, store, scope, log)
		}
		return nil
	}
}

func release(c *fiber.Ctx, store cache.IdempotencyStore, scope cache.Scope, log *logger.Logger) {
	if err := store.Release(c.UserContext(), scope); err != nil {
		log.Warn().Err(err).Msg("idempotency: no se pudo liberar la reserva")
	}
}
