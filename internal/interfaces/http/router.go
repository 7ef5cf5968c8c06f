package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger-api/internal/application/auth"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/application/order"
	"github.com/jhoicas/inventario-ledger-api/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	CatalogUC   *usecase.CatalogUseCase
	ProductUC   *usecase.ProductUseCase
	Ledger      *inventory.LedgerUseCase
	Alerts      *inventory.AlertsUseCase
	OrderUC     *order.UseCase
	Idempotency cache.IdempotencyStore // nil = sin repetición de POST
	Log         *logger.Logger
	ServiceName string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")
	idem := deps.Idempotency
	if idem == nil {
		idem = cache.NopIdempotencyStore{}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	authn := AuthMiddleware(deps.AuthUC, log)
	admin := RequireAdmin()
	idempotent := Idempotency(idem, log)

	// Auth
	authHandler := NewAuthHandler(deps.AuthUC, log)
	authGroup := app.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", authn, authHandler.Me)

	// Users (admin)
	userHandler := NewUserHandler(deps.UserUC, log)
	users := app.Group("/users", authn, admin)
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Get("/:id", userHandler.GetByID)
	users.Patch("/:id", userHandler.Update)

	// Catálogo: lectura para autenticados, escritura solo admin
	catalogHandler := NewCatalogHandler(deps.CatalogUC, log)
	categories := app.Group("/categories", authn)
	categories.Get("/", catalogHandler.ListCategories)
	categories.Get("/:id", catalogHandler.GetCategory)
	categories.Post("/", admin, catalogHandler.CreateCategory)
	categories.Put("/:id", admin, catalogHandler.UpdateCategory)
	categories.Delete("/:id", admin, catalogHandler.DeleteCategory)

	suppliers := app.Group("/suppliers", authn)
	suppliers.Get("/", catalogHandler.ListSuppliers)
	suppliers.Get("/:id", catalogHandler.GetSupplier)
	suppliers.Post("/", admin, catalogHandler.CreateSupplier)
	suppliers.Put("/:id", admin, catalogHandler.UpdateSupplier)
	suppliers.Delete("/:id", admin, catalogHandler.DeleteSupplier)

	productHandler := NewProductHandler(deps.ProductUC, log)
	products := app.Group("/products", authn)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", admin, productHandler.Create)
	products.Put("/:id", admin, productHandler.Update)
	products.Delete("/:id", admin, productHandler.Delete)

	// Stock (admin). La autorización fina la repite el caso de uso.
	stockHandler := NewStockHandler(deps.Ledger, deps.Alerts, log)
	stock := app.Group("/stock", authn, admin)
	stock.Post("/movements", idempotent, stockHandler.ApplyMovement)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Get("/movements/:id", stockHandler.GetMovement)
	stock.Delete("/movements/:id", stockHandler.ReverseMovement)
	stock.Get("/levels", stockHandler.ListLevels)
	stock.Post("/levels", stockHandler.CreateLevel)
	stock.Get("/levels/:product_id/verify", stockHandler.VerifyLevel)
	stock.Get("/levels/:product_id", stockHandler.GetLevel)
	stock.Put("/levels/:id", stockHandler.ReplaceLevel)
	stock.Patch("/levels/:id", stockHandler.PatchLevel)
	stock.Get("/alerts", stockHandler.ListAlerts)
	stock.Get("/alerts/report", stockHandler.AlertsReport)

	// Pedidos
	orderHandler := NewOrderHandler(deps.OrderUC, log)
	orders := app.Group("/order", authn)
	orders.Post("/", idempotent, orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Patch("/:id/cancel", orderHandler.Cancel)
	orders.Patch("/:id", orderHandler.Update)
	orders.Delete("/:id", orderHandler.Delete)
}
