package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-ledger-api/docs"
	"github.com/jhoicas/inventario-ledger-api/internal/application/auth"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/application/order"
	"github.com/jhoicas/inventario-ledger-api/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/cache"
	infrakafka "github.com/jhoicas/inventario-ledger-api/internal/infrastructure/kafka"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventario-ledger-api/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger-api/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger-api/pkg/config"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// storage agrupa los repositorios y el runner transaccional del driver elegido.
type storage struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	products   repository.ProductRepository
	levels     repository.StockLevelRepository
	movements  repository.StockMovementRepository
	orders     repository.OrderRepository
	tx         inventory.TxRunner
	close      func()
}

// @title                       Inventario Ledger API
// @version                     1.0
// @description                 Catálogo, ledger de stock y pedidos.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStorage(ctx, cfg, log)
	defer st.close()

	// Idempotencia de POST: Redis si está configurado
	var idem cache.IdempotencyStore = cache.NopIdempotencyStore{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer rdb.Close()
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotencia sobre Redis")
	}

	// Eventos del ledger: Kafka si hay brokers
	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	var kafkaPub *infrakafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub = infrakafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, 256, log)
		publisher = kafkaPub
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos de stock hacia Kafka")
	}

	authUC := auth.NewAuthUseCase(st.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if cfg.Bootstrap.AdminEmail != "" {
		created, err := authUC.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("crear admin inicial")
		}
		if created {
			log.Info().Str("email", cfg.Bootstrap.AdminEmail).Msg("admin inicial creado")
		}
	}

	ledger := inventory.NewLedgerUseCase(
		st.tx, st.levels, st.movements, st.products, publisher,
		inventory.Policy{DefaultMaxQuantity: cfg.Stock.DefaultMaxQuantity}, log,
	)
	alerts := inventory.NewAlertsUseCase(st.levels, st.products, infrapdf.NewMarotoReportGenerator(cfg.App.Name))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI: http://localhost:<port>/docs (solo si el JSON generado existe)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    docs.SwaggerInfo.Title,
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger.json no encontrado, /docs deshabilitado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(st.users),
		CatalogUC:   usecase.NewCatalogUseCase(st.categories, st.suppliers, st.products),
		ProductUC:   usecase.NewProductUseCase(st.products, st.categories, st.suppliers),
		Ledger:      ledger,
		Alerts:      alerts,
		OrderUC:     order.NewUseCase(st.orders, st.products, st.users),
		Idempotency: idem,
		Log:         log,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("cierre del publisher de Kafka")
		}
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return storage{
			users:      s.Users(),
			categories: s.Categories(),
			suppliers:  s.Suppliers(),
			products:   s.Products(),
			levels:     s.Levels(),
			movements:  s.Movements(),
			orders:     s.Orders(),
			tx:         s,
			close:      func() {},
		}
	}

	if cfg.DB.AutoMigrate {
		version, err := postgres.Migrate(cfg.DB.ConnectionString())
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones de PostgreSQL")
		}
		log.Info().Uint("version", version).Msg("migraciones aplicadas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	return storage{
		users:      postgres.NewUserRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		suppliers:  postgres.NewSupplierRepository(pool),
		products:   postgres.NewProductRepository(pool),
		levels:     postgres.NewStockLevelRepository(pool),
		movements:  postgres.NewStockMovementRepository(pool),
		orders:     postgres.NewOrderRepository(pool),
		tx:         postgres.NewTxRunner(pool),
		close:      pool.Close,
	}
}
