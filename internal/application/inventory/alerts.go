package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

// ErrReportUnavailable el servidor no tiene generador de reportes configurado.
var ErrReportUnavailable = errors.New("generador de reportes no configurado")

// AlertsUseCase arma la lista de productos en o bajo su mínimo y el reporte PDF asociado.
type AlertsUseCase struct {
	levelRepo   repository.StockLevelRepository
	productRepo repository.ProductRepository
	generator   ReportGenerator
	now         func() time.Time
}

// NewAlertsUseCase construye el caso de uso de alertas. generator puede ser nil.
func NewAlertsUseCase(
	levelRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	generator ReportGenerator,
) *AlertsUseCase {
	return &AlertsUseCase{
		levelRepo:   levelRepo,
		productRepo: productRepo,
		generator:   generator,
		now:         time.Now,
	}
}

// ListLowStock devuelve las alertas ordenadas por déficit (mayor primero) y luego por producto.
func (uc *AlertsUseCase) ListLowStock(ctx context.Context, actor authz.Principal) ([]dto.LowStockAlert, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}

	levels, err := uc.levelRepo.ListLow(ctx)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return []dto.LowStockAlert{}, nil
	}

	ids := make([]string, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.ProductID)
	}
	products, err := uc.productRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	alerts := make([]dto.LowStockAlert, 0, len(levels))
	for _, l := range levels {
		alerts = append(alerts, dto.LowStockAlert{
			ProductID:       l.ProductID,
			ProductName:     names[l.ProductID],
			CurrentQuantity: l.CurrentQuantity,
			MinimumQuantity: l.MinimumQuantity,
			Deficit:         l.MinimumQuantity - l.CurrentQuantity,
			Location:        l.Location,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Deficit != alerts[j].Deficit {
			return alerts[i].Deficit > alerts[j].Deficit
		}
		return alerts[i].ProductID < alerts[j].ProductID
	})
	return alerts, nil
}

// LowStockReport genera el PDF de alertas. Devuelve los bytes y el nombre de archivo sugerido.
func (uc *AlertsUseCase) LowStockReport(ctx context.Context, actor authz.Principal) ([]byte, string, error) {
	if uc.generator == nil {
		return nil, "", ErrReportUnavailable
	}
	alerts, err := uc.ListLowStock(ctx, actor)
	if err != nil {
		return nil, "", err
	}
	at := uc.now()
	pdf, err := uc.generator.GenerateLowStockReport(ctx, alerts, at)
	if err != nil {
		return nil, "", fmt.Errorf("reporte bajo stock: %w", err)
	}
	return pdf, fmt.Sprintf("bajo-stock-%s.pdf", at.Format("20060102-1504")), nil
}
