// Package pdf genera el reporte imprimible de bajo stock.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + generado el                               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Ubicación | Actual | Mínimo | Déficit     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: productos en alerta / unidades faltantes           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 178, Green: 34, Blue: 34}
)

var _ inventory.ReportGenerator = (*MarotoReportGenerator)(nil)

// MarotoReportGenerator implementa inventory.ReportGenerator usando Maroto v2.
type MarotoReportGenerator struct {
	author string
}

// NewMarotoReportGenerator construye el generador; author se escribe en los metadatos del PDF.
func NewMarotoReportGenerator(author string) *MarotoReportGenerator {
	return &MarotoReportGenerator{author: author}
}

// GenerateLowStockReport genera el PDF y devuelve sus bytes. Las alertas llegan ya ordenadas.
func (g *MarotoReportGenerator) GenerateLowStockReport(
	_ context.Context,
	alerts []dto.LowStockAlert,
	generatedAt time.Time,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de bajo stock", true).
		WithAuthor(g.author, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(alerts) == 0 {
		m.AddRows(row.New(12).Add(col.New(12).Add(
			text.New("Ningún producto está en o por debajo de su mínimo.", props.Text{
				Size: 10, Align: align.Center, Top: 4, Color: colorGray,
			}),
		)))
	} else {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableRows(alerts)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(alerts))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(generatedAt time.Time) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New("REPORTE DE BAJO STOCK", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Productos con cantidad actual en o por debajo del mínimo", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 5, align.Left),
		h("Ubicación", 3, align.Left),
		h("Actual", 1, align.Right),
		h("Mínimo", 1, align.Right),
		h("Déficit", 2, align.Right),
	)
}

// tableRows: una fila por alerta; el déficit se resalta cuando es positivo.
func tableRows(alerts []dto.LowStockAlert) []core.Row {
	result := make([]core.Row, 0, len(alerts))
	for _, a := range alerts {
		deficit := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
		if a.Deficit > 0 {
			deficit.Style = fontstyle.Bold
			deficit.Color = colorAlert
		}
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(nonEmpty(a.ProductName, a.ProductID), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(nonEmpty(a.Location, "-"), props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray})),
			col.New(1).Add(text.New(strconv.Itoa(a.CurrentQuantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(strconv.Itoa(a.MinimumQuantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(strconv.Itoa(a.Deficit), deficit)),
		))
	}
	return result
}

func summaryRow(alerts []dto.LowStockAlert) core.Row {
	missing := 0
	for _, a := range alerts {
		missing += a.Deficit
	}
	return row.New(12).Add(
		col.New(6),
		col.New(6).Add(
			text.New(fmt.Sprintf("Productos en alerta: %d", len(alerts)), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: 1,
			}),
			text.New("Unidades faltantes: "+formatUnits(missing), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: 6, Color: colorPrimary,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatUnits inserta puntos de miles. Ej: 25000 → "25.000".
func formatUnits(n int) string {
	if n < 0 {
		return "-" + formatUnits(-n)
	}
	s := strconv.Itoa(n)
	l := len(s)
	if l <= 3 {
		return s
	}
	buf := make([]byte, 0, l+l/3)
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
