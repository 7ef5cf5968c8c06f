package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
)

func TestGenerateLowStockReport(t *testing.T) {
	g := NewMarotoReportGenerator("inventario-ledger")
	alerts := []dto.LowStockAlert{
		{ProductID: "p1", ProductName: "Tornillo 3mm", CurrentQuantity: 2, MinimumQuantity: 10, Deficit: 8, Location: "A-1"},
		{ProductID: "p2", ProductName: "Tuerca", CurrentQuantity: 5, MinimumQuantity: 5, Deficit: 0},
	}

	out, err := g.GenerateLowStockReport(context.Background(), alerts, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateLowStockReport_Empty(t *testing.T) {
	out, err := NewMarotoReportGenerator("x").GenerateLowStockReport(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", formatUnits(0))
	assert.Equal(t, "999", formatUnits(999))
	assert.Equal(t, "25.000", formatUnits(25000))
	assert.Equal(t, "1.000.000", formatUnits(1000000))
	assert.Equal(t, "-1.500", formatUnits(-1500))
}
