package dto

import "time"

// ApplyMovementRequest body para POST /stock/movements.
type ApplyMovementRequest struct {
	ProductID     string `json:"product_id"`
	MovementType  string `json:"movement_type"`
	Quantity      int    `json:"quantity"`
	ReferenceType string `json:"reference_type,omitempty"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	MovementType  string    `json:"movement_type"`
	Quantity      int       `json:"quantity"`
	ReferenceType string    `json:"reference_type"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// CreateLevelRequest body para POST /stock/levels.
type CreateLevelRequest struct {
	ProductID       string `json:"product_id"`
	InitialQuantity int    `json:"initial_quantity"`
	MinimumQuantity int    `json:"minimum_quantity"`
	MaximumQuantity *int   `json:"maximum_quantity"`
	Location        string `json:"location"`
}

// UpdateLevelRequest body para PUT/PATCH /stock/levels/:id. Los nil no se modifican.
// CurrentQuantity se traduce a un movimiento sintético de ajuste.
type UpdateLevelRequest struct {
	CurrentQuantity *int    `json:"current_quantity"`
	MinimumQuantity *int    `json:"minimum_quantity"`
	MaximumQuantity *int    `json:"maximum_quantity"`
	ClearMaximum    bool    `json:"clear_maximum"`
	Location        *string `json:"location"`
}

// LevelResponse salida de un nivel de stock.
type LevelResponse struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	CurrentQuantity int       `json:"current_quantity"`
	MinimumQuantity int       `json:"minimum_quantity"`
	MaximumQuantity *int      `json:"maximum_quantity"`
	Location        string    `json:"location"`
	Low             bool      `json:"low"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LevelListResponse lista paginada de niveles.
type LevelListResponse struct {
	Items []LevelResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// LevelUpdateResponse resultado de una edición directa; Adjustment presente si hubo ajuste.
type LevelUpdateResponse struct {
	Level      LevelResponse     `json:"level"`
	Adjustment *MovementResponse `json:"adjustment,omitempty"`
}

// LowStockAlert alerta de bajo stock.
type LowStockAlert struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	CurrentQuantity int    `json:"current_quantity"`
	MinimumQuantity int    `json:"minimum_quantity"`
	Deficit         int    `json:"deficit"` // minimum - current (0 en el umbral)
	Location        string `json:"location"`
}

// LedgerCheckResponse resultado de verificar nivel contra Σ movimientos.
type LedgerCheckResponse struct {
	ProductID       string `json:"product_id"`
	CurrentQuantity int    `json:"current_quantity"`
	MovementsSum    int    `json:"movements_sum"`
	Consistent      bool   `json:"consistent"`
}
