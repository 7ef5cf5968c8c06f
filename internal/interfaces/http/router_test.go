package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger-api/internal/application/auth"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/application/order"
	"github.com/jhoicas/inventario-ledger-api/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-ledger-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-ledger-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testIssuer    = "inventario-ledger-test"
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type memIdempotency struct {
	mu    sync.Mutex
	items map[cache.Scope]cache.Response
}

func (m *memIdempotency) Reserve(_ context.Context, scope cache.Scope) (*cache.Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[scope]
	if !ok {
		m.items[scope] = cache.Response{}
		return nil, true, nil
	}
	if r.Pending() {
		return nil, false, nil
	}
	return &r, false, nil
}

func (m *memIdempotency) Remember(_ context.Context, scope cache.Scope, resp cache.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[scope] = resp
	return nil
}

func (m *memIdempotency) Release(_ context.Context, scope cache.Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, scope)
	return nil
}

type testEnv struct {
	app   *fiber.App
	store *memory.Store
	idem  *memIdempotency
}

// newTestEnv arma la API completa sobre el store en memoria con un admin inicial.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	authUC := auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 60, Issuer: testIssuer})
	_, err := authUC.EnsureBootstrapAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	idem := &memIdempotency{items: map[cache.Scope]cache.Response{}}
	ledger := inventory.NewLedgerUseCase(store, store.Levels(), store.Movements(), store.Products(), nil, inventory.Policy{}, nil)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(store.Users()),
		CatalogUC:   usecase.NewCatalogUseCase(store.Categories(), store.Suppliers(), store.Products()),
		ProductUC:   usecase.NewProductUseCase(store.Products(), store.Categories(), store.Suppliers()),
		Ledger:      ledger,
		Alerts:      inventory.NewAlertsUseCase(store.Levels(), store.Products(), nil),
		OrderUC:     order.NewUseCase(store.Orders(), store.Products(), store.Users()),
		Idempotency: idem,
		ServiceName: "test",
	})
	return &testEnv{app: app, store: store, idem: idem}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

// registerUser registra un usuario no-admin y devuelve su token.
func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{Email: email, Password: "password-123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return e.login(t, email, "password-123")
}

func (e *testEnv) createProduct(t *testing.T, token, name, price string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/products", token, map[string]any{"name": name, "price": price})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &p))
	return p.ID
}

func decodeError(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok"`)
}

func TestAuth_SinHeader_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, body).Code)
}

func TestAuth_TokenInvalido_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/auth/me", "token.invalido.aqui", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, body).Code)
}

func TestAuth_TokenExpirado_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	tok, err := pkgjwt.Generate(testJWTSecret, "00000000-0000-0000-0000-000000000001", "admin", testIssuer, -1)
	require.NoError(t, err)
	resp, body := env.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_EXPIRED", decodeError(t, body).Code)
}

func TestAuth_UsuarioInexistente_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	tok, err := pkgjwt.Generate(testJWTSecret, "00000000-0000-0000-0000-000000000099", "admin", testIssuer, 60)
	require.NoError(t, err)
	resp, body := env.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_PRINCIPAL", decodeError(t, body).Code)
}

func TestAuth_LoginYMe(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)

	resp, body := env.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, adminEmail, me.Email)
	assert.True(t, me.Admin)
}

func TestAuth_LoginPasswordIncorrecto(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: adminEmail, Password: "otra-cosa"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, body).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Autorización
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_NoAdminRecibeForbiddenRole(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, adminTok, "Tornillo", "1.50")
	userTok := env.registerUser(t, "packer@example.com")

	resp, body := env.do(t, http.MethodPost, "/stock/movements", userTok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 5})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "FORBIDDEN", e.Code)
	assert.Equal(t, "forbidden_role", e.Reason)
}

func TestCatalog_NoAdminPuedeLeerPeroNoEscribir(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, adminEmail, adminPassword)
	env.createProduct(t, adminTok, "Tuerca", "0.80")
	userTok := env.registerUser(t, "reader@example.com")

	resp, _ := env.do(t, http.MethodGet, "/products", userTok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/products", userTok, map[string]any{"name": "Arandela", "price": "0.10"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_FlujoCompleto(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Martillo", "25.00")

	resp, body := env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 10, ReferenceType: "return"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var mov dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &mov))

	resp, body = env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "out", Quantity: 15})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decodeError(t, body).Code)

	resp, body = env.do(t, http.MethodGet, "/stock/levels/"+productID, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var level dto.LevelResponse
	require.NoError(t, json.Unmarshal(body, &level))
	assert.Equal(t, 10, level.CurrentQuantity)

	resp, _ = env.do(t, http.MethodDelete, "/stock/movements/"+mov.ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/stock/levels/"+productID+"/verify", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check dto.LedgerCheckResponse
	require.NoError(t, json.Unmarshal(body, &check))
	assert.Equal(t, 0, check.CurrentQuantity)
	assert.True(t, check.Consistent)

	resp, body = env.do(t, http.MethodDelete, "/stock/movements/"+mov.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "MOVEMENT_NOT_FOUND", decodeError(t, body).Code)
}

func TestStock_ProductoInexistente(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	resp, body := env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: "00000000-0000-0000-0000-0000000000aa", MovementType: "in", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, body).Code)
}

func TestStock_ReversionNegativa(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Sierra", "40.00")

	_, body := env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 10})
	var in dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &in))
	resp, _ := env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "out", Quantity: 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, "/stock/movements/"+in.ID, tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NEGATIVE_STOCK_ON_REVERSAL", decodeError(t, body).Code)
}

func TestStock_IdempotencyKeyRepiteRespuesta(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Taladro", "120.00")
	req := dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 10}

	resp1, body1 := env.do(t, http.MethodPost, "/stock/movements", tok, req, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, resp1.StatusCode)
	resp2, body2 := env.do(t, http.MethodPost, "/stock/movements", tok, req, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	assert.Equal(t, "true", resp2.Header.Get(apphttp.HeaderIdempotentReplay))
	assert.JSONEq(t, string(body1), string(body2))

	_, body := env.do(t, http.MethodGet, "/stock/levels/"+productID, tok, nil)
	var level dto.LevelResponse
	require.NoError(t, json.Unmarshal(body, &level))
	assert.Equal(t, 10, level.CurrentQuantity)
}

func TestIdempotency_MismaClaveEnOtraRutaNoRepite(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Escalera", "10.00")

	resp, _ := env.do(t, http.MethodPost, "/stock/movements", tok,
		dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 10},
		apphttp.HeaderIdempotencyKey, "k-x")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/order", tok,
		dto.CreateOrderRequest{ProductID: productID, Quantity: 2},
		apphttp.HeaderIdempotencyKey, "k-x")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Empty(t, resp.Header.Get(apphttp.HeaderIdempotentReplay))
	var o dto.OrderResponse
	require.NoError(t, json.Unmarshal(body, &o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 2, o.Quantity)
	assert.Equal(t, "20.00", o.TotalPrice.StringFixed(2))
}

func TestIdempotency_ClaveEnCursoRetorna409(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Pala", "7.00")

	resp, body := env.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &me))

	// reserva tomada por una petición anterior que todavía no terminó
	pending := cache.Scope{PrincipalID: me.ID, Method: http.MethodPost, Route: "/stock/movements", Key: "k-busy"}
	_, reserved, err := env.idem.Reserve(context.Background(), pending)
	require.NoError(t, err)
	require.True(t, reserved)

	req := dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 3}
	resp, body = env.do(t, http.MethodPost, "/stock/movements", tok, req, apphttp.HeaderIdempotencyKey, "k-busy")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "IDEMPOTENCY_IN_PROGRESS", decodeError(t, body).Code)

	resp, _ = env.do(t, http.MethodGet, "/stock/levels/"+productID, tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIdempotency_ErrorLiberaLaClave(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Rastrillo", "5.00")

	out := dto.ApplyMovementRequest{ProductID: productID, MovementType: "out", Quantity: 1}
	resp, _ := env.do(t, http.MethodPost, "/stock/movements", tok, out, apphttp.HeaderIdempotencyKey, "k-retry")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	in := dto.ApplyMovementRequest{ProductID: productID, MovementType: "in", Quantity: 1}
	resp, _ = env.do(t, http.MethodPost, "/stock/movements", tok, in, apphttp.HeaderIdempotencyKey, "k-retry")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(apphttp.HeaderIdempotentReplay))
}

func TestStock_EdicionDeNivelGeneraAjuste(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, tok, "Llave", "9.00")

	resp, body := env.do(t, http.MethodPost, "/stock/levels", tok,
		dto.CreateLevelRequest{ProductID: productID, InitialQuantity: 5, MinimumQuantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created dto.LevelUpdateResponse
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = env.do(t, http.MethodPost, "/stock/levels", tok, dto.CreateLevelRequest{ProductID: productID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	target := 1
	resp, body = env.do(t, http.MethodPatch, "/stock/levels/"+created.Level.ID, tok, dto.UpdateLevelRequest{CurrentQuantity: &target})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated dto.LevelUpdateResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, 1, updated.Level.CurrentQuantity)
	assert.True(t, updated.Level.Low)
	require.NotNil(t, updated.Adjustment)
	assert.Equal(t, "out", updated.Adjustment.MovementType)
	assert.Equal(t, 4, updated.Adjustment.Quantity)

	resp, body = env.do(t, http.MethodGet, "/stock/alerts", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), productID)

	resp, body = env.do(t, http.MethodGet, "/stock/alerts/report", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "REPORT_UNAVAILABLE", decodeError(t, body).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pedidos
// ──────────────────────────────────────────────────────────────────────────────

func TestOrder_TotalYPropiedad(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, adminTok, "Pintura", "19.99")
	aliceTok := env.registerUser(t, "alice@example.com")
	bobTok := env.registerUser(t, "bob@example.com")

	resp, body := env.do(t, http.MethodPost, "/order", aliceTok, dto.CreateOrderRequest{ProductID: productID, Quantity: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var o dto.OrderResponse
	require.NoError(t, json.Unmarshal(body, &o))
	assert.Equal(t, "59.97", o.TotalPrice.StringFixed(2))
	assert.Equal(t, "PENDING", o.Status)

	resp, body = env.do(t, http.MethodPost, "/order", aliceTok, dto.CreateOrderRequest{ProductID: productID, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodGet, "/order/"+o.ID, bobTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_owner", decodeError(t, body).Reason)

	resp, body = env.do(t, http.MethodGet, "/order", bobTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bobList dto.OrderListResponse
	require.NoError(t, json.Unmarshal(body, &bobList))
	assert.Empty(t, bobList.Items)

	resp, body = env.do(t, http.MethodGet, "/order", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all dto.OrderListResponse
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all.Items, 1)

	resp, body = env.do(t, http.MethodPatch, "/order/"+o.ID+"/cancel", aliceTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodPatch, "/order/"+o.ID+"/cancel", aliceTok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, body).Code)
}

func TestOrder_NoAdminNoCambiaEstado(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, adminEmail, adminPassword)
	productID := env.createProduct(t, adminTok, "Brocha", "3.00")
	userTok := env.registerUser(t, "carol@example.com")

	_, body := env.do(t, http.MethodPost, "/order", userTok, dto.CreateOrderRequest{ProductID: productID, Quantity: 1})
	var o dto.OrderResponse
	require.NoError(t, json.Unmarshal(body, &o))

	confirmed := "CONFIRMED"
	resp, body := env.do(t, http.MethodPatch, "/order/"+o.ID, userTok, dto.UpdateOrderRequest{Status: &confirmed})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden_role", decodeError(t, body).Reason)

	resp, _ = env.do(t, http.MethodPatch, "/order/"+o.ID, adminTok, dto.UpdateOrderRequest{Status: &confirmed})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
