// Integration tests for the customer and invoice APIs against a real
// PostgreSQL database.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	invoiceapp "github.com/invoicehub/backend/internal/application/invoicing"
	partnerapp "github.com/invoicehub/backend/internal/application/partner"
	"github.com/invoicehub/backend/internal/domain/identity"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/infrastructure/persistence"
	"github.com/invoicehub/backend/internal/interfaces/http/handler"
	"github.com/invoicehub/backend/internal/interfaces/http/middleware"
	"github.com/invoicehub/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceNumberRe = regexp.MustCompile(`^INV-\d{8}-\d{4,}$`)

// InvoiceTestServer wraps the test database and HTTP server
type InvoiceTestServer struct {
	DB     *TestDB
	Engine *gin.Engine
}

// NewInvoiceTestServer wires repositories, services and handlers against a
// containerized database. Authentication is stubbed: the test user ID travels
// in the X-Test-User-ID header.
func NewInvoiceTestServer(t *testing.T) *InvoiceTestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	testDB := NewTestDB(t)

	customerRepo := persistence.NewGormCustomerRepository(testDB.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)

	customerService := partnerapp.NewCustomerService(customerRepo)
	invoiceService := invoiceapp.NewInvoiceService(invoiceRepo, customerRepo)

	customerHandler := handler.NewCustomerHandler(customerService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)

	engine := gin.New()
	engine.Use(testAuthMiddleware())

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	customerRoutes := router.NewDomainGroup("customers", "/customers")
	customerRoutes.POST("", customerHandler.Create)
	customerRoutes.GET("", customerHandler.List)
	customerRoutes.GET("/:id", customerHandler.Get)
	customerRoutes.PUT("/:id", customerHandler.Update)
	customerRoutes.DELETE("/:id", customerHandler.Delete)

	invoiceRoutes := router.NewDomainGroup("invoices", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Create)
	invoiceRoutes.GET("", invoiceHandler.List)
	invoiceRoutes.GET("/:id", invoiceHandler.Get)
	invoiceRoutes.PUT("/:id", invoiceHandler.Update)
	invoiceRoutes.DELETE("/:id", invoiceHandler.Delete)

	r.Register(customerRoutes).Register(invoiceRoutes)
	r.Setup()

	return &InvoiceTestServer{
		DB:     testDB,
		Engine: engine,
	}
}

// testAuthMiddleware injects the authenticated user from a test header,
// standing in for the JWT middleware
func testAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User-ID"); userID != "" {
			c.Set(middleware.JWTUserIDKey, userID)
		}
		c.Next()
	}
}

// Request performs an HTTP request as the given user
func (ts *InvoiceTestServer) Request(t *testing.T, user *identity.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User-ID", user.ID.String())
	}

	w := httptest.NewRecorder()
	ts.Engine.ServeHTTP(w, req)
	return w
}

type responseEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, "expected success envelope, body: %s", w.Body.String())
	var data T
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error, "expected error envelope, body: %s", w.Body.String())
	return env.Error.Code
}

func (ts *InvoiceTestServer) createCustomer(t *testing.T, user *identity.User, name string) partnerapp.CustomerResponse {
	t.Helper()
	w := ts.Request(t, user, http.MethodPost, "/customers", map[string]interface{}{
		"name":  name,
		"email": "billing@example.test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[partnerapp.CustomerResponse](t, w)
}

func (ts *InvoiceTestServer) createInvoice(t *testing.T, user *identity.User, customerID uuid.UUID, items []map[string]interface{}) invoiceapp.InvoiceResponse {
	t.Helper()
	w := ts.Request(t, user, http.MethodPost, "/invoices", map[string]interface{}{
		"customer_id": customerID,
		"due_date":    time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339),
		"items":       items,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[invoiceapp.InvoiceResponse](t, w)
}

func twoLineItems() []map[string]interface{} {
	return []map[string]interface{}{
		{"item_name": "Consulting", "qty": 2, "price": "50000"},
		{"item_name": "Deployment", "qty": 1, "price": "75000"},
	}
}

// updateBody builds a full update payload; updates always carry the complete
// document, so customer and due date are part of every request
func updateBody(customerID uuid.UUID, items []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"customer_id": customerID,
		"due_date":    time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339),
		"items":       items,
	}
}

func TestInvoiceAPI_CreateComputesTotals(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("creator")
	customer := ts.createCustomer(t, user, "Acme Corp")

	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	assert.Regexp(t, invoiceNumberRe, invoice.InvoiceNumber)
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(175000)),
		"expected total 175000, got %s", invoice.Total)
	assert.Len(t, invoice.Items, 2)
	for _, item := range invoice.Items {
		expected := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		assert.True(t, item.Subtotal.Equal(expected))
	}
}

func TestInvoiceAPI_CreateRejectsEmptyItems(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("emptyitems")
	customer := ts.createCustomer(t, user, "Acme Corp")

	w := ts.Request(t, user, http.MethodPost, "/invoices", map[string]interface{}{
		"customer_id": customer.ID,
		"due_date":    time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339),
		"items":       []map[string]interface{}{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing must have been written
	var count int64
	require.NoError(t, ts.DB.DB.Table("invoices").Count(&count).Error)
	assert.Zero(t, count)
}

func TestInvoiceAPI_CreateRejectsUnknownCustomer(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("nocustomer")

	w := ts.Request(t, user, http.MethodPost, "/invoices", map[string]interface{}{
		"customer_id": uuid.New(),
		"due_date":    time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339),
		"items":       twoLineItems(),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", errorCode(t, w))
}

func TestInvoiceAPI_UpdateReplacesItems(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("updater")
	customer := ts.createCustomer(t, user, "Acme Corp")
	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	w := ts.Request(t, user, http.MethodPut, "/invoices/"+invoice.ID.String(), updateBody(customer.ID, []map[string]interface{}{
		{"item_name": "Annual license", "qty": 3, "price": "100000"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeData[invoiceapp.InvoiceResponse](t, w)

	assert.True(t, updated.Total.Equal(decimal.NewFromInt(300000)),
		"expected total 300000, got %s", updated.Total)
	assert.Len(t, updated.Items, 1)
	assert.Equal(t, invoice.InvoiceNumber, updated.InvoiceNumber)
	assert.Greater(t, updated.Version, invoice.Version)

	// The old item rows must be gone, not orphaned
	var count int64
	require.NoError(t, ts.DB.DB.Table("invoice_items").
		Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInvoiceAPI_UpdateDetectsStaleVersion(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("staleversion")
	customer := ts.createCustomer(t, user, "Acme Corp")
	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	staleVersion := invoice.Version

	// First update succeeds and bumps the version
	first := updateBody(customer.ID, []map[string]interface{}{{"item_name": "Support", "qty": 1, "price": "10000"}})
	first["version"] = staleVersion
	w := ts.Request(t, user, http.MethodPut, "/invoices/"+invoice.ID.String(), first)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Second update with the original version must conflict
	second := updateBody(customer.ID, []map[string]interface{}{{"item_name": "Support", "qty": 2, "price": "10000"}})
	second["version"] = staleVersion
	w = ts.Request(t, user, http.MethodPut, "/invoices/"+invoice.ID.String(), second)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_CONCURRENCY_CONFLICT", errorCode(t, w))
}

func TestInvoiceAPI_DeleteCascadesItems(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("deleter")
	customer := ts.createCustomer(t, user, "Acme Corp")
	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	w := ts.Request(t, user, http.MethodDelete, "/invoices/"+invoice.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var invoiceCount, itemCount int64
	require.NoError(t, ts.DB.DB.Table("invoices").Where("id = ?", invoice.ID).Count(&invoiceCount).Error)
	require.NoError(t, ts.DB.DB.Table("invoice_items").Where("invoice_id = ?", invoice.ID).Count(&itemCount).Error)
	assert.Zero(t, invoiceCount)
	assert.Zero(t, itemCount)
}

func TestInvoiceAPI_OwnershipIsEnforced(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	owner := ts.DB.CreateTestUser("owner")
	intruder := ts.DB.CreateTestUser("intruder")
	customer := ts.createCustomer(t, owner, "Acme Corp")
	invoice := ts.createInvoice(t, owner, customer.ID, twoLineItems())

	path := "/invoices/" + invoice.ID.String()

	w := ts.Request(t, intruder, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ERR_FORBIDDEN", errorCode(t, w))

	w = ts.Request(t, intruder, http.MethodPut, path,
		updateBody(customer.ID, []map[string]interface{}{{"item_name": "Hijack", "qty": 1, "price": "1"}}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.Request(t, intruder, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owner is unaffected
	w = ts.Request(t, owner, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvoiceAPI_ListIsScopedToOwner(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	alice := ts.DB.CreateTestUser("alice")
	bob := ts.DB.CreateTestUser("bob")
	aliceCustomer := ts.createCustomer(t, alice, "Alice Corp")
	bobCustomer := ts.createCustomer(t, bob, "Bob Corp")

	for i := 0; i < 3; i++ {
		ts.createInvoice(t, alice, aliceCustomer.ID, twoLineItems())
	}
	ts.createInvoice(t, bob, bobCustomer.ID, twoLineItems())

	w := ts.Request(t, alice, http.MethodGet, "/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	invoices := decodeData[[]invoiceapp.InvoiceResponse](t, w)
	assert.Len(t, invoices, 3)

	w = ts.Request(t, bob, http.MethodGet, "/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	invoices = decodeData[[]invoiceapp.InvoiceResponse](t, w)
	assert.Len(t, invoices, 1)
}

func TestInvoiceAPI_InvoiceNumbersIncrement(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("numbering")
	customer := ts.createCustomer(t, user, "Acme Corp")

	first := ts.createInvoice(t, user, customer.ID, twoLineItems())
	second := ts.createInvoice(t, user, customer.ID, twoLineItems())

	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("20060102"))
	assert.Contains(t, first.InvoiceNumber, prefix)
	assert.Contains(t, second.InvoiceNumber, prefix)
	assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Greater(t, second.InvoiceNumber, first.InvoiceNumber)
}

func TestInvoiceAPI_UpdateRequiresFullDocument(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("fulldoc")
	customer := ts.createCustomer(t, user, "Acme Corp")
	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	// Items alone are not enough: the customer and due date must be resent
	w := ts.Request(t, user, http.MethodPut, "/invoices/"+invoice.ID.String(), map[string]interface{}{
		"items": []map[string]interface{}{{"item_name": "Support", "qty": 1, "price": "10000"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// Omitting only the due date fails the same way
	w = ts.Request(t, user, http.MethodPut, "/invoices/"+invoice.ID.String(), map[string]interface{}{
		"customer_id": customer.ID,
		"items":       []map[string]interface{}{{"item_name": "Support", "qty": 1, "price": "10000"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// The invoice is untouched by the rejected requests
	w = ts.Request(t, user, http.MethodGet, "/invoices/"+invoice.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	unchanged := decodeData[invoiceapp.InvoiceResponse](t, w)
	assert.Len(t, unchanged.Items, 2)
	assert.Equal(t, invoice.Version, unchanged.Version)
}

func TestInvoiceAPI_NumberSequenceIsGlobalAndNumeric(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("globalseq")
	customer := ts.createCustomer(t, user, "Acme Corp")

	// Seed history from earlier days, with the sequence already past four
	// digits. Lexicographically "-9999" sorts above "-10000", so a string
	// max would re-issue a taken number here.
	due := time.Now().AddDate(0, 1, 0)
	for _, number := range []string{"INV-20250101-9999", "INV-20250102-10000"} {
		seeded, err := invoicing.NewInvoice(user.ID, number, customer.ID, due)
		require.NoError(t, err)
		require.NoError(t, ts.DB.DB.Create(seeded).Error)
	}

	created := ts.createInvoice(t, user, customer.ID, twoLineItems())

	// The counter is global and never resets: today's invoice continues
	// from the all-time maximum
	expected := fmt.Sprintf("INV-%s-10001", time.Now().Format("20060102"))
	assert.Equal(t, expected, created.InvoiceNumber)
}

func TestCustomerAPI_DeleteBlockedByInvoices(t *testing.T) {
	ts := NewInvoiceTestServer(t)
	user := ts.DB.CreateTestUser("custdelete")
	customer := ts.createCustomer(t, user, "Acme Corp")
	invoice := ts.createInvoice(t, user, customer.ID, twoLineItems())

	w := ts.Request(t, user, http.MethodDelete, "/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_CUSTOMER_IN_USE", errorCode(t, w))

	// After the invoice is gone the customer can be deleted
	w = ts.Request(t, user, http.MethodDelete, "/invoices/"+invoice.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.Request(t, user, http.MethodDelete, "/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
