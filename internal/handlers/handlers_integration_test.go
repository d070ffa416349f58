package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"veloce/internal/config"
	"veloce/internal/database"
	"veloce/internal/middleware"
	"veloce/internal/models"
	"veloce/internal/notify"
	"veloce/internal/repositories"
	"veloce/internal/server"
	"veloce/internal/services"
	"veloce/internal/storage"
	"veloce/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	adminEmail    = "admin@veloce.store"
	adminPassword = "correct horse"
)

// recordingSender captures outbound mail; err makes every send fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.sent...)
}

func (s *recordingSender) Active() bool { return true }

type testApp struct {
	app        *fiber.App
	products   repositories.ProductRepository
	orders     repositories.OrderRepository
	dispatcher *notify.Dispatcher
	staticDir  string
}

// setupApp wires the full application against a private in-memory SQLite
// database. sender may be nil for an unconfigured mail transport.
func setupApp(t *testing.T, sender notify.Sender) *testApp {
	t.Helper()
	log := zaptest.NewLogger(t)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	images, err := storage.NewLocalImageStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	hasher := token.NewBcryptHasher(4)
	hash, err := hasher.Hash(adminPassword)
	require.NoError(t, err)
	codec, err := token.New(token.FormatHMAC, "integration-secret", token.Options{})
	require.NoError(t, err)
	authService := services.NewAuthService(codec, hasher, services.AuthConfig{
		AdminEmail:   adminEmail,
		PasswordHash: hash,
		SessionTTL:   time.Hour,
	}, log)

	dispatcher := notify.NewDispatcher(sender, "shop@veloce.store", "orders@veloce.store", log)
	t.Cleanup(dispatcher.Wait)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("storefront"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "admin.html"), []byte("dashboard"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "admin", "login"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "admin", "login", "index.html"), []byte("login"), 0o644))

	app := server.New(server.Options{
		UploadDir: images.Dir(),
		StaticDir: staticDir,
	}, server.Deps{
		Auth:     authService,
		Products: services.NewProductService(productRepo, images, log),
		Orders:   services.NewOrderService(orderRepo, dispatcher, nil, log),
		Contact:  dispatcher,
		Mail:     &recordingSender{},
		Log:      log,
	})

	return &testApp{
		app:        app,
		products:   productRepo,
		orders:     orderRepo,
		dispatcher: dispatcher,
		staticDir:  staticDir,
	}
}

func (ta *testApp) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// formRequest builds a multipart request; file, when non-nil, is sent as
// the "image" field.
func formRequest(t *testing.T, method, target string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("image", "shoe.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (ta *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()
	resp := ta.do(t, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	}), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func productFields(name, category string) map[string]string {
	return map[string]string{
		"name":        name,
		"category":    category,
		"price":       "89.99",
		"stock":       "7",
		"description": "Hand-stitched",
		"imageUrl":    "https://cdn.example.com/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")) + ".jpg",
	}
}

func TestAdminSession(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{
		"email": adminEmail, "password": "wrong",
	}), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())

	cookie := ta.login(t)
	assert.True(t, cookie.HttpOnly)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me map[string]string
	decode(t, resp, &me)
	assert.Equal(t, adminEmail, me["email"])

	resp = ta.do(t, httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, resp.Cookies(), 1)
	assert.Empty(t, resp.Cookies()[0].Value)

	// A tampered credential is rejected.
	forged := &http.Cookie{Name: middleware.SessionCookie, Value: cookie.Value + "x"}
	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil), forged)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateProductWithoutAuthPerformsNoWrite(t *testing.T) {
	ta := setupApp(t, nil)
	ctx := context.Background()

	before, err := ta.products.Count(ctx)
	require.NoError(t, err)

	for _, cookie := range []*http.Cookie{nil, {Name: middleware.SessionCookie, Value: "garbage.token"}} {
		resp := ta.do(t, formRequest(t, http.MethodPost, "/api/products", productFields("Intruder", models.CategorySandals), nil), cookie)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	after, err := ta.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProductLifecycle(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.login(t)

	var created struct {
		Message string         `json:"message"`
		ID      int64          `json:"id"`
		Product models.Product `json:"product"`
	}
	resp := ta.do(t, formRequest(t, http.MethodPost, "/api/products", productFields("Classic Sandal", models.CategorySandals), nil), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &created)
	assert.Equal(t, "Product added successfully", created.Message)
	require.NotZero(t, created.ID)
	assert.Equal(t, "https://cdn.example.com/classic-sandal.jpg", created.Product.Image)
	assert.Equal(t, created.Product.Image, created.Product.HoverImage)
	assert.True(t, created.Product.Price.Equal(decimal.RequireFromString("89.99")))

	// Update without an image source clears the image.
	fields := productFields("Classic Sandal v2", models.CategorySandals)
	delete(fields, "imageUrl")
	resp = ta.do(t, formRequest(t, http.MethodPut, "/api/products/"+itoa(created.ID), fields, nil), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+itoa(created.ID), nil), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Product
	decode(t, resp, &got)
	assert.Equal(t, "Classic Sandal v2", got.Name)
	assert.Empty(t, got.Image)
	assert.Equal(t, 7, got.Stock)

	resp = ta.do(t, formRequest(t, http.MethodPut, "/api/products/9999", productFields("Ghost", models.CategoryFormal), nil), cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+itoa(created.ID), nil), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Deleting again, or deleting an id that never existed, still succeeds.
	for _, id := range []string{itoa(created.ID), "424242"} {
		resp = ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil), cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+itoa(created.ID), nil), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateProductWithUpload(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.login(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1200, 600))))

	fields := productFields("Court Sneaker", models.CategorySneakers)
	delete(fields, "imageUrl")
	resp := ta.do(t, formRequest(t, http.MethodPost, "/api/products", fields, img.Bytes()), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var created struct {
		Product models.Product `json:"product"`
	}
	decode(t, resp, &created)
	require.True(t, strings.HasPrefix(created.Product.Image, "http://example.com/uploads/"), created.Product.Image)

	// The stored file is served back under /uploads.
	path := strings.TrimPrefix(created.Product.Image, "http://example.com")
	resp = ta.do(t, httptest.NewRequest(http.MethodGet, path, nil), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.login(t)

	noImage := productFields("No Image", models.CategoryFormal)
	delete(noImage, "imageUrl")
	badCategory := productFields("Boot", "Boots")
	badPrice := productFields("Cheap", models.CategoryFormal)
	badPrice["price"] = "free"

	for _, fields := range []map[string]string{noImage, badCategory, badPrice} {
		resp := ta.do(t, formRequest(t, http.MethodPost, "/api/products", fields, nil), cookie)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, fields["name"])
	}

	count, err := ta.products.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListProductsFilters(t *testing.T) {
	ta := setupApp(t, nil)
	ctx := context.Background()

	for _, p := range []models.Product{
		{Name: "Sandal A", Category: models.CategorySandals, Price: decimal.NewFromInt(50), BestSeller: true},
		{Name: "Sandal B", Category: models.CategorySandals, Price: decimal.NewFromInt(150)},
		{Name: "Oxford", Category: models.CategoryFormal, Price: decimal.NewFromInt(250)},
	} {
		require.NoError(t, ta.products.Create(ctx, &p))
	}

	list := func(query string) []string {
		resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/products"+query, nil), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var products []models.Product
		decode(t, resp, &products)
		names := make([]string, 0, len(products))
		for _, p := range products {
			names = append(names, p.Name)
		}
		return names
	}

	assert.ElementsMatch(t, []string{"Sandal A", "Sandal B"}, list("?category=Sandals"))
	assert.ElementsMatch(t, []string{"Sandal A"}, list("?best_seller=1"))
	assert.ElementsMatch(t, []string{"Sandal B", "Oxford"}, list("?best_seller=0"))
	assert.ElementsMatch(t, []string{"Sandal A"}, list("?category=best-sellers"))
	assert.Equal(t, []string{"Oxford", "Sandal B", "Sandal A"}, list("?sort=price-high"))
	assert.ElementsMatch(t, []string{"Sandal B"}, list("?price=100-200"))
	assert.Empty(t, list("?category=Slippers"))
	assert.Len(t, list("?sort=whatever&price=nonsense"), 3)
}

func TestPlaceOrderAndList(t *testing.T) {
	sender := &recordingSender{}
	ta := setupApp(t, sender)

	resp := ta.do(t, jsonRequest(http.MethodPost, "/api/orders", map[string]any{
		"customer_name": "Ada Lovelace",
		"email":         "ada@example.com",
		"phone":         "+1 555 0100",
		"address":       "12 Analytical St",
		"total_amount":  20,
		"items":         []map[string]any{{"name": "A", "price": 10, "qty": 2}},
	}), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var placed struct {
		Message string `json:"message"`
		OrderID int64  `json:"orderId"`
	}
	decode(t, resp, &placed)
	require.NotZero(t, placed.OrderID)

	// Listing requires the admin session.
	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/orders", nil), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/orders", nil), ta.login(t))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var orders []models.Order
	decode(t, resp, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.OrderID, orders[0].ID)
	assert.Equal(t, models.StatusPending, orders[0].Status)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.NewFromInt(20)))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "A", orders[0].Items[0].Name)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
	assert.True(t, orders[0].Items[0].Price.Equal(decimal.NewFromInt(10)))

	ta.dispatcher.Wait()
	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "orders@veloce.store", sent[0].To)
	assert.Contains(t, sent[0].Text, "2x A - $20.00")
}

func TestPlaceOrderIgnoresClientAssignedFields(t *testing.T) {
	ta := setupApp(t, &recordingSender{})

	before := time.Now()
	resp := ta.do(t, jsonRequest(http.MethodPost, "/api/orders", map[string]any{
		"id":            42,
		"status":        "Completed",
		"created_at":    "2001-01-01T00:00:00Z",
		"customer_name": "Mallory",
		"phone":         "555",
		"address":       "Backdate Lane",
		"total_amount":  10,
		"items":         []map[string]any{{"name": "A", "price": 10, "qty": 1}},
	}), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	ta.dispatcher.Wait()

	orders, err := ta.orders.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.NotEqual(t, int64(42), orders[0].ID)
	assert.Equal(t, models.StatusPending, orders[0].Status)
	assert.WithinDuration(t, before, orders[0].CreatedAt, time.Minute)
}

func TestPlaceOrderSurvivesMailFailure(t *testing.T) {
	ta := setupApp(t, &recordingSender{err: errors.New("535 authentication failed")})

	resp := ta.do(t, jsonRequest(http.MethodPost, "/api/orders", map[string]any{
		"customer_name": "Grace",
		"phone":         "555",
		"address":       "Navy Yard",
		"total_amount":  "45.50",
		"items":         []map[string]any{{"id": 3, "price": "45.50", "qty": 1}},
	}), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	ta.dispatcher.Wait()

	orders, err := ta.orders.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPlaceOrderValidation(t *testing.T) {
	ta := setupApp(t, nil)

	bad := []map[string]any{
		{"phone": "555", "address": "x", "total_amount": 1, "items": []map[string]any{{"name": "A", "price": 1, "qty": 1}}},
		{"customer_name": "No Items", "phone": "555", "address": "x", "total_amount": 1, "items": []map[string]any{}},
		{"customer_name": "Zero Qty", "phone": "555", "address": "x", "total_amount": 1, "items": []map[string]any{{"name": "A", "price": 1, "qty": 0}}},
		{"customer_name": "Bad Email", "email": "nope", "phone": "555", "address": "x", "total_amount": 1, "items": []map[string]any{{"name": "A", "price": 1, "qty": 1}}},
	}
	for _, body := range bad {
		resp := ta.do(t, jsonRequest(http.MethodPost, "/api/orders", body), nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body["customer_name"])
	}

	orders, err := ta.orders.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateOrderStatus(t *testing.T) {
	ta := setupApp(t, nil)
	ctx := context.Background()
	cookie := ta.login(t)

	order := &models.Order{
		CustomerName: "Ada",
		Phone:        "555",
		Address:      "x",
		TotalAmount:  decimal.NewFromInt(20),
		Items:        []models.LineItem{{Name: "A", Price: decimal.NewFromInt(10), Quantity: 2}},
		Status:       models.StatusPending,
	}
	require.NoError(t, ta.orders.Create(ctx, order))
	target := "/api/orders/" + itoa(order.ID) + "/status"

	for _, status := range []string{"Delivered", "shipped", ""} {
		resp := ta.do(t, jsonRequest(http.MethodPut, target, map[string]string{"status": status}), cookie)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, status)
	}
	stored, err := ta.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	resp := ta.do(t, jsonRequest(http.MethodPut, target, map[string]string{"status": "Shipped"}), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, jsonRequest(http.MethodPut, target, map[string]string{"status": "Shipped"}), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stored, err = ta.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, stored.Status)

	// Any status may follow any other.
	resp = ta.do(t, jsonRequest(http.MethodPut, target, map[string]string{"status": "Pending"}), cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, jsonRequest(http.MethodPut, "/api/orders/9999/status", map[string]string{"status": "Completed"}), cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestContact(t *testing.T) {
	body := map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Do you ship abroad?"}

	tests := []struct {
		name    string
		sender  notify.Sender
		status  int
		message string
	}{
		{"delivered", &recordingSender{}, fiber.StatusOK, "Message sent successfully"},
		{"not configured", nil, fiber.StatusOK, "Message received (email not configured)"},
		{"transport failure", &recordingSender{err: errors.New("connection refused")}, fiber.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupApp(t, tt.sender)
			resp := ta.do(t, jsonRequest(http.MethodPost, "/api/contact", body), nil)
			require.Equal(t, tt.status, resp.StatusCode)

			var out map[string]string
			decode(t, resp, &out)
			if tt.message != "" {
				assert.Equal(t, tt.message, out["message"])
			} else {
				assert.Equal(t, "Email send failed", out["error"])
			}
		})
	}

	ta := setupApp(t, nil)
	resp := ta.do(t, jsonRequest(http.MethodPost, "/api/contact", map[string]string{"name": "Ada"}), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminPagesAndDiagnostics(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/admin.html", nil), nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, server.LoginPath, resp.Header.Get("Location"))

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/admin/orders.js", nil), nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, server.LoginPath, nil), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "login", string(page))

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/admin.html", nil), ta.login(t))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "dashboard", string(page))

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/_smtp", nil), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var diag map[string]bool
	decode(t, resp, &diag)
	assert.False(t, diag["hasUser"])
	assert.True(t, diag["transporterActive"])

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
