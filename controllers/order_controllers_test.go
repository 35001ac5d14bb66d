package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/router"
	"github.com/tableside/venue-app/services"
	"github.com/tableside/venue-app/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
	utils.InitJWT()
	os.Exit(m.Run())
}

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	qrTokens *services.QRTokenService
}

func setupEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.MenuItem{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	stock := 20
	seed := []models.MenuItem{
		{Name: "Burger", Price: 5.00, Category: "food", TrackStock: true, Stock: &stock},
		{Name: "Cola", Price: 3.00, Category: "drink"},
		{Name: "Waiter Service", Price: 0, Category: models.CategoryService},
	}
	for i := range seed {
		assert.NoError(t, db.Create(&seed[i]).Error)
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	table := 4
	users := []models.User{
		{Username: "admin", PasswordHash: string(hashed), Role: models.RoleAdmin},
		{Username: "alice", PasswordHash: string(hashed), Role: models.RoleStaff},
		{Username: "table4", PasswordHash: string(hashed), Role: models.RoleTable, TableNumber: &table},
	}
	for i := range users {
		assert.NoError(t, db.Create(&users[i]).Error)
	}

	qrTokens := services.NewQRTokenService()
	return &testEnv{
		db:       db,
		router:   router.SetupRouter(db, qrTokens),
		qrTokens: qrTokens,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username string) string {
	w := e.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": "pw",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestCreateOrderOverHTTP(t *testing.T) {
	env := setupEnv(t)
	token := env.login(t, "table4")

	w := env.request(t, http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": 1, "quantity": 2},
			{"id": 2, "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 4, order.TableNumber)
	assert.InDelta(t, 13.00, order.TotalPrice, 0.001)
	assert.Len(t, order.Items, 2)
}

func TestCreateOrderIgnoresClientPrices(t *testing.T) {
	env := setupEnv(t)
	token := env.login(t, "table4")

	// A tampered payload carrying its own price and total changes nothing:
	// only id and quantity are read.
	w := env.request(t, http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": 2, "quantity": 1, "price": 0.01},
		},
		"total_price": 0.01,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.InDelta(t, 3.00, order.TotalPrice, 0.001)
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodPost, "/orders", "", map[string]interface{}{
		"items": []map[string]interface{}{{"id": 1, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrdersScopedToTable(t *testing.T) {
	env := setupEnv(t)

	other := 7
	hashed, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	assert.NoError(t, env.db.Create(&models.User{
		Username: "table7", PasswordHash: string(hashed),
		Role: models.RoleTable, TableNumber: &other,
	}).Error)

	t4 := env.login(t, "table4")
	t7 := env.login(t, "table7")

	w := env.request(t, http.MethodPost, "/orders", t4, map[string]interface{}{
		"items": []map[string]interface{}{{"id": 2, "quantity": 1}},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/orders", t7, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Empty(t, orders)

	w = env.request(t, http.MethodGet, "/orders", t4, nil)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}

func TestStatusTransitionOverHTTP(t *testing.T) {
	env := setupEnv(t)
	tableToken := env.login(t, "table4")
	staffToken := env.login(t, "alice")

	w := env.request(t, http.MethodPost, "/orders", tableToken, map[string]interface{}{
		"items": []map[string]interface{}{{"id": 2, "quantity": 1}},
	})
	var order models.Order
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))

	path := fmt.Sprintf("/orders/%d/status", order.ID)

	// Skipping Accepted is rejected with a conflict.
	w = env.request(t, http.MethodPut, path, staffToken, map[string]string{"status": models.StatusCompleted})
	assert.Equal(t, http.StatusConflict, w.Code)

	// A table cannot accept its own order.
	w = env.request(t, http.MethodPut, path, tableToken, map[string]string{"status": models.StatusAccepted})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPut, path, staffToken, map[string]string{"status": models.StatusAccepted})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.StatusAccepted, order.Status)
	if assert.NotNil(t, order.StaffName) {
		assert.Equal(t, "alice", *order.StaffName)
	}

	w = env.request(t, http.MethodPut, path, staffToken, map[string]string{"status": models.StatusCompleted})
	assert.Equal(t, http.StatusOK, w.Code)

	// Unknown order id.
	w = env.request(t, http.MethodPut, "/orders/999/status", staffToken, map[string]string{"status": models.StatusAccepted})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenuStockVisibility(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/menu", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var menu []struct {
		Name       string `json:"name"`
		Stock      *int   `json:"stock"`
		TrackStock bool   `json:"track_stock"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &menu))
	assert.Len(t, menu, 3)

	for _, item := range menu {
		if item.TrackStock {
			assert.NotNil(t, item.Stock)
		} else {
			assert.Nil(t, item.Stock)
		}
	}
}

func TestQRProvisioningAndAuth(t *testing.T) {
	env := setupEnv(t)
	adminToken := env.login(t, "admin")
	staffToken := env.login(t, "alice")

	// Only admin may issue QR tokens.
	w := env.request(t, http.MethodPost, "/admin/tables/4/qr", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, "/admin/tables/4/qr", adminToken, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	var issued struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	assert.NotEmpty(t, issued.Data.Token)

	// Redeeming against the wrong table fails.
	w = env.request(t, http.MethodPost, "/auth/qr", "", map[string]interface{}{
		"tableNumber": 5, "token": issued.Data.Token,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A burned token never works again, so re-issue for the real flow.
	w = env.request(t, http.MethodPost, "/admin/tables/4/qr", adminToken, nil)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	w = env.request(t, http.MethodPost, "/auth/qr", "", map[string]interface{}{
		"tableNumber": 4, "token": issued.Data.Token,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var session struct {
		AccessToken string      `json:"access_token"`
		Role        models.Role `json:"role"`
		TableNumber *int        `json:"table_number"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, models.RoleTable, session.Role)
	if assert.NotNil(t, session.TableNumber) {
		assert.Equal(t, 4, *session.TableNumber)
	}

	// Replaying the consumed token is rejected.
	w = env.request(t, http.MethodPost, "/auth/qr", "", map[string]interface{}{
		"tableNumber": 4, "token": issued.Data.Token,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminProvisionTable(t *testing.T) {
	env := setupEnv(t)
	adminToken := env.login(t, "admin")

	w := env.request(t, http.MethodPost, "/admin/tables", adminToken, map[string]interface{}{
		"table_number": 9,
		"password":     "secret",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Duplicate table numbers are rejected.
	w = env.request(t, http.MethodPost, "/admin/tables", adminToken, map[string]interface{}{
		"table_number": 9,
		"password":     "secret",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var user models.User
	assert.NoError(t, env.db.Where("username = ?", "table9").First(&user).Error)
	assert.Equal(t, models.RoleTable, user.Role)
}
