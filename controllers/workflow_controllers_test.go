package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/workflow"
)

// setupTestDB menggunakan SQLite in-memory untuk testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.OrderRequest{},
		&models.NotificationIntent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// stubProvider mengembalikan master data statis, tanpa HTTP
type stubProvider struct{}

func (stubProvider) FetchCustomer(ctx context.Context, id models.RecordID) (*models.Customer, error) {
	return &models.Customer{ID: string(id), Name: "PT Sinar Abadi"}, nil
}

func (stubProvider) FetchOrders(ctx context.Context, customerID models.RecordID) ([]models.SalesOrder, error) {
	return []models.SalesOrder{
		{ID: "ord-1", SONumber: "SO-001", SODCount: 1},
		{ID: "ord-2", SONumber: "SO-002", SODCount: 2},
	}, nil
}

func (stubProvider) FetchLineItems(ctx context.Context, orderID, soNumber string) ([]models.LineItem, error) {
	item := models.LineItem{
		ID:         "sod-" + orderID,
		DetailName: "SOD " + orderID,
		SONumber:   soNumber,
		Product:    models.Product{SKU: "SKU-1", Name: "Besi Beton"},
		QtyOrdered: 10,
	}
	item.Status = workflow.InitialStatus(item.RemainingToShip())
	return []models.LineItem{item}, nil
}

// setupRouterForTest mengonfigurasi router dengan endpoint yang akan diuji
func setupRouterForTest(db *gorm.DB) (*gin.Engine, *services.SessionRegistry) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()

	registry := services.NewSessionRegistry()
	store := services.NewGormHistoryStore(db)
	outbox := services.NewGormOutbox(db)

	sessionCtrl := NewSessionController(stubProvider{}, store, outbox, registry, workflow.ReopenPreserve)
	orderCtrl := NewOrderController(registry)
	workflowCtrl := NewWorkflowController(registry)
	snapshotCtrl := NewSnapshotController(registry, db)

	r.POST("/sessions", sessionCtrl.CreateSession)
	sessions := r.Group("/sessions/:session_id")
	{
		sessions.GET("", sessionCtrl.GetSession)
		sessions.DELETE("", sessionCtrl.CloseSession)
		sessions.GET("/orders", orderCtrl.ListOrders)
		sessions.POST("/orders/:order_id/select", orderCtrl.SelectOrder)
		sessions.GET("/items", orderCtrl.GetItems)
		sessions.GET("/items/:item_id", orderCtrl.GetItem)
		sessions.PATCH("/items/:item_id/available", workflowCtrl.SetAvailable)
		sessions.POST("/items/:item_id/notify", workflowCtrl.SendNotice)
		sessions.POST("/items/:item_id/decision", workflowCtrl.Decide)
		sessions.POST("/items/:item_id/source-plan", workflowCtrl.ConfirmPlan)
		sessions.GET("/snapshot", snapshotCtrl.GetSnapshot)
		sessions.POST("/snapshot", snapshotCtrl.SaveSnapshot)
	}
	return r, registry
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func openSession(t *testing.T, r *gin.Engine, query string) string {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/sessions?"+query, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]any)
	return data["session_id"].(string)
}

func TestCreateSession_AutoSelectsOrderFromRecordID(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)

	w, resp := doJSON(t, r, http.MethodPost, "/sessions?customerId=cust-1&recordId={ORD-2}&role=warehouse", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	data := resp["data"].(map[string]any)
	assert.NotEmpty(t, data["session_id"])
	assert.Equal(t, "warehouse", data["role"])
	assert.Equal(t, "none", data["restored_from"])

	selected := data["selected_order"].(map[string]any)
	assert.Equal(t, "SO-002", selected["soNumber"])

	items := data["items"].([]any)
	assert.Len(t, items, 1)
}

func TestCreateSession_MissingCustomer(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)

	w, _ := doJSON(t, r, http.MethodPost, "/sessions?role=warehouse", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSession_RestoresSnapshotFromStore(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)

	// seed history: record ord-1 dengan qty yang sudah diisi gudang
	history := `{"timestamp":"2026-08-28T09:00:00Z","context":{"orderId":"ord-1","orderNumber":"SO-001"},` +
		`"sods":{"sod-ord-1":{"qtyAvailable":4,"status":"SHORTAGE_PENDING_SALE","isNotificationSent":true}}}`
	db.Create(&models.OrderRequest{RecordID: "ord-1", History: history})

	w, resp := doJSON(t, r, http.MethodPost, "/sessions?customerId=cust-1&recordId=ord-1&role=sale", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	data := resp["data"].(map[string]any)
	assert.Equal(t, "store", data["restored_from"])

	items := data["items"].([]any)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(4), item["qtyAvailable"])
	assert.Equal(t, "SHORTAGE_PENDING_SALE", item["status"])
	assert.Equal(t, true, item["isNotificationSent"])
}

func TestWorkflowEndpoints_FullCycle(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&recordId=ord-1&role=admin")
	base := "/sessions/" + sessionID

	// Warehouse isi qty
	w, resp := doJSON(t, r, http.MethodPatch, base+"/items/sod-ord-1/available", gin.H{"qtyAvailable": 4})
	assert.Equal(t, http.StatusOK, w.Code)
	item := resp["data"].(map[string]any)
	assert.Equal(t, "SHORTAGE_PENDING_SALE", item["status"])

	// Warehouse kirim notifikasi shortage
	w, resp = doJSON(t, r, http.MethodPost, base+"/items/sod-ord-1/notify", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	item = resp["data"].(map[string]any)
	assert.Equal(t, true, item["isNotificationSent"])

	// Sale memutuskan WAIT_ALL
	w, resp = doJSON(t, r, http.MethodPost, base+"/items/sod-ord-1/decision", gin.H{"action": "WAIT_ALL"})
	assert.Equal(t, http.StatusOK, w.Code)
	item = resp["data"].(map[string]any)
	assert.Equal(t, "SHORTAGE_PENDING_SOURCE", item["status"])

	// Source konfirmasi rencana
	w, resp = doJSON(t, r, http.MethodPost, base+"/items/sod-ord-1/source-plan", gin.H{"eta": "2026-09-15", "supplier": "PT Pemasok"})
	assert.Equal(t, http.StatusOK, w.Code)
	item = resp["data"].(map[string]any)
	assert.Equal(t, "RESOLVED", item["status"])

	// intent notifikasi tercatat di outbox
	var intents int64
	db.Model(&models.NotificationIntent{}).Count(&intents)
	assert.Equal(t, int64(3), intents)
}

func TestWorkflowEndpoints_RejectedTransition(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&recordId=ord-1&role=viewer")
	base := "/sessions/" + sessionID

	// viewer tidak boleh mengubah qty
	w, _ := doJSON(t, r, http.MethodPatch, base+"/items/sod-ord-1/available", gin.H{"qtyAvailable": 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	// item yang tidak ada -> 404, bukan 409
	w, _ = doJSON(t, r, http.MethodPost, base+"/items/ghost/notify", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowEndpoints_InvalidAction(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&recordId=ord-1&role=admin")

	w, _ := doJSON(t, r, http.MethodPost, "/sessions/"+sessionID+"/items/sod-ord-1/decision", gin.H{"action": "MAYBE_LATER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectOrderEndpoint(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&role=sale")
	base := "/sessions/" + sessionID

	w, resp := doJSON(t, r, http.MethodPost, base+"/orders/ord-2/select", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	order := data["order"].(map[string]any)
	assert.Equal(t, "SO-002", order["soNumber"])

	w, _ = doJSON(t, r, http.MethodPost, base+"/orders/unknown/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnapshotEndpoints(t *testing.T) {
	db := setupTestDB(t)
	r, registry := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&recordId=ord-1&role=warehouse")
	base := "/sessions/" + sessionID

	doJSON(t, r, http.MethodPatch, base+"/items/sod-ord-1/available", gin.H{"qtyAvailable": 4})

	w, resp := doJSON(t, r, http.MethodGet, base+"/snapshot", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	snap := resp["data"].(map[string]any)
	sods := snap["sods"].(map[string]any)
	assert.Contains(t, sods, "sod-ord-1")

	w, _ = doJSON(t, r, http.MethodPost, base+"/snapshot", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// tunggu write async lalu cek barisnya
	orch, ok := registry.Get(sessionID)
	assert.True(t, ok)
	orch.Flush()

	var row models.OrderRequest
	assert.NoError(t, db.Where("record_id = ?", "ord-1").First(&row).Error)
	assert.Contains(t, row.History, `"sod-ord-1"`)
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	r, registry := setupRouterForTest(db)
	sessionID := openSession(t, r, "customerId=cust-1&role=sale")

	w, _ := doJSON(t, r, http.MethodGet, "/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, registry.Count())

	w, _ = doJSON(t, r, http.MethodDelete, "/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, registry.Count())

	w, _ = doJSON(t, r, http.MethodGet, "/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionNotFound(t *testing.T) {
	db := setupTestDB(t)
	r, _ := setupRouterForTest(db)

	w, _ := doJSON(t, r, http.MethodGet, fmt.Sprintf("/sessions/%s", "nonexistent"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
