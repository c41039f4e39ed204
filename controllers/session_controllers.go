package controllers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/shortage-app/hub"
	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/utils"
	"github.com/yeremiapane/shortage-app/workflow"
)

// SessionController membuka sesi workflow dari link embed: resolve konteks,
// fetch master data, restore snapshot, auto-select order.
type SessionController struct {
	Provider services.OrderProvider
	Store    services.HistoryStore
	Outbox   services.Outbox
	Registry *services.SessionRegistry
	Policy   workflow.ReopenPolicy
}

func NewSessionController(provider services.OrderProvider, store services.HistoryStore, outbox services.Outbox, registry *services.SessionRegistry, policy workflow.ReopenPolicy) *SessionController {
	return &SessionController{
		Provider: provider,
		Store:    store,
		Outbox:   outbox,
		Registry: registry,
		Policy:   policy,
	}
}

// CreateSession -> POST /sessions. Semua parameter embed lewat query string,
// persis bentuk link yang dikirim Power Automate.
func (sc *SessionController) CreateSession(c *gin.Context) {
	params := services.BootstrapParams{
		Data:         c.Query("data"),
		CustomerID:   c.Query("customerId"),
		RecordID:     c.Query("recordId"),
		SaleID:       c.Query("saleID"),
		HistoryValue: c.Query("historyValue"),
		Department:   c.Query("department"),
		Role:         c.Query("role"),
	}
	if params.Department == "" {
		params.Department = c.Query("phongBan")
	}

	boot, err := services.ResolveBootstrap(c.Request.Context(), params, sc.Store)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	sess := services.SessionContext{
		CustomerID: boot.CustomerID,
		RecordID:   boot.RecordID,
		SaleID:     boot.SaleID,
		Role:       boot.Role,
		Department: boot.Department,
	}
	orch := services.NewOrchestrator(sc.Provider, sc.Store, sc.Outbox, sess, sc.Policy)
	orch.SetSnapshot(boot.Snapshot)

	// Customer dan daftar order tidak saling tergantung, fetch paralel.
	var (
		wg        sync.WaitGroup
		customer  *models.Customer
		orders    []models.SalesOrder
		custErr   error
		ordersErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		customer, custErr = sc.Provider.FetchCustomer(c.Request.Context(), boot.CustomerID)
	}()
	go func() {
		defer wg.Done()
		orders, ordersErr = sc.Provider.FetchOrders(c.Request.Context(), boot.CustomerID)
	}()
	wg.Wait()

	if custErr != nil {
		utils.RespondError(c, http.StatusBadGateway, custErr)
		return
	}
	if ordersErr != nil {
		utils.RespondError(c, http.StatusBadGateway, ordersErr)
		return
	}
	orch.SetCustomer(customer)
	orch.SetOrders(orders)

	// Auto-select: record id dari link dulu, lalu order yang tercatat di
	// snapshot. Dua-duanya gagal -> sesi mulai tanpa order terpilih.
	target := matchOrder(orders, string(boot.RecordID))
	if target == nil && boot.Snapshot != nil {
		target = matchOrder(orders, boot.Snapshot.Context.OrderID)
	}

	var items []models.LineItem
	var selected *models.SalesOrder
	if target != nil {
		items, err = orch.SelectOrder(c.Request.Context(), *target)
		if err != nil {
			utils.ErrorLogger.Printf("auto-select order %s failed: %v", target.SONumber, err)
			items = nil
		} else {
			selected = target
		}
	}

	sessionID := sc.Registry.Register(orch)
	if boot.SnapshotSource != "none" {
		hub.BroadcastSnapshotRestored(sessionID, boot.SnapshotSource)
	}

	utils.InfoLogger.Printf("Session %s opened (role=%s, customer=%s, restored=%s)",
		sessionID, boot.Role, boot.CustomerID, boot.SnapshotSource)

	utils.RespondJSON(c, http.StatusCreated, "Session created", gin.H{
		"session_id":     sessionID,
		"role":           boot.Role,
		"department":     boot.Department,
		"customer":       customer,
		"orders":         orders,
		"selected_order": selected,
		"items":          items,
		"restored_from":  boot.SnapshotSource,
	})
}

// GetSession -> GET /sessions/:session_id
func (sc *SessionController) GetSession(c *gin.Context) {
	orch, ok := sc.orchestrator(c)
	if !ok {
		return
	}

	ctx := orch.Context()
	utils.RespondJSON(c, http.StatusOK, "Session state", gin.H{
		"session_id": ctx.SessionID,
		"role":       ctx.Role,
		"department": ctx.Department,
		"customer":   orch.Customer(),
		"orders":     orch.Orders(),
		"items":      orch.Items(),
	})
}

// CloseSession -> DELETE /sessions/:session_id. Tunggu write snapshot yang
// masih jalan sebelum melepaskan orchestrator.
func (sc *SessionController) CloseSession(c *gin.Context) {
	orch, ok := sc.orchestrator(c)
	if !ok {
		return
	}

	sc.Registry.Remove(orch.Context().SessionID)
	orch.Flush()
	utils.RespondJSON(c, http.StatusOK, "Session closed", nil)
}

func (sc *SessionController) orchestrator(c *gin.Context) (*services.Orchestrator, bool) {
	return orchestratorFromRequest(c, sc.Registry)
}

// orchestratorFromRequest resolve orchestrator dari path param session_id;
// menulis 404 sendiri kalau sesinya tidak ada.
func orchestratorFromRequest(c *gin.Context, registry *services.SessionRegistry) (*services.Orchestrator, bool) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session id missing"))
		return nil, false
	}
	orch, ok := registry.Get(sessionID)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, errors.New("session not found"))
		return nil, false
	}
	return orch, true
}

func matchOrder(orders []models.SalesOrder, rawID string) *models.SalesOrder {
	want := models.NewRecordID(rawID)
	if want.IsZero() {
		return nil
	}
	for i := range orders {
		if models.NewRecordID(orders[i].ID) == want {
			return &orders[i]
		}
	}
	return nil
}
