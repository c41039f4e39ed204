package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/shortage-app/hub"
	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/utils"
)

// WorkflowController memetakan aksi role ke transisi state machine.
// Transisi yang ditolak (role salah, state salah, guard gagal) dijawab 409:
// state server tidak berubah dan client harus refresh pandangannya.
type WorkflowController struct {
	Registry *services.SessionRegistry
}

func NewWorkflowController(registry *services.SessionRegistry) *WorkflowController {
	return &WorkflowController{Registry: registry}
}

var errTransitionRejected = errors.New("transition not allowed for current role/state")

// SetAvailable -> PATCH /sessions/:session_id/items/:item_id/available
// Aksi Warehouse: isi jumlah stok yang benar-benar ada.
func (wc *WorkflowController) SetAvailable(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, wc.Registry)
	if !ok {
		return
	}

	var req struct {
		QtyAvailable *int `json:"qtyAvailable" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, applied := orch.SetAvailable(c.Param("item_id"), *req.QtyAvailable)
	if !applied {
		wc.rejectOrMissing(c, orch, c.Param("item_id"))
		return
	}

	hub.BroadcastSodUpdate(orch.Context().SessionID, item)
	utils.RespondJSON(c, http.StatusOK, "Availability updated", item)
}

// SendNotice -> POST /sessions/:session_id/items/:item_id/notify
// Aksi Warehouse: kunci qty dan beri tahu Sale ada shortage.
func (wc *WorkflowController) SendNotice(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, wc.Registry)
	if !ok {
		return
	}

	item, applied := orch.SendShortageNotice(c.Param("item_id"))
	if !applied {
		wc.rejectOrMissing(c, orch, c.Param("item_id"))
		return
	}

	hub.BroadcastShortageNotice(orch.Context().SessionID, item)
	utils.RespondJSON(c, http.StatusOK, "Shortage notice sent", item)
}

// Decide -> POST /sessions/:session_id/items/:item_id/decision
// Aksi Sale: SHIP_PARTIAL atau WAIT_ALL, sekali per siklus.
func (wc *WorkflowController) Decide(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, wc.Registry)
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	action := models.SaleAction(req.Action)
	if action != models.SaleShipPartial && action != models.SaleWaitAll {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown sale action %q", req.Action))
		return
	}

	item, applied := orch.DecideSale(c.Param("item_id"), action)
	if !applied {
		wc.rejectOrMissing(c, orch, c.Param("item_id"))
		return
	}

	hub.BroadcastSaleDecision(orch.Context().SessionID, item)
	utils.RespondJSON(c, http.StatusOK, "Sale decision recorded", item)
}

// ConfirmPlan -> POST /sessions/:session_id/items/:item_id/source-plan
// Aksi Source: konfirmasi ETA + supplier untuk shortage yang ditunggu.
func (wc *WorkflowController) ConfirmPlan(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, wc.Registry)
	if !ok {
		return
	}

	var req struct {
		ETA      string `json:"eta" binding:"required"`
		Supplier string `json:"supplier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, applied := orch.ConfirmSourcePlan(c.Param("item_id"), req.ETA, req.Supplier)
	if !applied {
		wc.rejectOrMissing(c, orch, c.Param("item_id"))
		return
	}

	hub.BroadcastSourcePlan(orch.Context().SessionID, item)
	utils.RespondJSON(c, http.StatusOK, "Source plan confirmed", item)
}

// rejectOrMissing membedakan item yang tidak ada (404) dari transisi yang
// ditolak state machine (409).
func (wc *WorkflowController) rejectOrMissing(c *gin.Context, orch *services.Orchestrator, itemID string) {
	if _, found := orch.Item(itemID); !found {
		utils.RespondError(c, http.StatusNotFound, errors.New("line item not found"))
		return
	}
	utils.RespondError(c, http.StatusConflict, errTransitionRejected)
}
