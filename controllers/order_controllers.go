package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/shortage-app/hub"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/utils"
)

// OrderController melayani daftar order dan pemilihan order di satu sesi.
type OrderController struct {
	Registry *services.SessionRegistry
}

func NewOrderController(registry *services.SessionRegistry) *OrderController {
	return &OrderController{Registry: registry}
}

// ListOrders -> GET /sessions/:session_id/orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, oc.Registry)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders", orch.Orders())
}

// SelectOrder -> POST /sessions/:session_id/orders/:order_id/select
// Fetch line item order lalu overlay snapshot yang dikenal sesi.
func (oc *OrderController) SelectOrder(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, oc.Registry)
	if !ok {
		return
	}

	target := matchOrder(orch.Orders(), c.Param("order_id"))
	if target == nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found for this customer"))
		return
	}

	items, err := orch.SelectOrder(c.Request.Context(), *target)
	if err != nil {
		if errors.Is(err, services.ErrStaleSelection) {
			// selection lain menang duluan; client tinggal pakai hasil terbaru
			utils.RespondError(c, http.StatusConflict, err)
			return
		}
		utils.RespondError(c, http.StatusBadGateway, err)
		return
	}

	hub.BroadcastOrderSelected(orch.Context().SessionID, *target)
	utils.RespondJSON(c, http.StatusOK, "Order selected", gin.H{
		"order": target,
		"items": items,
	})
}

// GetItems -> GET /sessions/:session_id/items
func (oc *OrderController) GetItems(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, oc.Registry)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Line items", orch.Items())
}

// GetItem -> GET /sessions/:session_id/items/:item_id
func (oc *OrderController) GetItem(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, oc.Registry)
	if !ok {
		return
	}

	item, found := orch.Item(c.Param("item_id"))
	if !found {
		utils.RespondError(c, http.StatusNotFound, errors.New("line item not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Line item", item)
}
