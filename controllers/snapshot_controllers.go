package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/hub"
	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/utils"
)

// SnapshotController melayani snapshot sesi dan inspeksi outbox notifikasi.
type SnapshotController struct {
	Registry *services.SessionRegistry
	DB       *gorm.DB
}

func NewSnapshotController(registry *services.SessionRegistry, db *gorm.DB) *SnapshotController {
	return &SnapshotController{Registry: registry, DB: db}
}

// GetSnapshot -> GET /sessions/:session_id/snapshot
func (sn *SnapshotController) GetSnapshot(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, sn.Registry)
	if !ok {
		return
	}

	snap := orch.Snapshot()
	if snap == nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("no snapshot for this session yet"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Snapshot", snap)
}

// SaveSnapshot -> POST /sessions/:session_id/snapshot
// Commit eksplisit: bangun snapshot dari state sekarang dan tulis async.
func (sn *SnapshotController) SaveSnapshot(c *gin.Context) {
	orch, ok := orchestratorFromRequest(c, sn.Registry)
	if !ok {
		return
	}

	orch.CommitAndPersist()
	hub.BroadcastSnapshotSaved(orch.Context().SessionID, orch.Snapshot())
	utils.RespondJSON(c, http.StatusAccepted, "Snapshot persist scheduled", orch.Snapshot())
}

// ListOutbox -> GET /admin/outbox?processed=true|false
// Inspeksi intent notifikasi, terutama yang gagal terkirim.
func (sn *SnapshotController) ListOutbox(c *gin.Context) {
	query := sn.DB.Order("created_at DESC").Limit(200)
	if processed := c.Query("processed"); processed != "" {
		query = query.Where("processed = ?", processed == "true")
	}

	var intents []models.NotificationIntent
	if err := query.Find(&intents).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification intents", intents)
}
