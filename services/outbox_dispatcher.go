package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// Notifier mengirim satu intent ke penerimanya (Power Automate flow, hub, dst).
type Notifier interface {
	Deliver(intent models.NotificationIntent) error
}

// OutboxDispatcher menguras tabel notification_intents dengan ticker.
// Pengiriman best-effort: intent selalu ditandai processed setelah satu kali
// percobaan, errornya direkam di baris intent -- tidak ada retry otomatis.
type OutboxDispatcher struct {
	DB       *gorm.DB
	Notifier Notifier
	StopChan chan struct{}
	Interval time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, notifier Notifier) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:       db,
		Notifier: notifier,
		StopChan: make(chan struct{}),
		Interval: 2 * time.Second,
	}
}

func (d *OutboxDispatcher) Start() {
	go func() {
		ticker := time.NewTicker(d.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.Drain()
			case <-d.StopChan:
				return
			}
		}
	}()
}

func (d *OutboxDispatcher) Stop() {
	close(d.StopChan)
}

// Drain memproses batch intent yang belum terkirim, urut waktu pembuatan.
func (d *OutboxDispatcher) Drain() {
	var intents []models.NotificationIntent

	if err := d.DB.Where("processed = ?", false).
		Order("created_at ASC").
		Limit(100).
		Find(&intents).Error; err != nil {
		utils.ErrorLogger.Printf("failed to fetch pending intents: %v", err)
		return
	}

	for _, intent := range intents {
		lastError := ""
		if err := d.Notifier.Deliver(intent); err != nil {
			lastError = err.Error()
			utils.ErrorLogger.Printf("failed to deliver %s intent %s: %v", intent.Type, intent.ID, err)
		} else {
			utils.InfoLogger.Printf("delivered %s notification for sod %s", intent.Type, intent.SodID)
		}

		updates := map[string]any{
			"processed":  true,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}
		if err := d.DB.Model(&models.NotificationIntent{}).
			Where("id = ?", intent.ID).
			Updates(updates).Error; err != nil {
			utils.ErrorLogger.Printf("failed to mark intent %s processed: %v", intent.ID, err)
		}
	}
}
