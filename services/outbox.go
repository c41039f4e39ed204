package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// GormOutbox menulis intent notifikasi ke tabel notification_intents.
// Enqueue sengaja tidak mengembalikan error: kegagalan insert dicatat log dan
// workflow jalan terus, notifikasi memang best-effort.
type GormOutbox struct {
	DB *gorm.DB
}

func NewGormOutbox(db *gorm.DB) *GormOutbox {
	return &GormOutbox{DB: db}
}

func (o *GormOutbox) Enqueue(intent models.NotificationIntent) {
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	if err := o.DB.Create(&intent).Error; err != nil {
		utils.ErrorLogger.Printf("failed to enqueue %s intent for sod %s: %v", intent.Type, intent.SodID, err)
	}
}

func newIntent(typ string, item models.LineItem, message string, details any, ts time.Time) models.NotificationIntent {
	var detailJSON string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			utils.ErrorLogger.Printf("failed to marshal %s intent details: %v", typ, err)
		} else {
			detailJSON = string(raw)
		}
	}
	return models.NotificationIntent{
		ID:        uuid.New().String(),
		Type:      typ,
		SodID:     item.ID,
		SodName:   item.Product.Name,
		Sku:       item.Product.SKU,
		Message:   message,
		Details:   detailJSON,
		Timestamp: ts,
	}
}

// shortageNoticeIntent -> Warehouse memberi tahu Sale ada kekurangan stok.
func shortageNoticeIntent(item models.LineItem, now time.Time) models.NotificationIntent {
	msg := fmt.Sprintf("Shortage reported for %s: only %d of %d available", item.Product.Name, item.QtyAvailable, item.QtyOrdered)
	return newIntent(models.NotifyWarehouseToSale, item, msg, map[string]any{
		"qtyOrdered":   item.QtyOrdered,
		"qtyAvailable": item.QtyAvailable,
		"shortageQty":  item.Shortage(),
	}, now)
}

// waitDecisionIntent -> Sale memutuskan WAIT_ALL, shortage diteruskan ke Source.
func waitDecisionIntent(item models.LineItem, now time.Time) models.NotificationIntent {
	msg := fmt.Sprintf("Sale requested sourcing for %s: %d unit(s) short", item.Product.Name, item.Shortage())
	return newIntent(models.NotifySaleToSource, item, msg, map[string]any{
		"decision":    string(models.SaleWaitAll),
		"shortageQty": item.Shortage(),
	}, now)
}

// shipDecisionIntent -> Sale memutuskan SHIP_PARTIAL, Warehouse tinggal kirim.
func shipDecisionIntent(item models.LineItem, quantityToShip int, now time.Time) models.NotificationIntent {
	msg := fmt.Sprintf("Sale approved partial shipment for %s: ship %d unit(s)", item.Product.Name, quantityToShip)
	return newIntent(models.NotifySaleToWarehouse, item, msg, map[string]any{
		"decision":       string(models.SaleShipPartial),
		"quantityToShip": quantityToShip,
	}, now)
}

// partialShipmentIntent -> trigger flow keputusan sale lama, masih dikirim
// berdampingan dengan notifikasi SALE_TO_WAREHOUSE.
func partialShipmentIntent(item models.LineItem, now time.Time) models.NotificationIntent {
	msg := fmt.Sprintf("Partial shipment decision recorded for %s", item.Product.Name)
	return newIntent(models.NotifyPartialShipment, item, msg, map[string]any{
		"shortageQty": item.Shortage(),
	}, now)
}

// sourcePlanIntent -> Source konfirmasi rencana pengadaan balik ke Sale.
// Timestamp intent memakai tanggal ETA kalau bisa di-parse, meniru perilaku
// flow lama yang menjadwalkan follow-up di tanggal barang datang.
func sourcePlanIntent(item models.LineItem, now time.Time) models.NotificationIntent {
	ts := now
	eta, supplier := "", ""
	if item.SourcePlan != nil {
		eta = item.SourcePlan.ETA
		supplier = item.SourcePlan.Supplier
		if parsed, err := time.Parse("2006-01-02", eta); err == nil {
			ts = parsed
		}
	}
	msg := fmt.Sprintf("Source confirmed plan for %s: ETA %s", item.Product.Name, eta)
	return newIntent(models.NotifySourceToSale, item, msg, map[string]any{
		"eta":      eta,
		"supplier": supplier,
	}, ts)
}
