package models

import "time"

// Notification intent types, satu per sisi transisi workflow.
const (
	NotifyWarehouseToSale = "WAREHOUSE_TO_SALE" // gudang konfirmasi shortage
	NotifySaleToSource    = "SALE_TO_SOURCE"    // sale memilih WAIT_ALL
	NotifySourceToSale    = "SOURCE_TO_SALE"    // source konfirmasi rencana/ETA
	NotifySaleToWarehouse = "SALE_TO_WAREHOUSE" // sale memilih SHIP_PARTIAL

	// Trigger flow lama untuk keputusan partial shipment, dikirim berdampingan
	// dengan NotifySaleToWarehouse.
	NotifyPartialShipment = "SALE_PARTIAL_SHIPMENT"
)

// NotificationIntent adalah baris outbox: dicatat sinkron bersama transisi
// state, dikirim asinkron oleh dispatcher. Kegagalan kirim dicatat di sini
// dan tidak pernah menggagalkan transisinya.
type NotificationIntent struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(32);not null;index" json:"type"`
	SodID     string    `gorm:"type:varchar(64);not null" json:"sod_id"`
	SodName   string    `gorm:"type:varchar(255)" json:"sod_name"`
	Sku       string    `gorm:"type:varchar(64)" json:"sku"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Details   string    `gorm:"type:text" json:"details,omitempty"` // JSON bebas per tipe
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Processed bool      `gorm:"not null;default:false;index" json:"processed"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
