package models

import "time"

// OrderRequest adalah record lokal tempat WorkflowSnapshot dipersist sebagai
// blob JSON, keyed by record id dari konteks bootstrap. Selalu ditulis utuh
// (full overwrite, last writer wins) -- tidak pernah di-patch per field.
type OrderRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecordID  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"record_id"`
	History   string    `gorm:"type:text" json:"history"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
