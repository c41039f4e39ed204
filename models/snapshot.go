package models

import "time"

// SnapshotContext menyimpan order yang sedang aktif saat snapshot dibuat,
// dipakai untuk auto-select order waktu sesi dipulihkan.
type SnapshotContext struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// SnapshotEntry adalah lima field overlay yang dipersist per SOD.
// QtyAvailable pointer: absen berarti nilai fresh dipertahankan.
type SnapshotEntry struct {
	QtyAvailable     *int          `json:"qtyAvailable,omitempty"`
	Status           SODStatus     `json:"status,omitempty"`
	NotificationSent bool          `json:"isNotificationSent"`
	SaleDecision     *SaleDecision `json:"saleDecision,omitempty"`
	SourcePlan       *SourcePlan   `json:"sourcePlan,omitempty"`
}

// WorkflowSnapshot adalah unit persistensi: seluruh state workflow satu order,
// keyed by SOD id apa adanya (tidak dinormalisasi -- normalisasi terjadi saat
// merge). Key yang tidak dikenal diabaikan, bukan error.
type WorkflowSnapshot struct {
	Timestamp time.Time                `json:"timestamp"`
	Context   SnapshotContext          `json:"context"`
	Items     map[string]SnapshotEntry `json:"sods"`
}
