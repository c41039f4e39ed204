package models

import "time"

// SODStatus adalah status workflow satu dokumen Sale Order Detail.
type SODStatus string

const (
	StatusSufficient            SODStatus = "SUFFICIENT"
	StatusShortagePendingSale   SODStatus = "SHORTAGE_PENDING_SALE"
	StatusShortagePendingSource SODStatus = "SHORTAGE_PENDING_SOURCE"
	StatusResolved              SODStatus = "RESOLVED"
)

// SaleAction adalah keputusan Sale atas shortage.
type SaleAction string

const (
	SaleShipPartial SaleAction = "SHIP_PARTIAL" // kirim yang ada / tutup order
	SaleWaitAll     SaleAction = "WAIT_ALL"     // tunggu Source melengkapi stok
)

// SourcePlanStatus adalah status rencana pengadaan dari Source.
type SourcePlanStatus string

const (
	SourcePlanConfirmed SourcePlanStatus = "CONFIRMED"
	SourcePlanNoStock   SourcePlanStatus = "NO_STOCK"
)

type Product struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// SaleDecision di-set paling banyak sekali per siklus workflow.
type SaleDecision struct {
	Action    SaleAction `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note,omitempty"`
}

// SourcePlan hanya dihasilkan setelah Sale memilih WAIT_ALL.
type SourcePlan struct {
	Status    SourcePlanStatus `json:"status"`
	ETA       string           `json:"eta,omitempty"` // YYYY-MM-DD dari date input
	Supplier  string           `json:"supplier,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// LineItem (SOD) adalah unit of work workflow shortage. Dibuat transien dari
// setiap fetch detail order, di-overlay dengan snapshot history, lalu dibuang
// saat user pindah order. Kebenaran persisten hidup di WorkflowSnapshot.
type LineItem struct {
	ID         string  `json:"id"`
	DetailName string  `json:"detailName"`
	SONumber   string  `json:"soNumber"`
	Product    Product `json:"product"`

	QtyOrdered   int `json:"qtyOrdered"`
	QtyDelivered int `json:"qtyDelivered"`
	QtyAvailable int `json:"qtyAvailable"`

	WarehouseLocation string `json:"warehouseLocation,omitempty"`

	Status           SODStatus     `json:"status"`
	NotificationSent bool          `json:"isNotificationSent"`
	SaleDecision     *SaleDecision `json:"saleDecision,omitempty"`
	SourcePlan       *SourcePlan   `json:"sourcePlan,omitempty"`
}

// RemainingToShip -> max(0, ordered - delivered). Derived, tidak pernah disimpan.
func (s *LineItem) RemainingToShip() int {
	rs := s.QtyOrdered - s.QtyDelivered
	if rs < 0 {
		return 0
	}
	return rs
}

// Shortage -> max(0, remainingToShip - available)
func (s *LineItem) Shortage() int {
	sq := s.RemainingToShip() - s.QtyAvailable
	if sq < 0 {
		return 0
	}
	return sq
}

func (s *LineItem) IsSufficient() bool {
	return s.Shortage() == 0
}

// IsSourcePlanConfirmed -> rencana Source hanya otoritatif kalau Sale memang
// memilih WAIT_ALL. Plan sisa siklus sebelumnya tidak boleh tampil sebagai
// confirmed kalau Sale memilih SHIP_PARTIAL atau belum memutuskan.
func (s *LineItem) IsSourcePlanConfirmed() bool {
	return s.SourcePlan != nil &&
		s.SourcePlan.Status == SourcePlanConfirmed &&
		s.SaleDecision != nil &&
		s.SaleDecision.Action == SaleWaitAll
}

// Clone -> deep copy supaya state machine bisa bekerja dengan value semantics
func (s LineItem) Clone() LineItem {
	out := s
	if s.SaleDecision != nil {
		d := *s.SaleDecision
		out.SaleDecision = &d
	}
	if s.SourcePlan != nil {
		p := *s.SourcePlan
		out.SourcePlan = &p
	}
	return out
}
