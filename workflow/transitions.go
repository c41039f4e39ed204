package workflow

import (
	"strings"
	"time"

	"github.com/yeremiapane/shortage-app/models"
)

// ReopenPolicy menentukan nasib saleDecision/sourcePlan ketika item SUFFICIENT
// kembali masuk shortage karena gudang menurunkan qty available.
type ReopenPolicy string

const (
	// ReopenPreserve mempertahankan keputusan lama (perilaku sistem lama;
	// masih open question di product owner).
	ReopenPreserve ReopenPolicy = "preserve"
	// ReopenClearDecisions menghapus saleDecision dan sourcePlan supaya siklus
	// review mulai dari awal.
	ReopenClearDecisions ReopenPolicy = "clear_decisions"
)

// ParseReopenPolicy -> default ReopenPreserve untuk nilai kosong/tak dikenal
func ParseReopenPolicy(s string) ReopenPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(ReopenClearDecisions)) {
		return ReopenClearDecisions
	}
	return ReopenPreserve
}

// Semua transisi di bawah ini pure: menerima item by value, mengembalikan item
// baru plus flag applied. Kombinasi role/state yang tidak valid adalah no-op
// inert (applied=false, item tidak berubah) -- bukan error. Admin melewati
// gating role, tidak pernah melewati gating state.

func canActAsWarehouse(role models.Role) bool {
	return role == models.RoleWarehouse || role == models.RoleAdmin
}

func canActAsSale(role models.Role) bool {
	return role == models.RoleSale || role == models.RoleAdmin
}

func canActAsSource(role models.Role) bool {
	return role == models.RoleSource || role == models.RoleAdmin
}

// SetAvailable -> Warehouse meng-update qty available hasil cek fisik gudang.
// Terkunci begitu notifikasi shortage sudah terkirim.
func SetAvailable(item models.LineItem, role models.Role, qty int, policy ReopenPolicy) (models.LineItem, bool) {
	if !canActAsWarehouse(role) {
		return item, false
	}
	if item.NotificationSent || qty < 0 {
		return item, false
	}

	next := item.Clone()
	wasSufficient := next.Status == models.StatusSufficient
	nextStatus := DeriveStatus(next.Status, next.RemainingToShip(), qty)
	next.QtyAvailable = qty
	next.Status = nextStatus

	if wasSufficient && nextStatus == models.StatusShortagePendingSale && policy == ReopenClearDecisions {
		next.SaleDecision = nil
		next.SourcePlan = nil
	}
	return next, true
}

// SendShortageNotice -> Warehouse mengunci qty dan meneruskan shortage ke Sale.
// Guard: masih ada shortage, Sale belum memutuskan, belum pernah dikirim.
func SendShortageNotice(item models.LineItem, role models.Role) (models.LineItem, bool) {
	if !canActAsWarehouse(role) {
		return item, false
	}
	if item.Shortage() == 0 || item.SaleDecision != nil || item.NotificationSent {
		return item, false
	}

	next := item.Clone()
	next.NotificationSent = true
	return next, true
}

// DecideSale -> keputusan Sale, write-once per siklus.
// SHIP_PARTIAL menutup workflow (sourcePlan lama dibiarkan apa adanya);
// WAIT_ALL meneruskan ke Source dan membuang plan sisa siklus sebelumnya
// supaya Source mulai dari input segar.
func DecideSale(item models.LineItem, role models.Role, action models.SaleAction, now time.Time) (models.LineItem, bool) {
	if !canActAsSale(role) {
		return item, false
	}
	if item.SaleDecision != nil {
		return item, false
	}
	if action != models.SaleShipPartial && action != models.SaleWaitAll {
		return item, false
	}

	next := item.Clone()
	next.SaleDecision = &models.SaleDecision{Action: action, Timestamp: now}
	if action == models.SaleShipPartial {
		next.Status = models.StatusResolved
	} else {
		next.Status = models.StatusShortagePendingSource
		next.SourcePlan = nil
	}
	return next, true
}

// ConfirmSourcePlan -> Source mengisi ETA + supplier. Hanya sah ketika status
// persis SHORTAGE_PENDING_SOURCE dan belum ada plan otoritatif.
func ConfirmSourcePlan(item models.LineItem, role models.Role, eta, supplier string, now time.Time) (models.LineItem, bool) {
	if !canActAsSource(role) {
		return item, false
	}
	if item.Status != models.StatusShortagePendingSource || item.IsSourcePlanConfirmed() {
		return item, false
	}
	if strings.TrimSpace(eta) == "" {
		return item, false
	}

	next := item.Clone()
	next.Status = models.StatusResolved
	next.SourcePlan = &models.SourcePlan{
		Status:    models.SourcePlanConfirmed,
		ETA:       eta,
		Supplier:  supplier,
		Timestamp: now,
	}
	return next, true
}
