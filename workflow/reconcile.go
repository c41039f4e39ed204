package workflow

import (
	"time"

	"github.com/yeremiapane/shortage-app/models"
)

// MergeSnapshot meng-overlay snapshot yang tersimpan ke item hasil fetch segar.
// Lookup memakai id ternormalisasi (case-insensitive, tanpa braces) karena id
// dari URL, history, dan API tidak dijamin datang dalam bentuk kanonik yang
// sama. Entry snapshot yang tidak cocok dengan item manapun diabaikan; item
// tanpa entry lewat tak tersentuh. Idempoten: merge dua kali = merge sekali.
func MergeSnapshot(fresh []models.LineItem, snap *models.WorkflowSnapshot) []models.LineItem {
	out := make([]models.LineItem, 0, len(fresh))
	if snap == nil || len(snap.Items) == 0 {
		for _, item := range fresh {
			out = append(out, item.Clone())
		}
		return out
	}

	normalized := make(map[models.RecordID]models.SnapshotEntry, len(snap.Items))
	for key, entry := range snap.Items {
		normalized[models.NewRecordID(key)] = entry
	}

	for _, item := range fresh {
		next := item.Clone()
		if entry, ok := normalized[models.NewRecordID(item.ID)]; ok {
			if entry.QtyAvailable != nil {
				next.QtyAvailable = *entry.QtyAvailable
			}
			if entry.Status != "" {
				next.Status = entry.Status
			}
			// absen di snapshot berarti false, bukan "pertahankan fresh"
			next.NotificationSent = entry.NotificationSent
			if entry.SaleDecision != nil {
				d := *entry.SaleDecision
				next.SaleDecision = &d
			}
			if entry.SourcePlan != nil {
				p := *entry.SourcePlan
				next.SourcePlan = &p
			}
		}
		out = append(out, next)
	}
	return out
}

// BuildSnapshot men-serialize lima field overlay dari setiap item, keyed by id
// apa adanya (snapshot menyimpan id seperti yang diterima, tanpa normalisasi).
func BuildSnapshot(items []models.LineItem, ctx models.SnapshotContext, now time.Time) *models.WorkflowSnapshot {
	snap := &models.WorkflowSnapshot{
		Timestamp: now,
		Context:   ctx,
		Items:     make(map[string]models.SnapshotEntry, len(items)),
	}
	for _, item := range items {
		qty := item.QtyAvailable
		entry := models.SnapshotEntry{
			QtyAvailable:     &qty,
			Status:           item.Status,
			NotificationSent: item.NotificationSent,
		}
		if item.SaleDecision != nil {
			d := *item.SaleDecision
			entry.SaleDecision = &d
		}
		if item.SourcePlan != nil {
			p := *item.SourcePlan
			entry.SourcePlan = &p
		}
		snap.Items[item.ID] = entry
	}
	return snap
}
