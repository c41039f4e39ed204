package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/shortage-app/models"
)

func freshItems() []models.LineItem {
	return []models.LineItem{
		{
			ID:         "A1B2C3",
			DetailName: "SO_0001-1",
			QtyOrdered: 100,
			Status:     models.StatusShortagePendingSale,
		},
		{
			ID:         "D4E5F6",
			DetailName: "SO_0001-2",
			QtyOrdered: 50,
			Status:     models.StatusShortagePendingSale,
		},
	}
}

func TestMergeSnapshotOverlay(t *testing.T) {
	// skenario 5: sesi restart, item A1B2C3 sudah RESOLVED di snapshot
	qty := 40
	snap := &models.WorkflowSnapshot{
		Timestamp: time.Now(),
		Items: map[string]models.SnapshotEntry{
			// key sengaja dalam format non-kanonik
			"{a1b2c3}": {
				QtyAvailable:     &qty,
				Status:           models.StatusResolved,
				NotificationSent: true,
				SaleDecision:     &models.SaleDecision{Action: models.SaleShipPartial, Timestamp: time.Now()},
			},
		},
	}

	merged := MergeSnapshot(freshItems(), snap)
	assert.Len(t, merged, 2)

	assert.Equal(t, models.StatusResolved, merged[0].Status)
	assert.Equal(t, 40, merged[0].QtyAvailable)
	assert.True(t, merged[0].NotificationSent)
	assert.Equal(t, models.SaleShipPartial, merged[0].SaleDecision.Action)
	// field yang tidak ada di snapshot mempertahankan nilai fresh
	assert.Equal(t, "SO_0001-1", merged[0].DetailName)
	assert.Equal(t, 100, merged[0].QtyOrdered)

	// item tanpa entry lewat tak tersentuh
	assert.Equal(t, freshItems()[1], merged[1])
}

func TestMergeSnapshotUnknownKeysIgnored(t *testing.T) {
	qty := 7
	snap := &models.WorkflowSnapshot{
		Items: map[string]models.SnapshotEntry{
			"no-such-sod": {QtyAvailable: &qty, Status: models.StatusResolved},
		},
	}
	merged := MergeSnapshot(freshItems(), snap)
	assert.Equal(t, freshItems(), merged)
}

func TestMergeSnapshotNil(t *testing.T) {
	assert.Equal(t, freshItems(), MergeSnapshot(freshItems(), nil))
	assert.Equal(t, freshItems(), MergeSnapshot(freshItems(), &models.WorkflowSnapshot{}))
}

func TestMergeSnapshotIdempotent(t *testing.T) {
	qty := 12
	snap := &models.WorkflowSnapshot{
		Items: map[string]models.SnapshotEntry{
			"A1B2C3": {QtyAvailable: &qty, Status: models.StatusShortagePendingSource, NotificationSent: true},
		},
	}
	once := MergeSnapshot(freshItems(), snap)
	twice := MergeSnapshot(once, snap)
	assert.Equal(t, once, twice)
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	items := freshItems()
	items[0].QtyAvailable = 40
	items[0].Status = models.StatusShortagePendingSource
	items[0].NotificationSent = true
	items[0].SaleDecision = &models.SaleDecision{Action: models.SaleWaitAll, Timestamp: now}
	items[1].SourcePlan = &models.SourcePlan{Status: models.SourcePlanConfirmed, ETA: "2025-06-01", Supplier: "Acme", Timestamp: now}

	ctx := models.SnapshotContext{OrderID: "ord-1", OrderNumber: "SO_0001"}
	snap := BuildSnapshot(items, ctx, now)

	assert.Equal(t, now, snap.Timestamp)
	assert.Equal(t, ctx, snap.Context)
	assert.Len(t, snap.Items, 2)
	// snapshot menyimpan id apa adanya
	assert.Contains(t, snap.Items, "A1B2C3")

	// merge(buildSnapshot(items)) mereproduksi kelima field overlay persis
	restored := MergeSnapshot(freshItems(), snap)
	for i := range items {
		assert.Equal(t, items[i].QtyAvailable, restored[i].QtyAvailable)
		assert.Equal(t, items[i].Status, restored[i].Status)
		assert.Equal(t, items[i].NotificationSent, restored[i].NotificationSent)
		assert.Equal(t, items[i].SaleDecision, restored[i].SaleDecision)
		assert.Equal(t, items[i].SourcePlan, restored[i].SourcePlan)
	}
}

func TestBuildSnapshotCopiesDecisions(t *testing.T) {
	now := time.Now()
	items := freshItems()
	items[0].SaleDecision = &models.SaleDecision{Action: models.SaleWaitAll, Timestamp: now}

	snap := BuildSnapshot(items, models.SnapshotContext{}, now)

	// mutasi item setelah build tidak boleh bocor ke snapshot
	items[0].SaleDecision.Action = models.SaleShipPartial
	assert.Equal(t, models.SaleWaitAll, snap.Items["A1B2C3"].SaleDecision.Action)
}
