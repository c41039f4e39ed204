package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/models"
)

func setupHistoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.OrderRequest{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func sampleSnapshot() *models.WorkflowSnapshot {
	qty := 3
	return &models.WorkflowSnapshot{
		Timestamp: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		Context:   models.SnapshotContext{OrderID: "ord-1", OrderNumber: "SO-001"},
		Items: map[string]models.SnapshotEntry{
			"a1": {QtyAvailable: &qty, Status: models.StatusShortagePendingSale, NotificationSent: true},
		},
	}
}

func TestGormHistoryStore_WriteThenRead(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))
	ctx := context.Background()
	recordID := models.NewRecordID("{REC-1}")

	assert.NoError(t, store.WriteSnapshot(ctx, recordID, sampleSnapshot()))

	snap, err := store.ReadSnapshot(ctx, recordID)
	assert.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, "ord-1", snap.Context.OrderID)
	entry := snap.Items["a1"]
	assert.Equal(t, 3, *entry.QtyAvailable)
	assert.Equal(t, models.StatusShortagePendingSale, entry.Status)
	assert.True(t, entry.NotificationSent)
}

func TestGormHistoryStore_OverwriteReplacesBlob(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))
	ctx := context.Background()
	recordID := models.NewRecordID("rec-1")

	assert.NoError(t, store.WriteSnapshot(ctx, recordID, sampleSnapshot()))

	updated := sampleSnapshot()
	qty := 7
	updated.Items["a1"] = models.SnapshotEntry{QtyAvailable: &qty, Status: models.StatusResolved}
	assert.NoError(t, store.WriteSnapshot(ctx, recordID, updated))

	snap, err := store.ReadSnapshot(ctx, recordID)
	assert.NoError(t, err)
	assert.Equal(t, 7, *snap.Items["a1"].QtyAvailable)
	assert.Equal(t, models.StatusResolved, snap.Items["a1"].Status)

	// tetap satu baris per record
	var count int64
	store.DB.Model(&models.OrderRequest{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGormHistoryStore_MissingRecordIsNotError(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))

	snap, err := store.ReadSnapshot(context.Background(), models.NewRecordID("rec-404"))
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGormHistoryStore_ZeroRecordID(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))
	ctx := context.Background()

	snap, err := store.ReadSnapshot(ctx, models.NewRecordID("undefined"))
	assert.NoError(t, err)
	assert.Nil(t, snap)

	assert.NoError(t, store.WriteSnapshot(ctx, models.NewRecordID(""), sampleSnapshot()))
	var count int64
	store.DB.Model(&models.OrderRequest{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGormHistoryStore_MalformedHistoryStartsClean(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))
	ctx := context.Background()

	store.DB.Create(&models.OrderRequest{RecordID: "rec-1", History: "{broken json"})

	snap, err := store.ReadSnapshot(ctx, models.NewRecordID("rec-1"))
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGormHistoryStore_EmptyHistoryColumn(t *testing.T) {
	store := NewGormHistoryStore(setupHistoryDB(t))

	store.DB.Create(&models.OrderRequest{RecordID: "rec-1", History: ""})

	snap, err := store.ReadSnapshot(context.Background(), models.NewRecordID("rec-1"))
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
