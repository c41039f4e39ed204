package services

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// GormHistoryStore menyimpan snapshot workflow per record id di tabel
// order_requests, satu blob JSON per record.
type GormHistoryStore struct {
	DB *gorm.DB
}

func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{DB: db}
}

// ReadSnapshot -> (nil, nil) untuk record id kosong, record yang tidak ada,
// history kosong, atau JSON rusak. Snapshot yang hilang bukan error: sesi
// mulai bersih dari master data.
func (s *GormHistoryStore) ReadSnapshot(ctx context.Context, recordID models.RecordID) (*models.WorkflowSnapshot, error) {
	if recordID.IsZero() {
		return nil, nil
	}

	var row models.OrderRequest
	err := s.DB.WithContext(ctx).
		Where("record_id = ?", string(recordID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if row.History == "" {
		return nil, nil
	}

	var snap models.WorkflowSnapshot
	if err := json.Unmarshal([]byte(row.History), &snap); err != nil {
		utils.ErrorLogger.Printf("malformed history for record %s, starting clean: %v", recordID, err)
		return nil, nil
	}
	return &snap, nil
}

// WriteSnapshot mengganti seluruh blob history record (last-write-wins).
func (s *GormHistoryStore) WriteSnapshot(ctx context.Context, recordID models.RecordID, snap *models.WorkflowSnapshot) error {
	if recordID.IsZero() {
		return nil
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	db := s.DB.WithContext(ctx)
	var row models.OrderRequest
	err = db.Where("record_id = ?", string(recordID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.OrderRequest{
			RecordID: string(recordID),
			History:  string(raw),
		}).Error
	}
	if err != nil {
		return err
	}

	return db.Model(&row).Update("history", string(raw)).Error
}
