package store

import (
	"context"
	"errors"

	"github.com/filedrive/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordStore is the query surface the hierarchy engine runs on. Everything
// the engine knows about persistence goes through these four calls.
type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// ByOwnerAndParent returns every record in one (owner, parent) scope in
// insertion order. A nil parentID selects the owner's root scope.
func (s *RecordStore) ByOwnerAndParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.File, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var records []models.File
	if err := query.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ByOwnerAndName looks a record up by name across all of the owner's
// folders. Rename and download lean on this per-user lookup even though
// upload only de-duplicates names per scope; callers get the first match.
// Returns (nil, nil) when no record matches.
func (s *RecordStore) ByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*models.File, error) {
	var record models.File
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		Order("created_at ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ByID returns (nil, nil) when the record does not exist.
func (s *RecordStore) ByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var record models.File
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Save inserts the record when its id is unset and updates it otherwise.
func (s *RecordStore) Save(ctx context.Context, record *models.File) error {
	return s.db.WithContext(ctx).Save(record).Error
}
