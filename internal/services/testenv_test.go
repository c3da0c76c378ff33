package services

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/filedrive/backend/internal/models"
	"github.com/filedrive/backend/internal/storage"
	"github.com/filedrive/backend/internal/store"
	"github.com/filedrive/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type serviceEnv struct {
	db        *gorm.DB
	store     *store.RecordStore
	blobs     *storage.MemoryBlobStore
	hierarchy *HierarchyService
	ingest    *IngestService
}

var loggerOnce sync.Once

func setupServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	loggerOnce.Do(logger.Init)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &models.File{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	records := store.NewRecordStore(db)
	blobs := storage.NewMemoryBlobStore()
	hierarchy := NewHierarchyService(records)
	ingest := NewIngestService(records, blobs, hierarchy)

	return &serviceEnv{
		db:        db,
		store:     records,
		blobs:     blobs,
		hierarchy: hierarchy,
		ingest:    ingest,
	}
}

func uploadInput(name string, payload []byte) UploadInput {
	return UploadInput{
		Name: name,
		Size: int64(len(payload)),
		Body: bytes.NewReader(payload),
	}
}

func mustUpload(t *testing.T, env *serviceEnv, ownerID uuid.UUID, parentID *uuid.UUID, name string) *models.File {
	t.Helper()

	record, err := env.ingest.UploadFile(context.Background(), ownerID, parentID, uploadInput(name, []byte("payload")))
	if err != nil {
		t.Fatalf("failed uploading %q: %v", name, err)
	}
	return record
}

func mustCreateFolder(t *testing.T, env *serviceEnv, ownerID uuid.UUID, parentID *uuid.UUID, name string) *models.File {
	t.Helper()

	folder, err := env.ingest.CreateFolder(context.Background(), ownerID, parentID, name)
	if err != nil {
		t.Fatalf("failed creating folder %q: %v", name, err)
	}
	return folder
}
