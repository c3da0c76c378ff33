package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/filedrive/backend/internal/models"
	"github.com/filedrive/backend/internal/storage"
	"github.com/filedrive/backend/internal/store"
	"github.com/filedrive/backend/pkg/logger"
	"github.com/google/uuid"
)

const folderMimeType = "inode/directory"

// UploadInput is one incoming file payload, already detached from the
// transport layer.
type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IngestService orchestrates uploads and folder creation, delegating every
// naming and path decision to the hierarchy engine.
type IngestService struct {
	Store     *store.RecordStore
	Blobs     storage.BlobStore
	Hierarchy *HierarchyService
}

func NewIngestService(records *store.RecordStore, blobs storage.BlobStore, hierarchy *HierarchyService) *IngestService {
	return &IngestService{Store: records, Blobs: blobs, Hierarchy: hierarchy}
}

// UploadFile stores a single file in the given scope. The name is
// de-duplicated against the scope's existing siblings, the path materialized
// from the parent, the payload written to blob storage and the record
// persisted. Returns the record carrying the final chosen name.
func (s *IngestService) UploadFile(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, in UploadInput) (*models.File, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrEmptyFileName
	}

	finalName, err := s.Hierarchy.ResolveName(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, err
	}

	path, err := s.Hierarchy.MaterializePath(ctx, parentID, finalName)
	if err != nil {
		return nil, err
	}

	contentType := resolveContentType(in.ContentType, finalName)
	objectName := fmt.Sprintf("%s/%s/%s", ownerID.String(), uuid.New().String(), finalName)
	if err := s.Blobs.Upload(ctx, objectName, in.Body, in.Size, contentType); err != nil {
		return nil, err
	}

	record := &models.File{
		Name:        finalName,
		MimeType:    contentType,
		Size:        in.Size,
		IsFile:      true,
		IsFolder:    false,
		ParentID:    parentID,
		OwnerID:     ownerID,
		Path:        path,
		StoragePath: objectName,
	}

	if err := s.Store.Save(ctx, record); err != nil {
		_ = s.Blobs.Delete(ctx, objectName)
		return nil, err
	}

	logger.InfoWithUser(ownerID.String(), "file_uploaded", map[string]interface{}{
		"file_id":      record.ID.String(),
		"file_name":    finalName,
		"file_size":    in.Size,
		"storage_path": objectName,
	})

	return record, nil
}

// UploadFolder creates a folder record under parentID and a child file
// record for every non-empty payload. Neither the folder nor its children go
// through name resolution, and none of them get a materialized path; that
// asymmetry with single-file upload is deliberate. Entries with an empty
// payload are skipped silently. Returns the folder record and how many
// children were created.
func (s *IngestService) UploadFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, folderName string, files []UploadInput) (*models.File, int, error) {
	folder := &models.File{
		Name:     folderName,
		MimeType: folderMimeType,
		IsFile:   false,
		IsFolder: true,
		ParentID: parentID,
		OwnerID:  ownerID,
	}
	if err := s.Store.Save(ctx, folder); err != nil {
		return nil, 0, err
	}

	created := 0
	for _, in := range files {
		if in.Size == 0 {
			continue
		}

		contentType := resolveContentType(in.ContentType, in.Name)
		objectName := fmt.Sprintf("%s/%s/%s", ownerID.String(), uuid.New().String(), in.Name)
		if err := s.Blobs.Upload(ctx, objectName, in.Body, in.Size, contentType); err != nil {
			return folder, created, err
		}

		child := &models.File{
			Name:        in.Name,
			MimeType:    contentType,
			Size:        in.Size,
			IsFile:      true,
			IsFolder:    false,
			ParentID:    &folder.ID,
			OwnerID:     ownerID,
			StoragePath: objectName,
		}
		// No rollback of earlier children on failure; partial folder
		// uploads stay persisted.
		if err := s.Store.Save(ctx, child); err != nil {
			_ = s.Blobs.Delete(ctx, objectName)
			return folder, created, err
		}
		created++
	}

	logger.InfoWithUser(ownerID.String(), "folder_uploaded", map[string]interface{}{
		"folder_id":   folder.ID.String(),
		"folder_name": folderName,
		"files":       created,
	})

	return folder, created, nil
}

// CreateFolder persists a bare folder record. No sibling collision check and
// no path, same as folders created through bulk upload.
func (s *IngestService) CreateFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (*models.File, error) {
	folder := &models.File{
		Name:     name,
		MimeType: folderMimeType,
		IsFile:   false,
		IsFolder: true,
		ParentID: parentID,
		OwnerID:  ownerID,
	}
	if err := s.Store.Save(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func resolveContentType(declared, name string) string {
	if declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
