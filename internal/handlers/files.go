package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/filedrive/backend/internal/middleware"
	"github.com/filedrive/backend/internal/services"
	"github.com/filedrive/backend/internal/store"
	"github.com/filedrive/backend/pkg/logger"
	"github.com/filedrive/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Store     *store.RecordStore
	Hierarchy *services.HierarchyService
	Ingest    *services.IngestService
	Sharing   *services.SharingService
	Audit     *services.AuditService
}

func NewFilesHandler(records *store.RecordStore, hierarchy *services.HierarchyService, ingest *services.IngestService, sharing *services.SharingService, audit *services.AuditService) *FilesHandler {
	return &FilesHandler{Store: records, Hierarchy: hierarchy, Ingest: ingest, Sharing: sharing, Audit: audit}
}

// resolveParent validates an optional parentId value. Empty selects the
// owner's root. Otherwise the id must point at an existing folder owned by
// the same user. When ok is false the error response has been written and
// resp must be returned as-is.
func (h *FilesHandler) resolveParent(c *fiber.Ctx, ownerID uuid.UUID, raw string) (parentID *uuid.UUID, ok bool, resp error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true, nil
	}

	parsed, err := parseUUID(raw)
	if err != nil {
		return nil, false, utils.Error(c, fiber.StatusBadRequest, "invalid parentId")
	}

	parent, err := h.Store.ByID(c.Context(), parsed)
	if err != nil {
		return nil, false, utils.Error(c, fiber.StatusInternalServerError, "failed loading parent folder")
	}
	if parent == nil || parent.OwnerID != ownerID {
		return nil, false, utils.Error(c, fiber.StatusNotFound, "parent folder not found")
	}
	if !parent.IsFolder {
		return nil, false, utils.Error(c, fiber.StatusBadRequest, "parentId must be a folder")
	}

	return &parsed, true, nil
}

// List returns the records directly inside one (owner, parent) scope.
func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	parentID, ok, resp := h.resolveParent(c, currentUser.ID, c.Query("parentId"))
	if !ok {
		return resp
	}

	records, err := h.Store.ByOwnerAndParent(c.Context(), currentUser.ID, parentID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	return utils.Success(c, fiber.StatusOK, records)
}

// Upload stores a single multipart file. The response carries the final
// name, which may differ from the submitted one when a sibling already used
// it.
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	parentID, ok, resp := h.resolveParent(c, currentUser.ID, c.FormValue("parentId"))
	if !ok {
		return resp
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	record, err := h.Ingest.UploadFile(c.Context(), currentUser.ID, parentID, services.UploadInput{
		Name:        filepath.Base(fileHeader.Filename),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        stream,
	})
	if err != nil {
		if err == services.ErrEmptyFileName {
			return utils.Error(c, fiber.StatusBadRequest, "file name cannot be empty")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading file")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.upload",
		ResourceType: "file",
		ResourceID:   &record.ID,
		Details: map[string]interface{}{
			"file_name": record.Name,
			"file_size": record.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"fileName": record.Name,
		"file":     record,
	})
}

// Download streams a file's payload, addressed by name within the whole of
// the owner's tree.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileName := strings.TrimSpace(c.Query("fileName"))
	if fileName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "fileName is required")
	}

	record, err := h.Store.ByOwnerAndName(c.Context(), currentUser.ID, fileName)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}
	if record == nil || !record.IsFile || record.StoragePath == "" {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}

	body, size, err := h.Ingest.Blobs.Download(c.Context(), record.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed downloading file")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.download",
		ResourceType: "file",
		ResourceID:   &record.ID,
		Details: map[string]interface{}{
			"file_name": record.Name,
			"file_size": size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	c.Set("Content-Type", record.MimeType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Name))
	return c.SendStream(body, int(size))
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (h *FilesHandler) CreateFolder(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	parentID, ok, resp := h.resolveParent(c, currentUser.ID, req.ParentID)
	if !ok {
		return resp
	}

	folder, err := h.Ingest.CreateFolder(c.Context(), currentUser.ID, parentID, name)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.create",
		ResourceType: "file",
		ResourceID:   &folder.ID,
		Details:      map[string]interface{}{"folder_name": name},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, folder)
}

type renameRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (h *FilesHandler) Rename(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.NewName = strings.TrimSpace(req.NewName)
	if req.OldName == "" || req.NewName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "oldName and newName are required")
	}

	newName, err := h.Hierarchy.Rename(c.Context(), currentUser.ID, req.OldName, req.NewName)
	if err != nil {
		switch err {
		case services.ErrFileNotFound:
			return utils.Error(c, fiber.StatusNotFound, "file or folder not found")
		case services.ErrNameExists:
			return utils.Error(c, fiber.StatusConflict, "file name already exists")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed renaming file")
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.rename",
		ResourceType: "file",
		Details: map[string]interface{}{
			"old_name": req.OldName,
			"new_name": newName,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message":     "file or folder renamed successfully",
		"newFileName": newName,
	})
}

// Search runs the recursive prefix search from an optional start folder.
func (h *FilesHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	term := strings.TrimSpace(c.Query("term"))
	if term == "" {
		return utils.Error(c, fiber.StatusBadRequest, "search term is required")
	}

	parentID, ok, resp := h.resolveParent(c, currentUser.ID, c.Query("parentId"))
	if !ok {
		return resp
	}

	results, err := h.Hierarchy.Search(c.Context(), currentUser.ID, parentID, term)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "search failed")
	}

	return utils.Success(c, fiber.StatusOK, results)
}

// UploadFolder creates a folder and its files from one multipart request.
func (h *FilesHandler) UploadFolder(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "multipart form is required")
	}

	folderName := ""
	if values := form.Value["folderName"]; len(values) > 0 {
		folderName = strings.TrimSpace(values[0])
	}
	if folderName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "folderName is required")
	}

	parentRaw := ""
	if values := form.Value["parentId"]; len(values) > 0 {
		parentRaw = values[0]
	}
	parentID, ok, resp := h.resolveParent(c, currentUser.ID, parentRaw)
	if !ok {
		return resp
	}

	inputs := make([]services.UploadInput, 0, len(form.File["files"]))
	streams := make([]func() error, 0, len(form.File["files"]))
	for _, fileHeader := range form.File["files"] {
		stream, openErr := fileHeader.Open()
		if openErr != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
		}
		streams = append(streams, stream.Close)
		inputs = append(inputs, services.UploadInput{
			Name:        filepath.Base(fileHeader.Filename),
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        stream,
		})
	}
	defer func() {
		for _, closeStream := range streams {
			_ = closeStream()
		}
	}()

	folder, created, err := h.Ingest.UploadFolder(c.Context(), currentUser.ID, parentID, folderName, inputs)
	if err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "folder_upload_failed", err, map[string]interface{}{
			"folder_name": folderName,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.upload",
		ResourceType: "file",
		ResourceID:   &folder.ID,
		Details: map[string]interface{}{
			"folder_name": folderName,
			"files":       created,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"folderId":   folder.ID,
		"folderName": folderName,
		"totalFiles": created,
	})
}

type shareRequest struct {
	FileName       string `json:"fileName"`
	RecipientEmail string `json:"recipientEmail"`
}

// Share dispatches a share-by-email notification for one of the owner's
// files.
func (h *FilesHandler) Share(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req shareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.Sharing.Share(c.Context(), currentUser, req.FileName, req.RecipientEmail)
	if err != nil {
		switch err {
		case services.ErrEmptyRecipient:
			return utils.Error(c, fiber.StatusBadRequest, "recipient email cannot be empty")
		case services.ErrFileNotFound:
			return utils.Error(c, fiber.StatusNotFound, "file or folder not found")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed sharing file")
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.share",
		ResourceType: "file",
		Details: map[string]interface{}{
			"file_name": req.FileName,
			"recipient": req.RecipientEmail,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": message})
}
