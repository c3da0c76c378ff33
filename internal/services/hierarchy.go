package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/filedrive/backend/internal/models"
	"github.com/filedrive/backend/internal/store"
	"github.com/google/uuid"
)

// HierarchyService owns the tree semantics of the file store: sibling name
// resolution, path materialization, rename validation and recursive search.
// It only ever talks to the record store.
type HierarchyService struct {
	Store *store.RecordStore
}

func NewHierarchyService(records *store.RecordStore) *HierarchyService {
	return &HierarchyService{Store: records}
}

// splitName splits a file name at its last dot. Names without a dot keep the
// whole string as the base and get an empty extension.
func splitName(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// ResolveName picks the final name for a new file within one (owner, parent)
// scope. The desired name is used unchanged when free; otherwise base_v1,
// base_v2, ... are probed until one is unused. The probe and the caller's
// later insert are separate store calls with no locking, so two concurrent
// uploads of the same name into the same scope can both pass — a known race.
func (s *HierarchyService) ResolveName(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, desired string) (string, error) {
	siblings, err := s.Store.ByOwnerAndParent(ctx, ownerID, parentID)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(siblings))
	for _, sibling := range siblings {
		taken[sibling.Name] = struct{}{}
	}

	base, ext := splitName(desired)
	final := desired
	version := 1
	for {
		if _, exists := taken[final]; !exists {
			return final, nil
		}
		final = fmt.Sprintf("%s_v%d%s", base, version, ext)
		version++
	}
}

// MaterializePath computes the stored path for a new file: nil for a file at
// the root, parent.path + "/" + name otherwise. A dangling parent reference
// degrades silently to a root-relative path instead of failing. The result
// is a one-time snapshot; later renames of the parent do not refresh it.
func (s *HierarchyService) MaterializePath(ctx context.Context, parentID *uuid.UUID, finalName string) (*string, error) {
	if parentID == nil {
		return nil, nil
	}

	parent, err := s.Store.ByID(ctx, *parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		path := "/" + finalName
		return &path, nil
	}

	parentPath := ""
	if parent.Path != nil {
		parentPath = *parent.Path
	}
	path := parentPath + "/" + finalName
	return &path, nil
}

// Rename changes a record's display name. The record is found by
// (owner, oldName) across all folders — a wider scope than the per-folder
// uniqueness upload enforces. Renaming to the current name reports
// ErrNameExists without touching the record, and path is never recomputed.
func (s *HierarchyService) Rename(ctx context.Context, ownerID uuid.UUID, oldName, newName string) (string, error) {
	record, err := s.Store.ByOwnerAndName(ctx, ownerID, oldName)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrFileNotFound
	}
	if oldName == newName {
		return "", ErrNameExists
	}

	record.Name = newName
	if err := s.Store.Save(ctx, record); err != nil {
		return "", err
	}
	return newName, nil
}

// Search walks the subtree rooted at startFolderID depth-first and collects
// every record whose name starts with the prefix, case-insensitively. Each
// level's matches come before anything from its subfolders, and sibling
// subtrees are visited in store order. Subfolders are descended into whether
// or not their own name matches. The walk uses an explicit worklist, so tree
// depth never grows the goroutine stack.
func (s *HierarchyService) Search(ctx context.Context, ownerID uuid.UUID, startFolderID *uuid.UUID, prefix string) ([]models.File, error) {
	prefix = strings.ToLower(prefix)
	results := make([]models.File, 0)

	stack := []*uuid.UUID{startFolderID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.Store.ByOwnerAndParent(ctx, ownerID, current)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if strings.HasPrefix(strings.ToLower(child.Name), prefix) {
				results = append(results, child)
			}
		}

		// Pushed in reverse so the first sibling folder is visited next,
		// matching a plain recursive walk.
		for i := len(children) - 1; i >= 0; i-- {
			if children[i].IsFolder {
				folderID := children[i].ID
				stack = append(stack, &folderID)
			}
		}
	}

	return results, nil
}
