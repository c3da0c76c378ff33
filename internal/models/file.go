package models

import "github.com/google/uuid"

// File is the single entity behind the hierarchy: both files and folders
// live in the files table, distinguished by IsFile/IsFolder. A record with a
// NULL ParentID sits at the root of its owner's tree.
type File struct {
	BaseModel
	Name     string     `json:"name" gorm:"type:varchar(255);not null;index:idx_files_owner_name,priority:2"`
	MimeType string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size     int64      `json:"size" gorm:"not null;default:0"`
	IsFile   bool       `json:"isFile" gorm:"not null;default:false"`
	IsFolder bool       `json:"isFolder" gorm:"not null;default:false;index"`
	ParentID *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index"`
	OwnerID  uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index;index:idx_files_owner_name,priority:1"`

	// Path is materialized once at creation time from the parent's path and
	// never recomputed, so renaming an ancestor leaves descendant paths
	// stale. Root-level files carry no path at all.
	Path *string `json:"path,omitempty" gorm:"type:text"`

	// StoragePath is the object key in blob storage; empty for folders.
	StoragePath string `json:"-" gorm:"type:text"`

	Parent   *File  `json:"-" gorm:"foreignKey:ParentID"`
	Children []File `json:"-" gorm:"foreignKey:ParentID"`
	Owner    User   `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}

func (File) TableName() string {
	return "files"
}
