package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is an attachment uploaded against a project. The blob lives on disk
// under StoredName; Name keeps the client's original filename.
type File struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	StoredName string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"stored_name"`
	Path       string    `gorm:"type:text;not null" json:"-"`
	Size       int64     `gorm:"not null" json:"size"`
	MimeType   string    `gorm:"type:varchar(120)" json:"mime_type"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	CreatedAt  time.Time `json:"created_at"`

	URL string `gorm:"-" json:"url,omitempty"`
}

func (f *File) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

// PublicPath is the download path served by the /uploads static route,
// prefixed with base when the API runs behind a public URL.
func (f *File) PublicPath(base string) string {
	p := "/uploads/" + f.StoredName
	if base != "" {
		p = strings.TrimRight(base, "/") + p
	}
	return p
}
