// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "PENDING"     // open for bids
	ProjectInProgress ProjectStatus = "IN_PROGRESS" // a bid was accepted
	ProjectCompleted  ProjectStatus = "COMPLETED"   // terminal
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`

	BudgetMin int64     `gorm:"not null" json:"budget_min"`
	BudgetMax int64     `gorm:"not null" json:"budget_max"`
	Deadline  time.Time `gorm:"not null" json:"deadline"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	BuyerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID *uuid.UUID `gorm:"type:uuid;index" json:"seller_id"` // null while PENDING

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Buyer  *User  `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller *User  `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Files  []File `gorm:"foreignKey:ProjectID" json:"files,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p *Project) IsOwner(userID uuid.UUID) bool {
	return p.BuyerID == userID
}

func (p *Project) IsAssignedSeller(userID uuid.UUID) bool {
	return p.SellerID != nil && *p.SellerID == userID
}

// ResolveFileURLs fills the public download URL of every loaded file.
func (p *Project) ResolveFileURLs(base string) {
	for i := range p.Files {
		p.Files[i].URL = p.Files[i].PublicPath(base)
	}
}
