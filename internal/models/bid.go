// internal/models/bid.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidPending  BidStatus = "PENDING"
	BidAccepted BidStatus = "ACCEPTED"
	BidRejected BidStatus = "REJECTED"
)

type Bid struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	DeliveryTime int       `gorm:"not null" json:"delivery_time"` // days
	Message      string    `gorm:"type:text;not null" json:"message"`
	Status       BidStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// one bid per seller per project
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_project_seller" json:"project_id"`
	SellerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_project_seller;index" json:"seller_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Seller  *User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
