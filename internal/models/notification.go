package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is one entry of a user's in-app inbox.
type Notification struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind    string         `gorm:"type:varchar(40);not null" json:"kind"`
	Title   string         `gorm:"type:varchar(200);not null" json:"title"`
	Body    string         `gorm:"type:text" json:"body"`
	Payload datatypes.JSON `json:"payload"`
	ReadAt  *time.Time     `json:"read_at"`

	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Project{},
		&Bid{},
		&File{},
		&Notification{},
	}
}
