// internal/models/user.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// ParseRole accepts any casing; the second result is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleBuyer, RoleSeller:
		return r, true
	}
	return r, false
}

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Password  string  `gorm:"not null" json:"-"`
	Role      Role    `gorm:"type:varchar(20);not null;index" json:"role"`
	AvatarURL *string `gorm:"type:text" json:"avatar_url,omitempty"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (u *User) IsBuyer() bool  { return u != nil && u.Role == RoleBuyer }
func (u *User) IsSeller() bool { return u != nil && u.Role == RoleSeller }

// UserMini is the trimmed user shape embedded in other resources.
type UserMini struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u *User) Mini(withEmail bool) *UserMini {
	if u == nil {
		return nil
	}
	m := &UserMini{ID: u.ID.String(), Name: u.Name}
	if withEmail {
		m.Email = u.Email
	}
	return m
}
