package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
	RoleWaiter  UserRole = "waiter"
	RoleKitchen UserRole = "kitchen"
	RoleBar     UserRole = "bar"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen, RoleBar:
		return true
	}
	return false
}

// Profile is the stored identity of a staff member. CurrentSessionID holds the
// session token of the only login allowed to act for this profile.
type Profile struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DocumentID       string    `json:"document_id" gorm:"uniqueIndex;not null"`
	FullName         string    `json:"full_name" gorm:"not null"`
	Email            *string   `json:"email" gorm:"uniqueIndex"`
	Role             UserRole  `json:"role" gorm:"type:varchar(20);not null"`
	Active           bool      `json:"active" gorm:"not null"`
	CurrentSessionID *string   `json:"-"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FirstName is used on production cards where space is short.
func (p Profile) FirstName() string {
	for i, r := range p.FullName {
		if r == ' ' {
			return p.FullName[:i]
		}
	}
	return p.FullName
}
