package model

import (
	"time"

	"github.com/google/uuid"
)

// WaiterCall asks a waiter (or every waiter when RecipientWaiterID is nil) to
// come to a station or table.
type WaiterCall struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	SenderID          uuid.UUID  `json:"sender_id" gorm:"type:uuid;not null"`
	SenderRole        UserRole   `json:"sender_role" gorm:"type:varchar(20);not null"`
	RecipientWaiterID *uuid.UUID `json:"recipient_waiter_id" gorm:"type:uuid;index"`
	TableNumber       *int       `json:"table_number"`
	Message           string     `json:"message" gorm:"not null"`
	Status            string     `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (WaiterCall) TableName() string { return "waiter_calls" }
