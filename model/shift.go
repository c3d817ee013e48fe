package model

import (
	"time"

	"github.com/google/uuid"
)

type WorkSessionStatus string

const (
	ShiftActive WorkSessionStatus = "active"
	ShiftEnded  WorkSessionStatus = "ended"
)

type WorkSession struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	UserID    uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	User      *Profile          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role      UserRole          `json:"role" gorm:"type:varchar(20);not null"`
	StartedAt time.Time         `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time        `json:"ended_at"`
	Status    WorkSessionStatus `json:"status" gorm:"type:varchar(20);not null;index"`
}

func (WorkSession) TableName() string { return "work_sessions" }

func (w WorkSession) Duration(now time.Time) time.Duration {
	end := now
	if w.EndedAt != nil {
		end = *w.EndedAt
	}
	return end.Sub(w.StartedAt)
}
