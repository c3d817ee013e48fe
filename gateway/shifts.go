package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restobar/model"
)

func (g *Gateway) ActiveWorkSession(ctx context.Context, userID uuid.UUID) (model.WorkSession, error) {
	var w model.WorkSession
	err := g.conn(ctx).Where("user_id = ? AND status = ?", userID, model.ShiftActive).
		Order("started_at DESC").First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return w, ErrNoActiveShift
	}
	return w, translate(err)
}

func (g *Gateway) StartWorkSession(ctx context.Context, userID uuid.UUID, role model.UserRole) (model.WorkSession, error) {
	var w model.WorkSession
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		var p model.Profile
		if err := forUpdate(tx).First(&p, "id = ?", userID).Error; err != nil {
			return err
		}
		var active int64
		if err := tx.Model(&model.WorkSession{}).
			Where("user_id = ? AND status = ?", userID, model.ShiftActive).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrShiftActive
		}
		w = model.WorkSession{UserID: userID, Role: role, StartedAt: g.now(), Status: model.ShiftActive}
		return tx.Create(&w).Error
	})
	return w, err
}

func (g *Gateway) EndWorkSession(ctx context.Context, userID uuid.UUID) (model.WorkSession, error) {
	var w model.WorkSession
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("user_id = ? AND status = ?", userID, model.ShiftActive).
			Order("started_at DESC").First(&w).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveShift
		}
		if err != nil {
			return err
		}
		ended := g.now()
		return tx.Model(&w).Updates(map[string]interface{}{
			"status":   model.ShiftEnded,
			"ended_at": ended,
		}).Error
	})
	return w, err
}

type WorkSessionQuery struct {
	UserID     *uuid.UUID
	ActiveOnly bool
	From, To   time.Time
	Limit      int
}

func (g *Gateway) ListWorkSessions(ctx context.Context, q WorkSessionQuery) ([]model.WorkSession, error) {
	var sessions []model.WorkSession
	db := g.conn(ctx).Preload("User").Order("started_at DESC")
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.ActiveOnly {
		db = db.Where("status = ?", model.ShiftActive)
	}
	if !q.From.IsZero() {
		db = db.Where("started_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("started_at < ?", q.To)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	err := db.Find(&sessions).Error
	return sessions, translate(err)
}
