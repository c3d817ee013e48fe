package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restobar/model"
)

func (g *Gateway) ProfileByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var p model.Profile
	err := g.conn(ctx).First(&p, "id = ?", id).Error
	return p, translate(err)
}

// ProfileByLogin finds a profile by e-mail when the identifier contains "@"
// and by document id otherwise. The identifier must already be normalized.
func (g *Gateway) ProfileByLogin(ctx context.Context, identifier string) (model.Profile, error) {
	var p model.Profile
	q := g.conn(ctx)
	if strings.Contains(identifier, "@") {
		q = q.Where("LOWER(email) = ?", strings.ToLower(identifier))
	} else {
		q = q.Where("document_id = ?", identifier)
	}
	err := q.First(&p).Error
	return p, translate(err)
}

// SetSessionID records the only session allowed to act for the profile. A
// nil id signs every device out.
func (g *Gateway) SetSessionID(ctx context.Context, id uuid.UUID, sessionID *string) error {
	var p model.Profile
	if err := g.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return translate(err)
	}
	return translate(g.conn(ctx).Model(&p).Update("current_session_id", sessionID).Error)
}

type ProfileQuery struct {
	Role       model.UserRole
	ActiveOnly bool
}

func (g *Gateway) ListProfiles(ctx context.Context, q ProfileQuery) ([]model.Profile, error) {
	var profiles []model.Profile
	db := g.conn(ctx).Order("full_name")
	if q.Role != "" {
		db = db.Where("role = ?", q.Role)
	}
	if q.ActiveOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Find(&profiles).Error
	return profiles, translate(err)
}

func (g *Gateway) ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var profiles []model.Profile
	if err := g.conn(ctx).Select("id", "full_name").Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, translate(err)
	}
	for _, p := range profiles {
		names[p.ID] = p.FullName
	}
	return names, nil
}

func (g *Gateway) CreateProfile(ctx context.Context, p *model.Profile) error {
	return translate(g.conn(ctx).Create(p).Error)
}

func (g *Gateway) SaveProfile(ctx context.Context, p *model.Profile) error {
	return translate(g.conn(ctx).Save(p).Error)
}

// AdminResetPassword replaces the password hash and ends the current session.
func (g *Gateway) AdminResetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return g.transaction(ctx, func(tx *gorm.DB) error {
		var p model.Profile
		if err := forUpdate(tx).First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&p).Updates(map[string]interface{}{
			"password_hash":      hash,
			"current_session_id": nil,
		}).Error
	})
}

// DeleteUserCompletely removes a profile with its shifts and waiter calls.
// Profiles that own cash sessions stay, so that till history keeps its
// cashier; they can only be deactivated.
func (g *Gateway) DeleteUserCompletely(ctx context.Context, id uuid.UUID) error {
	return g.transaction(ctx, func(tx *gorm.DB) error {
		var p model.Profile
		if err := forUpdate(tx).First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		var cash int64
		if err := tx.Model(&model.CashSession{}).Where("cashier_id = ?", id).Count(&cash).Error; err != nil {
			return err
		}
		if cash > 0 {
			return ErrProfileInUse
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.WorkSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ? OR recipient_waiter_id = ?", id, id).Delete(&model.WaiterCall{}).Error; err != nil {
			return err
		}
		for _, col := range []string{"waiter_id", "cashier_id", "cancelled_by"} {
			if err := tx.Model(&model.Order{}).Where(col+" = ?", id).Update(col, nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&p).Error
	})
}
