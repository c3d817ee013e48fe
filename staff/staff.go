// Package staff administers staff profiles, waiter calls and presence.
package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"restobar/auth"
	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
)

const minPasswordLength = 6

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrWeakPassword   = fmt.Errorf("password must have at least %d characters", minPasswordLength)
	ErrSelfDelete     = errors.New("you cannot delete your own account")
	ErrProfileInUse   = gateway.ErrProfileInUse
	ErrDuplicate      = gateway.ErrDuplicate
	ErrNotFound       = gateway.ErrNotFound
)

type Store interface {
	ListProfiles(ctx context.Context, q gateway.ProfileQuery) ([]model.Profile, error)
	ProfileByID(ctx context.Context, id uuid.UUID) (model.Profile, error)
	CreateProfile(ctx context.Context, p *model.Profile) error
	SaveProfile(ctx context.Context, p *model.Profile) error
	AdminResetPassword(ctx context.Context, id uuid.UUID, hash string) error
	DeleteUserCompletely(ctx context.Context, id uuid.UUID) error
	CreateWaiterCall(ctx context.Context, call *model.WaiterCall) error
	WaiterCallsFor(ctx context.Context, waiterID uuid.UUID, limit int) ([]model.WaiterCall, error)
}

type ProfileInput struct {
	DocumentID string         `json:"document_id"`
	FullName   string         `json:"full_name"`
	Email      string         `json:"email"`
	Role       model.UserRole `json:"role"`
	Active     *bool          `json:"active"`
	Password   string         `json:"password"`
}

func (in ProfileInput) validate(creating bool) error {
	if strings.TrimSpace(in.DocumentID) == "" || strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: document id and full name are required", ErrInvalidProfile)
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, in.Role)
	}
	if email := strings.TrimSpace(in.Email); email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email", ErrInvalidProfile)
	}
	if creating || in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return ErrWeakPassword
		}
	}
	return nil
}

func (in ProfileInput) apply(p *model.Profile) {
	p.DocumentID = auth.NormalizeIdentifier(in.DocumentID)
	p.FullName = strings.TrimSpace(in.FullName)
	p.Role = in.Role
	if email := strings.TrimSpace(in.Email); email != "" {
		e := auth.NormalizeIdentifier(email)
		p.Email = &e
	} else {
		p.Email = nil
	}
	if in.Active != nil {
		p.Active = *in.Active
	} else if p.ID == uuid.Nil {
		p.Active = true
	}
}

type Service struct {
	store    Store
	resolver *auth.Resolver
	log      *logger.Logger
	cost     int
}

// NewService builds the staff service. resolver may be nil; when set, edited
// profiles are pushed into it so that sessions see the change at once.
func NewService(store Store, resolver *auth.Resolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, resolver: resolver, log: log, cost: bcrypt.DefaultCost}
}

func (s *Service) List(ctx context.Context, q gateway.ProfileQuery) ([]model.Profile, error) {
	return s.store.ListProfiles(ctx, q)
}

func (s *Service) Create(ctx context.Context, in ProfileInput) (model.Profile, error) {
	if err := in.validate(true); err != nil {
		return model.Profile{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}
	var p model.Profile
	in.apply(&p)
	p.PasswordHash = string(hash)
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return p, err
	}
	s.log.Info("", "profile_created", fmt.Sprintf("profile %s created with role %s", p.ID, p.Role))
	return p, nil
}

// Update edits a profile. A non-empty password is rehashed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in ProfileInput) (model.Profile, error) {
	if err := in.validate(false); err != nil {
		return model.Profile{}, err
	}
	p, err := s.store.ProfileByID(ctx, id)
	if err != nil {
		return p, err
	}
	in.apply(&p)
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return p, fmt.Errorf("failed to hash password: %w", err)
		}
		p.PasswordHash = string(hash)
	}
	if err := s.store.SaveProfile(ctx, &p); err != nil {
		return p, err
	}
	if s.resolver != nil {
		s.resolver.Put(p)
	}
	return p, nil
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.AdminResetPassword(ctx, id, string(hash)); err != nil {
		return err
	}
	if s.resolver != nil {
		s.resolver.Forget(id)
	}
	s.log.Info("", "password_reset", fmt.Sprintf("password reset for %s", id))
	return nil
}

// Delete removes a user and everything that only belongs to them. Admins
// cannot delete themselves.
func (s *Service) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID == id {
		return ErrSelfDelete
	}
	if err := s.store.DeleteUserCompletely(ctx, id); err != nil {
		return err
	}
	if s.resolver != nil {
		s.resolver.Forget(id)
	}
	s.log.Warn("", "profile_deleted", fmt.Sprintf("profile %s deleted by %s", id, callerID))
	return nil
}
