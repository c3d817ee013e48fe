package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"restobar/model"
)

const callHistoryLimit = 20

var ErrInvalidCall = errors.New("invalid waiter call")

type CallInput struct {
	RecipientID *uuid.UUID `json:"recipient_waiter_id"`
	TableNumber *int       `json:"table_number"`
	Message     string     `json:"message"`
}

// DefaultCallMessage is used when the sender leaves the message empty.
func DefaultCallMessage(table *int) string {
	if table != nil {
		return fmt.Sprintf("Attention required at table %d", *table)
	}
	return "Presence requested"
}

// CallIsFor reports whether a waiter should be alerted by the call.
func CallIsFor(call model.WaiterCall, waiterID uuid.UUID) bool {
	return call.RecipientWaiterID == nil || *call.RecipientWaiterID == waiterID
}

// CallWaiter stores a call from any staff member to one waiter, or to all
// waiters when no recipient is given.
func (s *Service) CallWaiter(ctx context.Context, senderID uuid.UUID, role model.UserRole, in CallInput) (model.WaiterCall, error) {
	if in.TableNumber != nil && *in.TableNumber <= 0 {
		return model.WaiterCall{}, fmt.Errorf("%w: table number must be positive", ErrInvalidCall)
	}
	if in.RecipientID != nil {
		p, err := s.store.ProfileByID(ctx, *in.RecipientID)
		if err != nil {
			return model.WaiterCall{}, err
		}
		if p.Role != model.RoleWaiter || !p.Active {
			return model.WaiterCall{}, fmt.Errorf("%w: recipient is not an active waiter", ErrInvalidCall)
		}
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		msg = DefaultCallMessage(in.TableNumber)
	}
	call := model.WaiterCall{
		SenderID:          senderID,
		SenderRole:        role,
		RecipientWaiterID: in.RecipientID,
		TableNumber:       in.TableNumber,
		Message:           msg,
		Status:            "pending",
	}
	if err := s.store.CreateWaiterCall(ctx, &call); err != nil {
		return call, err
	}
	return call, nil
}

func (s *Service) CallsFor(ctx context.Context, waiterID uuid.UUID) ([]model.WaiterCall, error) {
	return s.store.WaiterCallsFor(ctx, waiterID, callHistoryLimit)
}
