package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
)

type Store interface {
	PaidOrdersBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	ListCashSessions(ctx context.Context, q gateway.CashSessionQuery) ([]model.CashSession, error)
	ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) Summary(ctx context.Context, period Period, start, end string) (Summary, error) {
	r, err := ResolveRange(period, start, end, s.now())
	if err != nil {
		return Summary{}, err
	}
	orders, err := s.store.PaidOrdersBetween(ctx, r.From, r.To)
	if err != nil {
		return Summary{}, fmt.Errorf("load orders: %w", err)
	}
	sessions, err := s.store.ListCashSessions(ctx, gateway.CashSessionQuery{From: r.From, To: r.To})
	if err != nil {
		return Summary{}, fmt.Errorf("load cash sessions: %w", err)
	}
	names, err := s.waiterNames(ctx, orders)
	if err != nil {
		return Summary{}, err
	}
	return Build(r, orders, sessions, names), nil
}

// Today is the daily sales sheet for the current day.
func (s *Service) Today(ctx context.Context) (Daily, error) {
	r, _ := ResolveRange(PeriodToday, "", "", s.now())
	orders, err := s.store.PaidOrdersBetween(ctx, r.From, r.To)
	if err != nil {
		return Daily{}, fmt.Errorf("load orders: %w", err)
	}
	names, err := s.waiterNames(ctx, orders)
	if err != nil {
		return Daily{}, err
	}
	return BuildDaily(r, orders, names), nil
}

// Export builds the summary for the range and renders it as a workbook. The
// returned name is suitable for a download.
func (s *Service) Export(ctx context.Context, period Period, start, end string) (string, []byte, error) {
	sum, err := s.Summary(ctx, period, start, end)
	if err != nil {
		return "", nil, err
	}
	data, err := Export(sum)
	if err != nil {
		s.log.Error("", "report_export", "failed to render workbook", err)
		return "", nil, err
	}
	return fmt.Sprintf("report_%s.xlsx", sum.Range.Label()), data, nil
}

func (s *Service) waiterNames(ctx context.Context, orders []model.Order) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, o := range orders {
		if o.WaiterID != nil && !seen[*o.WaiterID] {
			seen[*o.WaiterID] = true
			ids = append(ids, *o.WaiterID)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	names, err := s.store.ProfileNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load waiter names: %w", err)
	}
	return names, nil
}
