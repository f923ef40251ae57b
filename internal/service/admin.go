package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
	"github.com/mmeshcher/smm-storefront/internal/repository"
)

// Направления ручной корректировки баланса.
const (
	DirectionAdd      = "add"
	DirectionSubtract = "subtract"
)

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// ToggleAdmin инвертирует признак администратора. Последнего администратора
// разжаловать нельзя (repository.ErrLastAdmin).
func (s *Service) ToggleAdmin(ctx context.Context, userID string) (*model.User, error) {
	if err := checkID(userID, repository.ErrUserNotFound); err != nil {
		return nil, err
	}

	var res *model.User
	err := s.mutate(ctx, "toggle_admin", func(ctx context.Context) error {
		u, err := s.repo.ToggleAdmin(ctx, userID)
		res = u
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin flag toggled", zap.String("user_id", res.ID), zap.Bool("admin", res.IsAdmin))
	return res, nil
}

// ManualAdjust зачисляет или списывает сумму через ту же атомарную операцию,
// что и остальные изменения баланса. Возвращает новый баланс.
func (s *Service) ManualAdjust(ctx context.Context, userID, amount, direction string) (int64, error) {
	cents, err := money.Parse(amount)
	if err != nil || cents <= 0 {
		return 0, invalid("amount", "must be a positive amount with at most 2 decimals")
	}

	adj := model.Adjustment{UserID: userID}
	switch direction {
	case DirectionAdd:
		adj.Delta = cents
		adj.Kind = model.EntryManualCredit
	case DirectionSubtract:
		adj.Delta = -cents
		adj.Kind = model.EntryManualDebit
	default:
		return 0, invalid("direction", "must be add or subtract")
	}
	if err := checkID(userID, repository.ErrUserNotFound); err != nil {
		return 0, err
	}

	var balance int64
	err = s.mutate(ctx, "manual_adjust", func(ctx context.Context) error {
		var err error
		balance, err = s.repo.AdjustBalance(ctx, adj)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("balance adjusted manually",
		zap.String("user_id", userID),
		zap.String("direction", direction),
		zap.String("amount", money.Format(cents)),
		zap.String("balance", money.Format(balance)),
	)
	return balance, nil
}

// Reconcile сверяет баланс пользователя с журналом и исходными документами.
func (s *Service) Reconcile(ctx context.Context, userID string) (*model.Reconciliation, error) {
	if err := checkID(userID, repository.ErrUserNotFound); err != nil {
		return nil, err
	}
	rec, err := s.repo.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rec.Consistent() {
		s.logger.Error("ledger mismatch",
			zap.String("user_id", userID),
			zap.Int64("balance", rec.Balance),
			zap.Int64("journal_sum", rec.JournalSum),
			zap.Int64("expected", rec.Expected()),
		)
	}
	return rec, nil
}

// Stats возвращает агрегированную статистику для панели администратора.
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	return s.repo.GetStats(ctx)
}
