package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
	"github.com/mmeshcher/smm-storefront/internal/repository"
	"github.com/mmeshcher/smm-storefront/internal/validation"
)

// SubmitBalanceRequest создаёт заявку на пополнение в статусе pending.
// Баланс не меняется до одобрения администратором.
func (s *Service) SubmitBalanceRequest(ctx context.Context, userID, amount, receipt, note string) (*model.BalanceRequest, error) {
	cents, err := money.Parse(amount)
	if err != nil || cents <= 0 {
		return nil, invalid("amount", "must be a positive amount with at most 2 decimals")
	}
	receipt = strings.TrimSpace(receipt)
	if !validation.IsValidReceipt(receipt, s.maxReceiptBytes) {
		return nil, invalid("receipt", "must be an http(s) URL or data URI within the size limit")
	}
	if utf8.RuneCountInString(note) > maxNoteLen {
		return nil, invalid("note", "is too long")
	}
	if err := checkID(userID, ErrProfileMissing); err != nil {
		return nil, err
	}

	var res *model.BalanceRequest
	err = s.mutate(ctx, "submit_balance_request", func(ctx context.Context) error {
		br, err := s.repo.CreateBalanceRequest(ctx, model.BalanceRequest{
			UserID:  userID,
			Amount:  cents,
			Receipt: receipt,
			Note:    note,
		})
		if err != nil {
			return profileErr(err)
		}
		res = br
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance request submitted",
		zap.String("request_id", res.ID),
		zap.String("user_id", userID),
		zap.String("amount", money.Format(cents)),
	)
	return res, nil
}

// ListMyBalanceRequests возвращает заявки пользователя, новые первыми.
func (s *Service) ListMyBalanceRequests(ctx context.Context, userID string) ([]model.BalanceRequest, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListBalanceRequests(ctx, repository.BalanceRequestFilter{UserID: userID})
}

// ListBalanceRequests возвращает заявки всех пользователей с необязательным фильтром по статусу.
func (s *Service) ListBalanceRequests(ctx context.Context, status string) ([]model.BalanceRequest, error) {
	st := model.BalanceRequestStatus(status)
	if status != "" && !st.Valid() {
		return nil, invalid("status", "unknown balance request status")
	}
	return s.repo.ListBalanceRequests(ctx, repository.BalanceRequestFilter{Status: st})
}

// ApproveBalanceRequest одобряет заявку и зачисляет сумму в одной транзакции.
// Повторное одобрение возвращает ErrInvalidState.
func (s *Service) ApproveBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error) {
	if err := checkID(id, repository.ErrBalanceRequestNotFound); err != nil {
		return nil, err
	}

	var res *model.BalanceRequest
	err := s.mutate(ctx, "approve_balance_request", func(ctx context.Context) error {
		br, err := s.repo.ApproveBalanceRequest(ctx, id)
		res = br
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance request approved",
		zap.String("request_id", res.ID),
		zap.String("user_id", res.UserID),
		zap.String("amount", money.Format(res.Amount)),
	)
	return res, nil
}

// RejectBalanceRequest отклоняет заявку без изменения баланса.
func (s *Service) RejectBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error) {
	if err := checkID(id, repository.ErrBalanceRequestNotFound); err != nil {
		return nil, err
	}

	var res *model.BalanceRequest
	err := s.mutate(ctx, "reject_balance_request", func(ctx context.Context) error {
		br, err := s.repo.RejectBalanceRequest(ctx, id)
		res = br
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance request rejected", zap.String("request_id", res.ID))
	return res, nil
}
