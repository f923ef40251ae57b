package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/repository"
	"github.com/mmeshcher/smm-storefront/internal/validation"
)

// Register создаёт учётную запись и профиль пользователя. Адреса из ADMIN_EMAILS
// получают права администратора.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return nil, invalid("email", "must be a valid email address")
	}
	if !validation.IsValidPassword(password) {
		return nil, invalid("password", "must be 8 characters to 72 bytes long")
	}
	fullName = strings.TrimSpace(fullName)
	if fullName != "" && !validation.IsValidName(fullName) {
		return nil, invalid("full_name", "is too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	ident, err := s.repo.CreateIdentity(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	u, err := s.createProfile(ctx, ident, fullName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.Bool("admin", u.IsAdmin))
	return u, nil
}

// Login проверяет email и пароль и возвращает учётную запись. Наличие профиля
// не проверяется: его отсутствие обнаружат операции, которым нужен профиль.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	ident, err := s.repo.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return ident, nil
}

// ProvisionProfile явно создаёт отсутствующий профиль для существующей учётной
// записи. Повторный вызов возвращает конфликт.
func (s *Service) ProvisionProfile(ctx context.Context, identityID, fullName string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName != "" && !validation.IsValidName(fullName) {
		return nil, invalid("full_name", "is too long")
	}
	if err := checkID(identityID, repository.ErrIdentityNotFound); err != nil {
		return nil, err
	}

	ident, err := s.repo.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	u, err := s.createProfile(ctx, ident, fullName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile provisioned", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Service) createProfile(ctx context.Context, ident *model.Identity, fullName string) (*model.User, error) {
	_, admin := s.adminEmails[ident.Email]
	return s.repo.CreateUser(ctx, model.User{
		ID:       ident.ID,
		Email:    ident.Email,
		FullName: fullName,
		IsAdmin:  admin,
	})
}

// GetProfile возвращает профиль пользователя или ErrProfileMissing.
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if err := checkID(userID, ErrProfileMissing); err != nil {
		return nil, err
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, profileErr(err)
	}
	return u, nil
}

// IsAdmin сообщает, является ли пользователь администратором. Признак читается
// из хранилища на каждый запрос, поэтому снятие прав действует сразу.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// GetBalance возвращает текущий баланс пользователя в копейках.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	if err := checkID(userID, ErrProfileMissing); err != nil {
		return 0, err
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, profileErr(err)
	}
	return balance, nil
}

// ListLedger возвращает журнал изменений баланса пользователя.
func (s *Service) ListLedger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListLedgerEntries(ctx, userID)
}
