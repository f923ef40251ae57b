// Package service реализует бизнес-логику SMM-витрины: заявки на пополнение,
// заказы, администрирование и каталог.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/smm-storefront/internal/metrics"
	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/provider"
	"github.com/mmeshcher/smm-storefront/internal/repository"
)

const (
	defaultMutationTimeout = 5 * time.Second
	defaultPollInterval    = 10 * time.Second
	defaultMaxReceiptBytes = 2 << 20
	maxNoteLen             = 1000
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateIdentity(ctx context.Context, email string, passwordHash []byte) (*model.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error)
	GetIdentity(ctx context.Context, id string) (*model.Identity, error)

	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ToggleAdmin(ctx context.Context, id string) (*model.User, error)
	AdjustBalance(ctx context.Context, adj model.Adjustment) (int64, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	ListLedgerEntries(ctx context.Context, userID string) ([]model.LedgerEntry, error)
	Reconcile(ctx context.Context, userID string) (*model.Reconciliation, error)
	GetStats(ctx context.Context) (*model.Stats, error)

	CreateBalanceRequest(ctx context.Context, br model.BalanceRequest) (*model.BalanceRequest, error)
	GetBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error)
	ListBalanceRequests(ctx context.Context, f repository.BalanceRequestFilter) ([]model.BalanceRequest, error)
	ApproveBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error)
	RejectBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error)

	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, id, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id string) (int, error)
	CreateService(ctx context.Context, s model.Service) (*model.Service, error)
	UpdateService(ctx context.Context, s model.Service) (*model.Service, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
	ListServices(ctx context.Context, categoryID string) ([]model.Service, error)
	DeleteService(ctx context.Context, id string) error

	PlaceOrder(ctx context.Context, in model.NewOrder) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error)
	AdvanceOrder(ctx context.Context, id string, next model.OrderStatus) (*model.Order, error)
}

// Options задаёт необязательные параметры сервиса.
type Options struct {
	Provider        *provider.Client
	Logger          *zap.Logger
	MutationTimeout time.Duration
	PollInterval    time.Duration
	AdminEmails     []string
	MaxReceiptBytes int
	BcryptCost      int
}

// Service содержит бизнес-логику SMM-витрины.
type Service struct {
	repo            Repository
	provider        *provider.Client
	logger          *zap.Logger
	mutationTimeout time.Duration
	pollInterval    time.Duration
	adminEmails     map[string]struct{}
	maxReceiptBytes int
	bcryptCost      int
}

// NewService создаёт сервис поверх репозитория. Нулевые поля opts заменяются
// значениями по умолчанию.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:            repo,
		provider:        opts.Provider,
		logger:          opts.Logger,
		mutationTimeout: opts.MutationTimeout,
		pollInterval:    opts.PollInterval,
		adminEmails:     make(map[string]struct{}, len(opts.AdminEmails)),
		maxReceiptBytes: opts.MaxReceiptBytes,
		bcryptCost:      opts.BcryptCost,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.mutationTimeout <= 0 {
		s.mutationTimeout = defaultMutationTimeout
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.maxReceiptBytes <= 0 {
		s.maxReceiptBytes = defaultMaxReceiptBytes
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	for _, e := range opts.AdminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			s.adminEmails[e] = struct{}{}
		}
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// mutate выполняет изменение данных с ограничением MUTATION_TIMEOUT. Если время
// истекло или запрос отменён, результат фиксации неизвестен и возвращается
// ErrOutcomeUnknown.
func (s *Service) mutate(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordLedgerOperation(op, "ok", elapsed)
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		metrics.RecordLedgerOperation(op, "outcome_unknown", elapsed)
		s.logger.Warn("mutation outcome unknown",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrOutcomeUnknown, op, err)
	case isDomainError(err):
		metrics.RecordLedgerOperation(op, "rejected", elapsed)
		return err
	default:
		metrics.RecordLedgerOperation(op, "error", elapsed)
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, repository.ErrInvalidState) ||
		errors.Is(err, repository.ErrInsufficientFunds) ||
		errors.Is(err, repository.ErrZeroTotal) ||
		errors.Is(err, repository.ErrTotalOutOfRange) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrProfileMissing)
}

// checkID отсекает идентификаторы, которые не являются UUID: такой записи
// заведомо нет.
func checkID(id string, notFound error) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	return nil
}

func profileErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrProfileMissing
	}
	return err
}
