// Package handler содержит HTTP-обработчики API SMM-витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-storefront/internal/middleware"
	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/repository"
	"github.com/mmeshcher/smm-storefront/internal/service"
)

const defaultMaxBodyBytes = 4 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password, fullName string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Identity, error)
	ProvisionProfile(ctx context.Context, identityID, fullName string) (*model.User, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	ListLedger(ctx context.Context, userID string) ([]model.LedgerEntry, error)

	SubmitBalanceRequest(ctx context.Context, userID, amount, receipt, note string) (*model.BalanceRequest, error)
	ListMyBalanceRequests(ctx context.Context, userID string) ([]model.BalanceRequest, error)
	ListBalanceRequests(ctx context.Context, status string) ([]model.BalanceRequest, error)
	ApproveBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error)
	RejectBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error)

	PlaceOrder(ctx context.Context, userID, serviceID string, quantity int64, note string) (*model.Order, error)
	AdvanceOrder(ctx context.Context, orderID, status string) (*model.Order, error)
	ListMyOrders(ctx context.Context, userID string) ([]model.Order, error)
	ListOrders(ctx context.Context, status string) ([]model.Order, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	ToggleAdmin(ctx context.Context, userID string) (*model.User, error)
	ManualAdjust(ctx context.Context, userID, amount, direction string) (int64, error)
	Reconcile(ctx context.Context, userID string) (*model.Reconciliation, error)
	Stats(ctx context.Context) (*model.Stats, error)

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, id, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) (int, error)
	ListServices(ctx context.Context, categoryID string) ([]model.Service, error)
	CreateService(ctx context.Context, in service.ServiceInput) (*model.Service, error)
	UpdateService(ctx context.Context, id string, in service.ServiceInput) (*model.Service, error)
	DeleteService(ctx context.Context, id string) error
}

// Handler реализует HTTP-обработчики API SMM-витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	maxBodyBytes   int64
}

// Option настраивает Handler.
type Option func(*Handler)

// WithRateLimiter включает ограничение частоты запросов.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(h *Handler) { h.rateLimiter = rl }
}

// WithMaxBodyBytes ограничивает размер тела запроса.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// writeList отдаёт 204 для пустого списка, иначе JSON-массив.
func writeList[T any](w http.ResponseWriter, items []T) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError переводит ошибку бизнес-логики в HTTP-ответ.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusUnprocessableEntity, "validation", vErr.Error())
	case errors.Is(err, service.ErrProfileMissing):
		writeError(w, http.StatusPreconditionRequired, "profile_missing", "profile must be provisioned first")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
	case errors.Is(err, service.ErrOutcomeUnknown):
		h.logger.Warn("mutation outcome unknown", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "outcome_unknown", "operation timed out, check its result before retrying")
	case errors.Is(err, repository.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient_funds", "insufficient funds")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return userID, true
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
