package service

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-storefront/internal/metrics"
	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
	"github.com/mmeshcher/smm-storefront/internal/provider"
	"github.com/mmeshcher/smm-storefront/internal/repository"
)

const (
	providerBatchSize = 100
	// MaxOrderQuantity ограничивает количество единиц в одном заказе.
	MaxOrderQuantity = 100_000_000
)

// PlaceOrder проверяет баланс, списывает стоимость и создаёт заказ одной
// атомарной операцией хранилища. Цена услуги читается внутри той же операции.
func (s *Service) PlaceOrder(ctx context.Context, userID, serviceID string, quantity int64, note string) (*model.Order, error) {
	if quantity <= 0 {
		return nil, invalid("quantity", "must be positive")
	}
	if quantity > MaxOrderQuantity {
		return nil, invalid("quantity", "exceeds the per-order maximum")
	}
	if utf8.RuneCountInString(note) > maxNoteLen {
		return nil, invalid("note", "is too long")
	}
	if err := checkID(userID, ErrProfileMissing); err != nil {
		return nil, err
	}
	if err := checkID(serviceID, repository.ErrServiceNotFound); err != nil {
		return nil, err
	}

	var res *model.Order
	err := s.mutate(ctx, "place_order", func(ctx context.Context) error {
		o, err := s.repo.PlaceOrder(ctx, model.NewOrder{
			UserID:    userID,
			ServiceID: serviceID,
			Quantity:  quantity,
			Note:      note,
		})
		if err != nil {
			if errors.Is(err, repository.ErrZeroTotal) {
				return invalid("quantity", "order total rounds to zero")
			}
			if errors.Is(err, repository.ErrTotalOutOfRange) {
				return invalid("quantity", "order total is out of range")
			}
			return profileErr(err)
		}
		res = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", res.ID),
		zap.String("user_id", userID),
		zap.String("total", money.Format(res.TotalPrice)),
	)
	return res, nil
}

// AdvanceOrder переводит заказ в новый статус. Допустимы pending→processing,
// processing→completed и отмена из pending или processing. Отмена возвращает
// стоимость заказа на баланс.
func (s *Service) AdvanceOrder(ctx context.Context, orderID, status string) (*model.Order, error) {
	next := model.OrderStatus(status)
	if !next.Valid() {
		return nil, invalid("status", "unknown order status")
	}
	if err := checkID(orderID, repository.ErrOrderNotFound); err != nil {
		return nil, err
	}

	var res *model.Order
	err := s.mutate(ctx, "advance_order", func(ctx context.Context) error {
		o, err := s.repo.AdvanceOrder(ctx, orderID, next)
		res = o
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order advanced", zap.String("order_id", res.ID), zap.String("status", string(res.Status)))
	return res, nil
}

// ListMyOrders возвращает заказы пользователя, новые первыми.
func (s *Service) ListMyOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, repository.OrderFilter{UserID: userID})
}

// ListOrders возвращает заказы всех пользователей с необязательным фильтром по статусу.
func (s *Service) ListOrders(ctx context.Context, status string) ([]model.Order, error) {
	var f repository.OrderFilter
	if status != "" {
		st := model.OrderStatus(status)
		if !st.Valid() {
			return nil, invalid("status", "unknown order status")
		}
		f.Statuses = []model.OrderStatus{st}
	}
	return s.repo.ListOrders(ctx, f)
}

// StartProviderSync запускает фоновый опрос поставщика о статусах активных
// заказов. Без настроенного клиента ничего не делает.
func (s *Service) StartProviderSync(ctx context.Context) {
	if !s.provider.Configured() {
		return
	}

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncProviderOrders(ctx)
			}
		}
	}()
}

func (s *Service) syncProviderOrders(ctx context.Context) {
	orders, err := s.repo.ListOrders(ctx, repository.OrderFilter{
		Statuses:    []model.OrderStatus{model.OrderStatusPending, model.OrderStatusProcessing},
		OldestFirst: true,
		Limit:       providerBatchSize,
	})
	if err != nil {
		s.logger.Error("list orders for provider sync", zap.Error(err))
		return
	}

	for _, o := range orders {
		state, code, retryAfter, err := s.provider.GetOrderState(ctx, o.ID)
		if err != nil {
			metrics.RecordProviderPoll("error")
			s.logger.Warn("provider poll failed", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}

		if code == http.StatusTooManyRequests {
			metrics.RecordProviderPoll("throttled")
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if state == nil {
			metrics.RecordProviderPoll("empty")
			continue
		}
		metrics.RecordProviderPoll("ok")

		for _, next := range providerSteps(o.Status, state.Status) {
			if _, err := s.AdvanceOrder(ctx, o.ID, string(next)); err != nil {
				s.logger.Warn("apply provider status",
					zap.String("order_id", o.ID),
					zap.String("provider_status", state.Status),
					zap.Error(err),
				)
				break
			}
		}
	}
}

// providerSteps возвращает цепочку допустимых переходов, приводящую заказ
// к статусу поставщика. Переход pending→completed выполняется через processing.
func providerSteps(current model.OrderStatus, upstream string) []model.OrderStatus {
	var target model.OrderStatus
	switch upstream {
	case provider.StatusInProgress:
		target = model.OrderStatusProcessing
	case provider.StatusCompleted:
		target = model.OrderStatusCompleted
	case provider.StatusCanceled:
		target = model.OrderStatusCancelled
	default:
		return nil
	}

	if current == target {
		return nil
	}
	if current.CanAdvance(target) {
		return []model.OrderStatus{target}
	}
	if current == model.OrderStatusPending && target == model.OrderStatusCompleted {
		return []model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusCompleted}
	}
	return nil
}
