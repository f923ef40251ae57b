package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
)

const orderColumns = `id, user_id, COALESCE(service_id::text, ''), service_name, quantity, total_price,
	status, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ServiceID, &o.ServiceName, &o.Quantity, &o.TotalPrice,
		&status, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// PlaceOrder списывает стоимость заказа и создаёт заказ в одной транзакции.
// Блокировки берутся в порядке: пользователь, затем услуга.
func (r *PostgresRepository) PlaceOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	var res *model.Order
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var balance int64
		err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, in.UserID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		var (
			name  string
			price int64
		)
		err = tx.QueryRow(ctx, `SELECT name, price FROM services WHERE id = $1 FOR SHARE`, in.ServiceID).Scan(&name, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrServiceNotFound
			}
			return fmt.Errorf("lock service: %w", err)
		}

		total, err := money.OrderTotal(price, in.Quantity)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTotalOutOfRange, err)
		}
		if total <= 0 {
			return ErrZeroTotal
		}
		if balance < total {
			return ErrInsufficientFunds
		}

		o := model.Order{
			ID:          uuid.NewString(),
			UserID:      in.UserID,
			ServiceID:   in.ServiceID,
			ServiceName: name,
			Quantity:    in.Quantity,
			TotalPrice:  total,
			Status:      model.OrderStatusPending,
			Note:        in.Note,
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO orders (id, user_id, service_id, service_name, quantity, total_price, status, note)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING created_at, updated_at`,
			o.ID, o.UserID, o.ServiceID, o.ServiceName, o.Quantity, o.TotalPrice, string(o.Status), o.Note,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		_, err = adjustTx(ctx, tx, model.Adjustment{
			UserID:      o.UserID,
			Delta:       -total,
			Kind:        model.EntryOrderDebit,
			ReferenceID: o.ID,
		})
		if err != nil {
			return err
		}

		res = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// ListOrders возвращает заказы по фильтру. По умолчанию новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	order := "DESC"
	if f.OldestFirst {
		order = "ASC"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE ($1 = '' OR user_id::text = $1)
		   AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		 ORDER BY created_at `+order+`
		 LIMIT $3`,
		f.UserID, f.statusStrings(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// AdvanceOrder переводит заказ в статус next. Отмена возвращает полную стоимость
// заказа на баланс в той же транзакции.
func (r *PostgresRepository) AdvanceOrder(ctx context.Context, id string, next model.OrderStatus) (*model.Order, error) {
	var res *model.Order
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if !o.Status.CanAdvance(next) {
			return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidState, id, o.Status, next)
		}

		err = tx.QueryRow(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			id, string(next),
		).Scan(&o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		o.Status = next

		if next == model.OrderStatusCancelled {
			_, err = adjustTx(ctx, tx, model.Adjustment{
				UserID:      o.UserID,
				Delta:       o.TotalPrice,
				Kind:        model.EntryOrderRefund,
				ReferenceID: o.ID,
			})
			if err != nil {
				return err
			}
		}

		res = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
