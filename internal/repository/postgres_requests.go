package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/smm-storefront/internal/model"
)

const balanceRequestColumns = `id, user_id, amount, receipt, note, status, created_at, updated_at`

func scanBalanceRequest(row pgx.Row) (*model.BalanceRequest, error) {
	var (
		br     model.BalanceRequest
		status string
	)
	err := row.Scan(&br.ID, &br.UserID, &br.Amount, &br.Receipt, &br.Note, &status, &br.CreatedAt, &br.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBalanceRequestNotFound
		}
		return nil, fmt.Errorf("scan balance request: %w", err)
	}
	br.Status = model.BalanceRequestStatus(status)
	return &br, nil
}

// CreateBalanceRequest сохраняет новую заявку на пополнение в статусе pending.
func (r *PostgresRepository) CreateBalanceRequest(ctx context.Context, br model.BalanceRequest) (*model.BalanceRequest, error) {
	br.ID = uuid.NewString()
	br.Status = model.BalanceRequestPending

	err := r.pool.QueryRow(ctx,
		`INSERT INTO balance_requests (id, user_id, amount, receipt, note, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		br.ID, br.UserID, br.Amount, br.Receipt, br.Note, string(br.Status),
	).Scan(&br.CreatedAt, &br.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.ForeignKeyViolation {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("insert balance request: %w", err)
	}
	return &br, nil
}

// GetBalanceRequest возвращает заявку по идентификатору.
func (r *PostgresRepository) GetBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error) {
	return scanBalanceRequest(r.pool.QueryRow(ctx,
		`SELECT `+balanceRequestColumns+` FROM balance_requests WHERE id = $1`, id))
}

// ListBalanceRequests возвращает заявки, новые первыми.
func (r *PostgresRepository) ListBalanceRequests(ctx context.Context, f BalanceRequestFilter) ([]model.BalanceRequest, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+balanceRequestColumns+`
		 FROM balance_requests
		 WHERE ($1 = '' OR user_id::text = $1)
		   AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		f.UserID, string(f.Status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select balance requests: %w", err)
	}
	defer rows.Close()

	var res []model.BalanceRequest
	for rows.Next() {
		br, err := scanBalanceRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *br)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// ApproveBalanceRequest переводит заявку из pending в approved и зачисляет сумму
// на баланс владельца в одной транзакции.
func (r *PostgresRepository) ApproveBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error) {
	var res *model.BalanceRequest
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		br, err := r.transitionRequest(ctx, tx, id, model.BalanceRequestApproved)
		if err != nil {
			return err
		}

		_, err = adjustTx(ctx, tx, model.Adjustment{
			UserID:      br.UserID,
			Delta:       br.Amount,
			Kind:        model.EntryTopUp,
			ReferenceID: br.ID,
		})
		if err != nil {
			return err
		}

		res = br
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RejectBalanceRequest переводит заявку из pending в rejected без изменения баланса.
func (r *PostgresRepository) RejectBalanceRequest(ctx context.Context, id string) (*model.BalanceRequest, error) {
	var res *model.BalanceRequest
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		br, err := r.transitionRequest(ctx, tx, id, model.BalanceRequestRejected)
		if err != nil {
			return err
		}
		res = br
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PostgresRepository) transitionRequest(ctx context.Context, tx pgx.Tx, id string, next model.BalanceRequestStatus) (*model.BalanceRequest, error) {
	br, err := scanBalanceRequest(tx.QueryRow(ctx,
		`SELECT `+balanceRequestColumns+` FROM balance_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	if br.Status != model.BalanceRequestPending {
		return nil, fmt.Errorf("%w: balance request %s is %s", ErrInvalidState, id, br.Status)
	}

	err = tx.QueryRow(ctx,
		`UPDATE balance_requests SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		id, string(next),
	).Scan(&br.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update balance request: %w", err)
	}
	br.Status = next
	return br, nil
}
