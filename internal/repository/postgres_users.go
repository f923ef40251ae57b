package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
)

// CreateIdentity создаёт учётную запись для входа.
func (r *PostgresRepository) CreateIdentity(ctx context.Context, email string, passwordHash []byte) (*model.Identity, error) {
	ident := model.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO identities (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		ident.ID, ident.Email, ident.PasswordHash,
	).Scan(&ident.CreatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return &ident, nil
}

// GetIdentityByEmail возвращает учётную запись по email.
func (r *PostgresRepository) GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return r.getIdentity(ctx, `SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`, email)
}

// GetIdentity возвращает учётную запись по идентификатору.
func (r *PostgresRepository) GetIdentity(ctx context.Context, id string) (*model.Identity, error) {
	return r.getIdentity(ctx, `SELECT id, email, password_hash, created_at FROM identities WHERE id = $1`, id)
}

func (r *PostgresRepository) getIdentity(ctx context.Context, query string, arg string) (*model.Identity, error) {
	var ident model.Identity
	err := r.pool.QueryRow(ctx, query, arg).Scan(&ident.ID, &ident.Email, &ident.PasswordHash, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &ident, nil
}

// CreateUser создаёт профиль пользователя в леджере с нулевым балансом.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	u.Balance = 0
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, full_name, is_admin) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Email, u.FullName, u.IsAdmin,
	).Scan(&u.CreatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgerrcode.UniqueViolation:
			return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		case pgerrcode.ForeignKeyViolation:
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

const userColumns = `id, email, full_name, balance, is_admin, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Balance, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetUser возвращает профиль пользователя.
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// ListUsers возвращает всех пользователей, новые первыми.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

// ToggleAdmin инвертирует признак администратора. Снять права с последнего
// администратора нельзя: строки всех администраторов блокируются на время проверки.
func (r *PostgresRepository) ToggleAdmin(ctx context.Context, id string) (*model.User, error) {
	var res *model.User
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if u.IsAdmin {
			rows, err := tx.Query(ctx, `SELECT id FROM users WHERE is_admin FOR UPDATE`)
			if err != nil {
				return fmt.Errorf("lock admins: %w", err)
			}
			admins := 0
			for rows.Next() {
				admins++
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return fmt.Errorf("rows error: %w", err)
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		u.IsAdmin = !u.IsAdmin
		if _, err := tx.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE id = $1`, id, u.IsAdmin); err != nil {
			return fmt.Errorf("update admin flag: %w", err)
		}
		res = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AdjustBalance атомарно изменяет баланс на adj.Delta и записывает проводку в журнал.
// Строка пользователя блокируется, поэтому параллельные изменения не теряются.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, adj model.Adjustment) (int64, error) {
	var balance int64
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		balance, err = adjustTx(ctx, tx, adj)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func adjustTx(ctx context.Context, tx pgx.Tx, adj model.Adjustment) (int64, error) {
	var current int64
	err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, adj.UserID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("lock user for update: %w", err)
	}

	if adj.Delta > money.MaxCents-current {
		return 0, ErrBalanceLimit
	}
	next := current + adj.Delta
	if next < 0 {
		return 0, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET balance = $2 WHERE id = $1`, adj.UserID, next); err != nil {
		if pgCode(err) == pgerrcode.CheckViolation {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("update balance: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, user_id, kind, amount, balance_after, reference_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), adj.UserID, string(adj.Kind), adj.Delta, next, adj.ReferenceID,
	)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s already journaled for %s", ErrInvalidState, adj.Kind, adj.ReferenceID)
		}
		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}

	return next, nil
}

// GetBalance возвращает последний зафиксированный баланс пользователя в копейках.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

// ListLedgerEntries возвращает журнал изменений баланса пользователя.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, kind, amount, balance_after, reference_id, created_at
		 FROM ledger_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var (
			e    model.LedgerEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.BalanceAfter, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// Reconcile сверяет баланс пользователя с журналом, одобренными заявками и заказами
// в одном снимке данных.
func (r *PostgresRepository) Reconcile(ctx context.Context, userID string) (*model.Reconciliation, error) {
	rec := model.Reconciliation{UserID: userID}
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

	err := r.inTx(ctx, opts, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&rec.Balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("select balance: %w", err)
		}

		err = tx.QueryRow(ctx,
			`SELECT
				(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries WHERE user_id = $1),
				(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM balance_requests WHERE user_id = $1 AND status = $2),
				(SELECT COALESCE(SUM(total_price), 0)::BIGINT FROM orders WHERE user_id = $1),
				(SELECT COALESCE(SUM(total_price), 0)::BIGINT FROM orders WHERE user_id = $1 AND status = $3),
				(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries WHERE user_id = $1 AND kind IN ($4, $5))`,
			userID,
			string(model.BalanceRequestApproved),
			string(model.OrderStatusCancelled),
			string(model.EntryManualCredit),
			string(model.EntryManualDebit),
		).Scan(&rec.JournalSum, &rec.ApprovedTopUps, &rec.OrderDebits, &rec.OrderRefunds, &rec.ManualNet)
		if err != nil {
			return fmt.Errorf("select reconciliation sums: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
