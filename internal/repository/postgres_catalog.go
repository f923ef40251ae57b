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

// CreateCategory добавляет категорию. Имена уникальны без учёта регистра.
func (r *PostgresRepository) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	c := model.Category{ID: uuid.NewString(), Name: name}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at`,
		c.ID, c.Name,
	).Scan(&c.CreatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: category %q", ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

// RenameCategory меняет имя категории.
func (r *PostgresRepository) RenameCategory(ctx context.Context, id, name string) (*model.Category, error) {
	var c model.Category
	err := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1
		 RETURNING id, name, created_at,
		   (SELECT COUNT(*) FROM services WHERE category_id = $1)`,
		id, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.ServiceCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if pgCode(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: category %q", ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &c, nil
}

// ListCategories возвращает категории по имени вместе с количеством услуг.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.created_at, COUNT(s.id)
		 FROM categories c
		 LEFT JOIN services s ON s.category_id = c.id
		 GROUP BY c.id
		 ORDER BY LOWER(c.name)`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.ServiceCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// DeleteCategory удаляет категорию вместе с её услугами и возвращает число
// удалённых услуг. Заказы сохраняют замороженное имя услуги.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) (int, error) {
	var removed int
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT TRUE FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("lock category: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM services WHERE category_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete services: %w", err)
		}
		removed = int(tag.RowsAffected())

		if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

const serviceColumns = `s.id, s.category_id, c.name, s.name, s.price, s.processing_time,
	s.description, s.image_url, s.created_at`

func scanService(row pgx.Row) (*model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.CategoryID, &s.CategoryName, &s.Name, &s.Price, &s.ProcessingTime,
		&s.Description, &s.ImageURL, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("scan service: %w", err)
	}
	return &s, nil
}

func serviceWriteErr(err error, s model.Service) error {
	switch pgCode(err) {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: service %q", ErrDuplicateName, s.Name)
	case pgerrcode.ForeignKeyViolation:
		return ErrCategoryNotFound
	}
	return fmt.Errorf("write service: %w", err)
}

// CreateService добавляет услугу в существующую категорию.
func (r *PostgresRepository) CreateService(ctx context.Context, s model.Service) (*model.Service, error) {
	s.ID = uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO services (id, category_id, name, price, processing_time, description, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.CategoryID, s.Name, s.Price, s.ProcessingTime, s.Description, s.ImageURL,
	)
	if err != nil {
		return nil, serviceWriteErr(err, s)
	}
	return r.GetService(ctx, s.ID)
}

// UpdateService заменяет все редактируемые поля услуги. Цены уже оформленных
// заказов не меняются.
func (r *PostgresRepository) UpdateService(ctx context.Context, s model.Service) (*model.Service, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE services
		 SET category_id = $2, name = $3, price = $4, processing_time = $5, description = $6, image_url = $7
		 WHERE id = $1`,
		s.ID, s.CategoryID, s.Name, s.Price, s.ProcessingTime, s.Description, s.ImageURL,
	)
	if err != nil {
		return nil, serviceWriteErr(err, s)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrServiceNotFound
	}
	return r.GetService(ctx, s.ID)
}

// GetService возвращает услугу с именем её категории.
func (r *PostgresRepository) GetService(ctx context.Context, id string) (*model.Service, error) {
	return scanService(r.pool.QueryRow(ctx,
		`SELECT `+serviceColumns+`
		 FROM services s JOIN categories c ON c.id = s.category_id
		 WHERE s.id = $1`, id))
}

// ListServices возвращает услуги, при непустом categoryID только из этой категории.
func (r *PostgresRepository) ListServices(ctx context.Context, categoryID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceColumns+`
		 FROM services s JOIN categories c ON c.id = s.category_id
		 WHERE ($1 = '' OR s.category_id::text = $1)
		 ORDER BY LOWER(c.name), LOWER(s.name)`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var res []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// DeleteService удаляет услугу. Ссылки из заказов обнуляются внешним ключом.
func (r *PostgresRepository) DeleteService(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}
