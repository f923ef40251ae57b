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

const maxDescriptionLen = 5000

// ServiceInput содержит поля услуги, редактируемые администратором.
// Price задаётся строкой в рублях за 1000 единиц.
type ServiceInput struct {
	CategoryID     string
	Name           string
	Price          string
	ProcessingTime int
	Description    string
	ImageURL       string
}

func (in ServiceInput) toModel() (model.Service, error) {
	name := strings.TrimSpace(in.Name)
	if !validation.IsValidName(name) {
		return model.Service{}, invalid("name", "must be non-empty and at most 200 characters")
	}
	price, err := money.Parse(in.Price)
	if err != nil || price <= 0 {
		return model.Service{}, invalid("price", "must be a positive amount with at most 2 decimals")
	}
	if in.ProcessingTime <= 0 {
		return model.Service{}, invalid("processing_time", "must be a positive number of hours")
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return model.Service{}, invalid("description", "is too long")
	}
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL != "" && !validation.IsValidURL(imageURL) {
		return model.Service{}, invalid("image_url", "must be an http(s) URL")
	}
	if err := checkID(in.CategoryID, repository.ErrCategoryNotFound); err != nil {
		return model.Service{}, err
	}

	return model.Service{
		CategoryID:     in.CategoryID,
		Name:           name,
		Price:          price,
		ProcessingTime: in.ProcessingTime,
		Description:    in.Description,
		ImageURL:       imageURL,
	}, nil
}

// ListCategories возвращает категории с количеством услуг.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory создаёт категорию с уникальным без учёта регистра именем.
func (s *Service) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if !validation.IsValidName(name) {
		return nil, invalid("name", "must be non-empty and at most 200 characters")
	}

	var res *model.Category
	err := s.mutate(ctx, "create_category", func(ctx context.Context) error {
		c, err := s.repo.CreateCategory(ctx, name)
		res = c
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("category created", zap.String("category_id", res.ID), zap.String("name", res.Name))
	return res, nil
}

// RenameCategory меняет имя категории.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if !validation.IsValidName(name) {
		return nil, invalid("name", "must be non-empty and at most 200 characters")
	}
	if err := checkID(id, repository.ErrCategoryNotFound); err != nil {
		return nil, err
	}

	var res *model.Category
	err := s.mutate(ctx, "rename_category", func(ctx context.Context) error {
		c, err := s.repo.RenameCategory(ctx, id, name)
		res = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteCategory удаляет категорию вместе со всеми её услугами и возвращает
// число удалённых услуг.
func (s *Service) DeleteCategory(ctx context.Context, id string) (int, error) {
	if err := checkID(id, repository.ErrCategoryNotFound); err != nil {
		return 0, err
	}

	var removed int
	err := s.mutate(ctx, "delete_category", func(ctx context.Context) error {
		var err error
		removed, err = s.repo.DeleteCategory(ctx, id)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("category deleted", zap.String("category_id", id), zap.Int("services_removed", removed))
	return removed, nil
}

// ListServices возвращает услуги, при непустом categoryID только из этой категории.
func (s *Service) ListServices(ctx context.Context, categoryID string) ([]model.Service, error) {
	if categoryID != "" {
		if err := checkID(categoryID, repository.ErrCategoryNotFound); err != nil {
			return nil, err
		}
	}
	return s.repo.ListServices(ctx, categoryID)
}

// CreateService добавляет услугу в каталог.
func (s *Service) CreateService(ctx context.Context, in ServiceInput) (*model.Service, error) {
	svc, err := in.toModel()
	if err != nil {
		return nil, err
	}

	var res *model.Service
	err = s.mutate(ctx, "create_service", func(ctx context.Context) error {
		created, err := s.repo.CreateService(ctx, svc)
		res = created
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("service created", zap.String("service_id", res.ID), zap.String("name", res.Name))
	return res, nil
}

// UpdateService заменяет поля услуги. Уже оформленные заказы сохраняют свою цену.
func (s *Service) UpdateService(ctx context.Context, id string, in ServiceInput) (*model.Service, error) {
	if err := checkID(id, repository.ErrServiceNotFound); err != nil {
		return nil, err
	}
	svc, err := in.toModel()
	if err != nil {
		return nil, err
	}
	svc.ID = id

	var res *model.Service
	err = s.mutate(ctx, "update_service", func(ctx context.Context) error {
		updated, err := s.repo.UpdateService(ctx, svc)
		res = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteService удаляет услугу. Заказы сохраняют замороженное имя.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	if err := checkID(id, repository.ErrServiceNotFound); err != nil {
		return err
	}
	return s.mutate(ctx, "delete_service", func(ctx context.Context) error {
		return s.repo.DeleteService(ctx, id)
	})
}
