package repository

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок хранилища. Конкретные ошибки ниже оборачивают их,
// поэтому вызывающий код может проверять как вид, так и конкретную причину.
var (
	// ErrNotFound возвращается, если запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrConflict возвращается при нарушении уникальности или другом конфликте данных.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState возвращается при недопустимом переходе статуса.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientFunds возвращается, если списание сделало бы баланс отрицательным.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var (
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrIdentityNotFound       = fmt.Errorf("identity %w", ErrNotFound)
	ErrCategoryNotFound       = fmt.Errorf("category %w", ErrNotFound)
	ErrServiceNotFound        = fmt.Errorf("service %w", ErrNotFound)
	ErrOrderNotFound          = fmt.Errorf("order %w", ErrNotFound)
	ErrBalanceRequestNotFound = fmt.Errorf("balance request %w", ErrNotFound)

	// ErrUserExists возвращается при повторной регистрации email или профиля.
	ErrUserExists = fmt.Errorf("user already exists: %w", ErrConflict)
	// ErrDuplicateName возвращается при совпадении имени категории или услуги.
	ErrDuplicateName = fmt.Errorf("name already taken: %w", ErrConflict)
	// ErrLastAdmin возвращается при попытке снять права с последнего администратора.
	ErrLastAdmin = fmt.Errorf("cannot demote the last admin: %w", ErrConflict)

	// ErrZeroTotal возвращается, если стоимость заказа округлилась до нуля.
	ErrZeroTotal = errors.New("order total rounds to zero")
	// ErrTotalOutOfRange возвращается, если стоимость заказа не помещается в допустимый диапазон.
	ErrTotalOutOfRange = errors.New("order total out of range")
	// ErrBalanceLimit возвращается, если зачисление выводит баланс за money.MaxCents.
	ErrBalanceLimit = fmt.Errorf("balance limit exceeded: %w", ErrConflict)
)
