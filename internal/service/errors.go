package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation оборачивается всеми ошибками валидации входных данных.
	ErrValidation = errors.New("validation failed")
	// ErrOutcomeUnknown возвращается, если изменение не уложилось в отведённое время
	// и неизвестно, было ли оно зафиксировано.
	ErrOutcomeUnknown = errors.New("outcome unknown")
	// ErrInvalidCredentials возвращается при неверной паре email и пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProfileMissing возвращается, если учётная запись есть, а профиля в леджере нет.
	ErrProfileMissing = errors.New("profile missing")
)

// ValidationError описывает некорректное поле запроса.
type ValidationError struct {
	Field  string
	Reason string
}

// Error возвращает поле и причину ошибки.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
