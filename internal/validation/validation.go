// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLen минимальная длина пароля в символах.
	MinPasswordLen = 8
	// MaxPasswordBytes максимальная длина пароля в байтах, больше bcrypt не принимает.
	MaxPasswordBytes = 72
	// MaxNameLen ограничивает длину имён категорий, услуг и пользователей.
	MaxNameLen = 200
)

// NormalizeEmail приводит адрес к нижнему регистру и проверяет его формат.
// Адрес с отображаемым именем ("Bob <bob@x.io>") не принимается.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

// IsValidPassword проверяет длину пароля.
func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLen && len(password) <= MaxPasswordBytes
}

// IsValidName проверяет, что имя непустое и не длиннее MaxNameLen.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= MaxNameLen
}

// IsValidReceipt проверяет ссылку на чек: http(s) URL или data: URI
// размером не больше maxBytes.
func IsValidReceipt(receipt string, maxBytes int) bool {
	if receipt == "" || (maxBytes > 0 && len(receipt) > maxBytes) {
		return false
	}
	if strings.HasPrefix(receipt, "data:") {
		return strings.Contains(receipt, ",")
	}
	return IsValidURL(receipt)
}

// IsValidURL проверяет абсолютный http(s) URL с хостом.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
