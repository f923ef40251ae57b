// Package provider предоставляет клиент API поставщика SMM-услуг.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Статусы заказа на стороне поставщика.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCanceled   = "CANCELED"
)

// ErrNotConfigured возвращается, если адрес поставщика не задан.
var ErrNotConfigured = errors.New("provider client not configured")

// Client инкапсулирует HTTP-взаимодействие с поставщиком.
type Client struct {
	rest *resty.Client
}

// OrderState описывает ответ поставщика по одному заказу.
type OrderState struct {
	Order  string `json:"order"`
	Status string `json:"status"`
}

// NewClient создаёт клиент для поставщика по указанному адресу.
// Адрес без схемы дополняется http://.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return &Client{}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		rest: resty.New().
			SetBaseURL(base).
			SetTimeout(5 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// Configured сообщает, задан ли адрес поставщика.
func (c *Client) Configured() bool {
	return c != nil && c.rest != nil
}

// GetOrderState запрашивает статус заказа у поставщика. Для ответа 429
// возвращается пауза из заголовка Retry-After, для 204 пустой результат.
func (c *Client) GetOrderState(ctx context.Context, orderID string) (*OrderState, int, time.Duration, error) {
	if !c.Configured() {
		return nil, 0, 0, ErrNotConfigured
	}

	var result OrderState
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("id", orderID).
		SetResult(&result).
		Get("/api/orders/{id}")
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		if result.Status == "" {
			return nil, resp.StatusCode(), 0, fmt.Errorf("decode response: empty status")
		}
		return &result, resp.StatusCode(), 0, nil
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header().Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode(), retryAfter, nil
	case http.StatusNoContent, http.StatusNotFound:
		return nil, resp.StatusCode(), 0, nil
	}

	return nil, resp.StatusCode(), 0, fmt.Errorf("unexpected status: %d", resp.StatusCode())
}
