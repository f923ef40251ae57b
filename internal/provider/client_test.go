package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrderState_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/orders/abc", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(OrderState{Order: "abc", Status: StatusInProgress})
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetOrderState(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, retry)
	require.NotNil(t, res)
	assert.Equal(t, "abc", res.Order)
	assert.Equal(t, StatusInProgress, res.Status)
}

func TestGetOrderState_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	res, code, retry, err := client.GetOrderState(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, 5*time.Second, retry)
}

func TestGetOrderState_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	res, code, _, err := NewClient(ts.URL).GetOrderState(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestGetOrderState_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, code, _, err := NewClient(ts.URL).GetOrderState(context.Background(), "abc")
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestGetOrderState_NotConfigured(t *testing.T) {
	client := NewClient("")
	assert.False(t, client.Configured())

	_, _, _, err := client.GetOrderState(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
