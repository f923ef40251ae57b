package handler

import (
	"encoding/json"
	"time"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
)

// Денежные суммы в ответах передаются в рублях числом с двумя знаками.

type userResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Balance   float64 `json:"balance"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
}

func toUser(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Balance:   money.ToFloat(u.Balance),
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

type balanceRequestResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Receipt   string  `json:"receipt"`
	Note      string  `json:"note,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toBalanceRequest(br model.BalanceRequest) balanceRequestResponse {
	return balanceRequestResponse{
		ID:        br.ID,
		UserID:    br.UserID,
		Amount:    money.ToFloat(br.Amount),
		Receipt:   br.Receipt,
		Note:      br.Note,
		Status:    string(br.Status),
		CreatedAt: br.CreatedAt.Format(time.RFC3339),
		UpdatedAt: br.UpdatedAt.Format(time.RFC3339),
	}
}

type categoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ServiceCount int    `json:"service_count"`
	CreatedAt    string `json:"created_at"`
}

func toCategory(c model.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		ServiceCount: c.ServiceCount,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

type serviceResponse struct {
	ID             string  `json:"id"`
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	ProcessingTime int     `json:"processing_time"`
	Description    string  `json:"description,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func toService(s model.Service) serviceResponse {
	return serviceResponse{
		ID:             s.ID,
		CategoryID:     s.CategoryID,
		CategoryName:   s.CategoryName,
		Name:           s.Name,
		Price:          money.ToFloat(s.Price),
		ProcessingTime: s.ProcessingTime,
		Description:    s.Description,
		ImageURL:       s.ImageURL,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
}

type orderResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ServiceID   *string `json:"service_id"`
	ServiceName string  `json:"service_name"`
	Quantity    int64   `json:"quantity"`
	TotalPrice  float64 `json:"total_price"`
	Status      string  `json:"status"`
	Note        string  `json:"note,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toOrder(o model.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		ServiceName: o.ServiceName,
		Quantity:    o.Quantity,
		TotalPrice:  money.ToFloat(o.TotalPrice),
		Status:      string(o.Status),
		Note:        o.Note,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339),
	}
	if o.ServiceID != "" {
		id := o.ServiceID
		resp.ServiceID = &id
	}
	return resp
}

type ledgerEntryResponse struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Amount       float64 `json:"amount"`
	BalanceAfter float64 `json:"balance_after"`
	ReferenceID  string  `json:"reference_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func toLedgerEntry(e model.LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Amount:       money.ToFloat(e.Amount),
		BalanceAfter: money.ToFloat(e.BalanceAfter),
		ReferenceID:  e.ReferenceID,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

type reconciliationResponse struct {
	UserID         string  `json:"user_id"`
	Balance        float64 `json:"balance"`
	JournalSum     float64 `json:"journal_sum"`
	ApprovedTopUps float64 `json:"approved_topups"`
	OrderDebits    float64 `json:"order_debits"`
	OrderRefunds   float64 `json:"order_refunds"`
	ManualNet      float64 `json:"manual_net"`
	Consistent     bool    `json:"consistent"`
}

func toReconciliation(r model.Reconciliation) reconciliationResponse {
	return reconciliationResponse{
		UserID:         r.UserID,
		Balance:        money.ToFloat(r.Balance),
		JournalSum:     money.ToFloat(r.JournalSum),
		ApprovedTopUps: money.ToFloat(r.ApprovedTopUps),
		OrderDebits:    money.ToFloat(r.OrderDebits),
		OrderRefunds:   money.ToFloat(r.OrderRefunds),
		ManualNet:      money.ToFloat(r.ManualNet),
		Consistent:     r.Consistent(),
	}
}

type statsResponse struct {
	TotalUsers             int64   `json:"total_users"`
	TotalBalance           float64 `json:"total_balance"`
	PendingBalanceRequests int64   `json:"pending_balance_requests"`
	TotalOrders            int64   `json:"total_orders"`
	PendingOrders          int64   `json:"pending_orders"`
	CompletedOrders        int64   `json:"completed_orders"`
}

func toStats(s model.Stats) statsResponse {
	return statsResponse{
		TotalUsers:             s.TotalUsers,
		TotalBalance:           money.ToFloat(s.TotalBalance),
		PendingBalanceRequests: s.PendingBalanceRequests,
		TotalOrders:            s.TotalOrders,
		PendingOrders:          s.PendingOrders,
		CompletedOrders:        s.CompletedOrders,
	}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	res := make([]R, 0, len(items))
	for _, it := range items {
		res = append(res, fn(it))
	}
	return res
}

// Запросы. Суммы принимаются числом или строкой ("12.50").

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user,omitempty"`
}

type profileRequest struct {
	FullName string `json:"full_name"`
}

type balanceRequestRequest struct {
	Amount  json.Number `json:"amount"`
	Receipt string      `json:"receipt"`
	Note    string      `json:"note"`
}

type placeOrderRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int64  `json:"quantity"`
	Note      string `json:"note"`
}

type adjustRequest struct {
	Amount    json.Number `json:"amount"`
	Direction string      `json:"direction"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type serviceRequest struct {
	CategoryID     string      `json:"category_id"`
	Name           string      `json:"name"`
	Price          json.Number `json:"price"`
	ProcessingTime int         `json:"processing_time"`
	Description    string      `json:"description"`
	ImageURL       string      `json:"image_url"`
}
