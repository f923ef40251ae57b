package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/smm-storefront/internal/money"
)

// Stats возвращает сводную статистику витрины.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(*st))
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(users, toUser))
}

// ToggleAdmin переключает права администратора пользователя.
func (h *Handler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.ToggleAdmin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(*u))
}

// AdjustBalance выполняет ручную корректировку баланса пользователя.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID := chi.URLParam(r, "id")
	balance, err := h.service.ManualAdjust(r.Context(), userID, req.Amount.String(), req.Direction)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": money.ToFloat(balance),
	})
}

// Reconcile сверяет баланс пользователя с журналом проводок.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliation(*rec))
}

// ListBalanceRequests возвращает заявки всех пользователей, ?status= фильтрует по статусу.
func (h *Handler) ListBalanceRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListBalanceRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(items, toBalanceRequest))
}

// ApproveBalanceRequest одобряет заявку на пополнение.
func (h *Handler) ApproveBalanceRequest(w http.ResponseWriter, r *http.Request) {
	br, err := h.service.ApproveBalanceRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceRequest(*br))
}

// RejectBalanceRequest отклоняет заявку на пополнение.
func (h *Handler) RejectBalanceRequest(w http.ResponseWriter, r *http.Request) {
	br, err := h.service.RejectBalanceRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceRequest(*br))
}

// ListOrders возвращает заказы всех пользователей, ?status= фильтрует по статусу.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(orders, toOrder))
}

// AdvanceOrder переводит заказ в новый статус. Отмена возвращает средства.
func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.AdvanceOrder(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(*o))
}
