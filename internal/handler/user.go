package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/smm-storefront/internal/money"
)

// Register регистрирует нового пользователя и выдаёт токен сессии.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	token, err := h.authMiddleware.SetAuthCookie(w, u.ID)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.String("user_id", u.ID))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	resp := toUser(*u)
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: &resp})
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	ident, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	token, err := h.authMiddleware.SetAuthCookie(w, ident.ID)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.String("user_id", ident.ID))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(*u))
}

// ProvisionProfile создаёт профиль для учётной записи без профиля.
func (h *Handler) ProvisionProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.ProvisionProfile(r.Context(), userID, req.FullName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(*u))
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"balance": money.ToFloat(balance)})
}

// GetLedger возвращает журнал изменений баланса текущего пользователя.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListLedger(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(entries, toLedgerEntry))
}

// SubmitBalanceRequest принимает заявку на пополнение баланса.
func (h *Handler) SubmitBalanceRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req balanceRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	br, err := h.service.SubmitBalanceRequest(r.Context(), userID, req.Amount.String(), req.Receipt, req.Note)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceRequest(*br))
}

// ListMyBalanceRequests возвращает заявки текущего пользователя.
func (h *Handler) ListMyBalanceRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListMyBalanceRequests(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(items, toBalanceRequest))
}

// PlaceOrder оформляет заказ услуги за счёт баланса.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), userID, req.ServiceID, req.Quantity, req.Note)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(*o))
}

// ListMyOrders возвращает заказы текущего пользователя.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListMyOrders(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(orders, toOrder))
}
