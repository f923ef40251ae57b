// Package model содержит доменные сущности SMM-витрины.
package model

import "time"

// Identity описывает учётную запись для входа (email и хеш пароля).
type Identity struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// User представляет профиль пользователя в леджере. Баланс хранится в копейках.
type User struct {
	ID        string
	Email     string
	FullName  string
	Balance   int64
	IsAdmin   bool
	CreatedAt time.Time
}

// BalanceRequestStatus описывает статус заявки на пополнение баланса.
type BalanceRequestStatus string

const (
	BalanceRequestPending  BalanceRequestStatus = "pending"
	BalanceRequestApproved BalanceRequestStatus = "approved"
	BalanceRequestRejected BalanceRequestStatus = "rejected"
)

// Valid сообщает, является ли статус одним из известных.
func (s BalanceRequestStatus) Valid() bool {
	switch s {
	case BalanceRequestPending, BalanceRequestApproved, BalanceRequestRejected:
		return true
	}
	return false
}

// BalanceRequest описывает заявку пользователя на пополнение баланса по чеку.
type BalanceRequest struct {
	ID        string
	UserID    string
	Amount    int64
	Receipt   string
	Note      string
	Status    BalanceRequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category описывает категорию каталога услуг.
type Category struct {
	ID           string
	Name         string
	ServiceCount int
	CreatedAt    time.Time
}

// Service описывает услугу каталога. Price задаётся в копейках за 1000 единиц.
type Service struct {
	ID             string
	CategoryID     string
	CategoryName   string
	Name           string
	Price          int64
	ProcessingTime int
	Description    string
	ImageURL       string
	CreatedAt      time.Time
}

// OrderStatus описывает статус исполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid сообщает, является ли статус одним из известных.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanAdvance проверяет допустимость перехода заказа из статуса s в next.
func (s OrderStatus) CanAdvance(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	}
	return false
}

// Order описывает заказ пользователя. TotalPrice фиксируется при создании.
type Order struct {
	ID          string
	UserID      string
	ServiceID   string
	ServiceName string
	Quantity    int64
	TotalPrice  int64
	Status      OrderStatus
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder содержит параметры размещения заказа.
type NewOrder struct {
	UserID    string
	ServiceID string
	Quantity  int64
	Note      string
}

// EntryKind описывает вид проводки в журнале баланса.
type EntryKind string

const (
	EntryTopUp        EntryKind = "topup"
	EntryOrderDebit   EntryKind = "order_debit"
	EntryOrderRefund  EntryKind = "order_refund"
	EntryManualCredit EntryKind = "manual_credit"
	EntryManualDebit  EntryKind = "manual_debit"
)

// LedgerEntry описывает одно изменение баланса пользователя.
type LedgerEntry struct {
	ID           string
	UserID       string
	Kind         EntryKind
	Amount       int64
	BalanceAfter int64
	ReferenceID  string
	CreatedAt    time.Time
}

// Adjustment описывает атомарное изменение баланса на Delta копеек.
type Adjustment struct {
	UserID      string
	Delta       int64
	Kind        EntryKind
	ReferenceID string
}

// Reconciliation содержит результат сверки баланса пользователя с журналом.
type Reconciliation struct {
	UserID         string
	Balance        int64
	JournalSum     int64
	ApprovedTopUps int64
	OrderDebits    int64
	OrderRefunds   int64
	ManualNet      int64
}

// Expected возвращает баланс, выведенный из заявок, заказов и ручных корректировок.
func (r Reconciliation) Expected() int64 {
	return r.ApprovedTopUps - (r.OrderDebits - r.OrderRefunds) + r.ManualNet
}

// Consistent сообщает, сходится ли баланс с журналом и исходными документами.
func (r Reconciliation) Consistent() bool {
	return r.Balance >= 0 && r.Balance == r.JournalSum && r.Balance == r.Expected()
}

// Stats содержит агрегированную статистику для панели администратора.
type Stats struct {
	TotalUsers             int64
	TotalBalance           int64
	PendingBalanceRequests int64
	TotalOrders            int64
	PendingOrders          int64
	CompletedOrders        int64
}
