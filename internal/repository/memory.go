package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
)

// MemoryRepository хранит данные в памяти процесса. Все изменения выполняются
// под одним мьютексом, поэтому каждая операция атомарна.
type MemoryRepository struct {
	mu sync.RWMutex

	identities map[string]*model.Identity
	emails     map[string]string
	users      map[string]*model.User
	userOrder  []string

	requests     map[string]*model.BalanceRequest
	requestOrder []string

	categories    map[string]*model.Category
	services      map[string]*model.Service
	orders        map[string]*model.Order
	orderSequence []string

	ledger map[string][]model.LedgerEntry
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		identities: make(map[string]*model.Identity),
		emails:     make(map[string]string),
		users:      make(map[string]*model.User),
		requests:   make(map[string]*model.BalanceRequest),
		categories: make(map[string]*model.Category),
		services:   make(map[string]*model.Service),
		orders:     make(map[string]*model.Order),
		ledger:     make(map[string][]model.LedgerEntry),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// Ping всегда успешен.
func (m *MemoryRepository) Ping(context.Context) error { return nil }

// Close ничего не освобождает.
func (m *MemoryRepository) Close() error { return nil }

// CreateIdentity создаёт учётную запись для входа.
func (m *MemoryRepository) CreateIdentity(_ context.Context, email string, passwordHash []byte) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[email]; ok {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
	}
	ident := &model.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: append([]byte(nil), passwordHash...),
		CreatedAt:    now(),
	}
	m.identities[ident.ID] = ident
	m.emails[email] = ident.ID

	res := *ident
	return &res, nil
}

// GetIdentityByEmail возвращает учётную запись по email.
func (m *MemoryRepository) GetIdentityByEmail(_ context.Context, email string) (*model.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	res := *m.identities[id]
	return &res, nil
}

// GetIdentity возвращает учётную запись по идентификатору.
func (m *MemoryRepository) GetIdentity(_ context.Context, id string) (*model.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	res := *ident
	return &res, nil
}

// CreateUser создаёт профиль для существующей учётной записи.
func (m *MemoryRepository) CreateUser(_ context.Context, u model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[u.ID]; !ok {
		return nil, ErrIdentityNotFound
	}
	if _, ok := m.users[u.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
	}
	for _, other := range m.users {
		if other.Email == u.Email {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
	}

	u.Balance = 0
	u.CreatedAt = now()
	stored := u
	m.users[u.ID] = &stored
	m.userOrder = append(m.userOrder, u.ID)
	return &u, nil
}

// GetUser возвращает профиль пользователя.
func (m *MemoryRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	res := *u
	return &res, nil
}

// ListUsers возвращает профили всех пользователей, новые первыми.
func (m *MemoryRepository) ListUsers(context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.User, 0, len(m.userOrder))
	for i := len(m.userOrder) - 1; i >= 0; i-- {
		res = append(res, *m.users[m.userOrder[i]])
	}
	return res, nil
}

// ToggleAdmin переключает признак администратора, не снимая права с последнего администратора.
func (m *MemoryRepository) ToggleAdmin(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.IsAdmin {
		admins := 0
		for _, other := range m.users {
			if other.IsAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return nil, ErrLastAdmin
		}
	}
	u.IsAdmin = !u.IsAdmin
	res := *u
	return &res, nil
}

// AdjustBalance изменяет баланс и записывает проводку в журнал.
func (m *MemoryRepository) AdjustBalance(_ context.Context, adj model.Adjustment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(adj)
}

// adjustLocked вызывается с захваченным m.mu.
func (m *MemoryRepository) adjustLocked(adj model.Adjustment) (int64, error) {
	u, ok := m.users[adj.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if adj.Delta > money.MaxCents-u.Balance {
		return 0, ErrBalanceLimit
	}
	next := u.Balance + adj.Delta
	if next < 0 {
		return 0, ErrInsufficientFunds
	}

	if adj.Kind == model.EntryTopUp || adj.Kind == model.EntryOrderRefund {
		for _, e := range m.ledger[adj.UserID] {
			if e.Kind == adj.Kind && e.ReferenceID == adj.ReferenceID {
				return 0, fmt.Errorf("%w: %s already journaled for %s", ErrInvalidState, adj.Kind, adj.ReferenceID)
			}
		}
	}

	u.Balance = next
	m.ledger[adj.UserID] = append(m.ledger[adj.UserID], model.LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       adj.UserID,
		Kind:         adj.Kind,
		Amount:       adj.Delta,
		BalanceAfter: next,
		ReferenceID:  adj.ReferenceID,
		CreatedAt:    now(),
	})
	return next, nil
}

// GetBalance возвращает текущий баланс пользователя в копейках.
func (m *MemoryRepository) GetBalance(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.Balance, nil
}

// ListLedgerEntries возвращает журнал проводок пользователя, новые первыми.
func (m *MemoryRepository) ListLedgerEntries(_ context.Context, userID string) ([]model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.ledger[userID]
	res := make([]model.LedgerEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		res = append(res, entries[i])
	}
	return res, nil
}

// Reconcile собирает данные для сверки баланса с журналом.
func (m *MemoryRepository) Reconcile(_ context.Context, userID string) (*model.Reconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	rec := model.Reconciliation{UserID: userID, Balance: u.Balance}
	for _, e := range m.ledger[userID] {
		rec.JournalSum += e.Amount
		if e.Kind == model.EntryManualCredit || e.Kind == model.EntryManualDebit {
			rec.ManualNet += e.Amount
		}
	}
	for _, br := range m.requests {
		if br.UserID == userID && br.Status == model.BalanceRequestApproved {
			rec.ApprovedTopUps += br.Amount
		}
	}
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		rec.OrderDebits += o.TotalPrice
		if o.Status == model.OrderStatusCancelled {
			rec.OrderRefunds += o.TotalPrice
		}
	}
	return &rec, nil
}

// CreateBalanceRequest сохраняет заявку на пополнение в статусе pending.
func (m *MemoryRepository) CreateBalanceRequest(_ context.Context, br model.BalanceRequest) (*model.BalanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[br.UserID]; !ok {
		return nil, ErrUserNotFound
	}
	br.ID = uuid.NewString()
	br.Status = model.BalanceRequestPending
	br.CreatedAt = now()
	br.UpdatedAt = br.CreatedAt

	stored := br
	m.requests[br.ID] = &stored
	m.requestOrder = append(m.requestOrder, br.ID)
	return &br, nil
}

// GetBalanceRequest возвращает заявку на пополнение.
func (m *MemoryRepository) GetBalanceRequest(_ context.Context, id string) (*model.BalanceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	br, ok := m.requests[id]
	if !ok {
		return nil, ErrBalanceRequestNotFound
	}
	res := *br
	return &res, nil
}

// ListBalanceRequests возвращает заявки по фильтру, новые первыми.
func (m *MemoryRepository) ListBalanceRequests(_ context.Context, f BalanceRequestFilter) ([]model.BalanceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.BalanceRequest
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		br := m.requests[m.requestOrder[i]]
		if f.UserID != "" && br.UserID != f.UserID {
			continue
		}
		if f.Status != "" && br.Status != f.Status {
			continue
		}
		res = append(res, *br)
		if f.Limit > 0 && len(res) == f.Limit {
			break
		}
	}
	return res, nil
}

// ApproveBalanceRequest одобряет заявку и зачисляет сумму на баланс.
func (m *MemoryRepository) ApproveBalanceRequest(_ context.Context, id string) (*model.BalanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	br, err := m.pendingRequestLocked(id)
	if err != nil {
		return nil, err
	}
	_, err = m.adjustLocked(model.Adjustment{
		UserID:      br.UserID,
		Delta:       br.Amount,
		Kind:        model.EntryTopUp,
		ReferenceID: br.ID,
	})
	if err != nil {
		return nil, err
	}

	br.Status = model.BalanceRequestApproved
	br.UpdatedAt = now()
	res := *br
	return &res, nil
}

// RejectBalanceRequest отклоняет заявку без изменения баланса.
func (m *MemoryRepository) RejectBalanceRequest(_ context.Context, id string) (*model.BalanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	br, err := m.pendingRequestLocked(id)
	if err != nil {
		return nil, err
	}
	br.Status = model.BalanceRequestRejected
	br.UpdatedAt = now()
	res := *br
	return &res, nil
}

func (m *MemoryRepository) pendingRequestLocked(id string) (*model.BalanceRequest, error) {
	br, ok := m.requests[id]
	if !ok {
		return nil, ErrBalanceRequestNotFound
	}
	if br.Status != model.BalanceRequestPending {
		return nil, fmt.Errorf("%w: balance request %s is %s", ErrInvalidState, id, br.Status)
	}
	return br, nil
}

func (m *MemoryRepository) categoryNameTakenLocked(name, exceptID string) bool {
	for _, c := range m.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryRepository) serviceCountLocked(categoryID string) int {
	n := 0
	for _, s := range m.services {
		if s.CategoryID == categoryID {
			n++
		}
	}
	return n
}

// CreateCategory создаёт категорию с уникальным без учёта регистра именем.
func (m *MemoryRepository) CreateCategory(_ context.Context, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.categoryNameTakenLocked(name, "") {
		return nil, fmt.Errorf("%w: category %q", ErrDuplicateName, name)
	}
	c := &model.Category{ID: uuid.NewString(), Name: name, CreatedAt: now()}
	m.categories[c.ID] = c
	res := *c
	return &res, nil
}

// RenameCategory переименовывает категорию.
func (m *MemoryRepository) RenameCategory(_ context.Context, id, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	if m.categoryNameTakenLocked(name, id) {
		return nil, fmt.Errorf("%w: category %q", ErrDuplicateName, name)
	}
	c.Name = name
	res := *c
	res.ServiceCount = m.serviceCountLocked(id)
	return &res, nil
}

// ListCategories возвращает категории с числом услуг, по алфавиту.
func (m *MemoryRepository) ListCategories(context.Context) ([]model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		item := *c
		item.ServiceCount = m.serviceCountLocked(c.ID)
		res = append(res, item)
	}
	sort.Slice(res, func(i, j int) bool {
		return strings.ToLower(res[i].Name) < strings.ToLower(res[j].Name)
	})
	return res, nil
}

// DeleteCategory удаляет категорию вместе с услугами и возвращает число удалённых услуг.
func (m *MemoryRepository) DeleteCategory(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return 0, ErrCategoryNotFound
	}
	removed := 0
	for sid, s := range m.services {
		if s.CategoryID == id {
			m.detachServiceLocked(sid)
			removed++
		}
	}
	delete(m.categories, id)
	return removed, nil
}

// detachServiceLocked удаляет услугу и обнуляет ссылки на неё в заказах.
func (m *MemoryRepository) detachServiceLocked(id string) {
	delete(m.services, id)
	for _, o := range m.orders {
		if o.ServiceID == id {
			o.ServiceID = ""
		}
	}
}

func (m *MemoryRepository) checkServiceLocked(s model.Service) error {
	if _, ok := m.categories[s.CategoryID]; !ok {
		return ErrCategoryNotFound
	}
	for _, other := range m.services {
		if other.ID != s.ID && other.CategoryID == s.CategoryID && strings.EqualFold(other.Name, s.Name) {
			return fmt.Errorf("%w: service %q", ErrDuplicateName, s.Name)
		}
	}
	return nil
}

func (m *MemoryRepository) serviceViewLocked(s *model.Service) *model.Service {
	res := *s
	res.CategoryName = m.categories[s.CategoryID].Name
	return &res
}

// CreateService добавляет услугу в каталог.
func (m *MemoryRepository) CreateService(_ context.Context, s model.Service) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = uuid.NewString()
	if err := m.checkServiceLocked(s); err != nil {
		return nil, err
	}
	s.CreatedAt = now()
	stored := s
	m.services[s.ID] = &stored
	return m.serviceViewLocked(&stored), nil
}

// UpdateService обновляет услугу. Цены уже созданных заказов не меняются.
func (m *MemoryRepository) UpdateService(_ context.Context, s model.Service) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.services[s.ID]
	if !ok {
		return nil, ErrServiceNotFound
	}
	if err := m.checkServiceLocked(s); err != nil {
		return nil, err
	}
	s.CreatedAt = current.CreatedAt
	*current = s
	return m.serviceViewLocked(current), nil
}

// GetService возвращает услугу каталога.
func (m *MemoryRepository) GetService(_ context.Context, id string) (*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return m.serviceViewLocked(s), nil
}

// ListServices возвращает услуги, при непустом categoryID только этой категории.
func (m *MemoryRepository) ListServices(_ context.Context, categoryID string) ([]model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Service
	for _, s := range m.services {
		if categoryID != "" && s.CategoryID != categoryID {
			continue
		}
		res = append(res, *m.serviceViewLocked(s))
	}
	sort.Slice(res, func(i, j int) bool {
		ci, cj := strings.ToLower(res[i].CategoryName), strings.ToLower(res[j].CategoryName)
		if ci != cj {
			return ci < cj
		}
		return strings.ToLower(res[i].Name) < strings.ToLower(res[j].Name)
	})
	return res, nil
}

// DeleteService удаляет услугу. Заказы сохраняют её название.
func (m *MemoryRepository) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.services[id]; !ok {
		return ErrServiceNotFound
	}
	m.detachServiceLocked(id)
	return nil
}

// PlaceOrder списывает стоимость и создаёт заказ под одной блокировкой.
func (m *MemoryRepository) PlaceOrder(_ context.Context, in model.NewOrder) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[in.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	s, ok := m.services[in.ServiceID]
	if !ok {
		return nil, ErrServiceNotFound
	}

	total, err := money.OrderTotal(s.Price, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTotalOutOfRange, err)
	}
	if total <= 0 {
		return nil, ErrZeroTotal
	}
	if u.Balance < total {
		return nil, ErrInsufficientFunds
	}

	ts := now()
	o := &model.Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		ServiceID:   in.ServiceID,
		ServiceName: s.Name,
		Quantity:    in.Quantity,
		TotalPrice:  total,
		Status:      model.OrderStatusPending,
		Note:        in.Note,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	_, err = m.adjustLocked(model.Adjustment{
		UserID:      o.UserID,
		Delta:       -total,
		Kind:        model.EntryOrderDebit,
		ReferenceID: o.ID,
	})
	if err != nil {
		return nil, err
	}

	m.orders[o.ID] = o
	m.orderSequence = append(m.orderSequence, o.ID)
	res := *o
	return &res, nil
}

// GetOrder возвращает заказ.
func (m *MemoryRepository) GetOrder(_ context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	res := *o
	return &res, nil
}

// ListOrders возвращает заказы по фильтру.
func (m *MemoryRepository) ListOrders(_ context.Context, f OrderFilter) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := func(o *model.Order) bool {
		if f.UserID != "" && o.UserID != f.UserID {
			return false
		}
		if len(f.Statuses) == 0 {
			return true
		}
		for _, s := range f.Statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	}

	n := len(m.orderSequence)
	var res []model.Order
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		if f.OldestFirst {
			idx = i
		}
		o := m.orders[m.orderSequence[idx]]
		if !matches(o) {
			continue
		}
		res = append(res, *o)
		if f.Limit > 0 && len(res) == f.Limit {
			break
		}
	}
	return res, nil
}

// AdvanceOrder переводит заказ в новый статус, при отмене возвращает средства.
func (m *MemoryRepository) AdvanceOrder(_ context.Context, id string, next model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !o.Status.CanAdvance(next) {
		return nil, fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidState, id, o.Status, next)
	}

	if next == model.OrderStatusCancelled {
		_, err := m.adjustLocked(model.Adjustment{
			UserID:      o.UserID,
			Delta:       o.TotalPrice,
			Kind:        model.EntryOrderRefund,
			ReferenceID: o.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	o.Status = next
	o.UpdatedAt = now()
	res := *o
	return &res, nil
}

// GetStats возвращает сводную статистику.
func (m *MemoryRepository) GetStats(context.Context) (*model.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s model.Stats
	for _, u := range m.users {
		s.TotalUsers++
		s.TotalBalance += u.Balance
	}
	for _, br := range m.requests {
		if br.Status == model.BalanceRequestPending {
			s.PendingBalanceRequests++
		}
	}
	for _, o := range m.orders {
		s.TotalOrders++
		switch o.Status {
		case model.OrderStatusPending:
			s.PendingOrders++
		case model.OrderStatusCompleted:
			s.CompletedOrders++
		}
	}
	return &s, nil
}
