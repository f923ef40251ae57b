package repository

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/smm-storefront/internal/model"
	"github.com/mmeshcher/smm-storefront/internal/money"
)

func newUser(t *testing.T, repo *MemoryRepository, email string, admin bool) *model.User {
	t.Helper()
	ctx := context.Background()

	ident, err := repo.CreateIdentity(ctx, email, []byte("hash"))
	require.NoError(t, err)

	u, err := repo.CreateUser(ctx, model.User{ID: ident.ID, Email: email, IsAdmin: admin})
	require.NoError(t, err)
	return u
}

func fund(t *testing.T, repo *MemoryRepository, userID string, amount int64) {
	t.Helper()
	ctx := context.Background()

	br, err := repo.CreateBalanceRequest(ctx, model.BalanceRequest{UserID: userID, Amount: amount, Receipt: "r"})
	require.NoError(t, err)
	_, err = repo.ApproveBalanceRequest(ctx, br.ID)
	require.NoError(t, err)
}

func newService(t *testing.T, repo *MemoryRepository, price int64) *model.Service {
	t.Helper()
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, "Instagram")
	require.NoError(t, err)

	s, err := repo.CreateService(ctx, model.Service{
		CategoryID:     c.ID,
		Name:           "Followers",
		Price:          price,
		ProcessingTime: 60,
	})
	require.NoError(t, err)
	return s
}

func TestMemory_CreateUserRequiresIdentity(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.CreateUser(context.Background(), model.User{ID: "missing", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrIdentityNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_DuplicateIdentity(t *testing.T) {
	repo := NewMemoryRepository()
	newUser(t, repo, "a@example.com", false)

	_, err := repo.CreateIdentity(context.Background(), "a@example.com", []byte("x"))
	assert.ErrorIs(t, err, ErrUserExists)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_ApproveTwiceCreditsOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)

	br, err := repo.CreateBalanceRequest(ctx, model.BalanceRequest{UserID: u.ID, Amount: 10000, Receipt: "r"})
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestPending, br.Status)

	approved, err := repo.ApproveBalanceRequest(ctx, br.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestApproved, approved.Status)

	_, err = repo.ApproveBalanceRequest(ctx, br.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = repo.RejectBalanceRequest(ctx, br.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)
}

func TestMemory_RejectDoesNotCredit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)

	br, err := repo.CreateBalanceRequest(ctx, model.BalanceRequest{UserID: u.ID, Amount: 500, Receipt: "r"})
	require.NoError(t, err)

	rejected, err := repo.RejectBalanceRequest(ctx, br.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestRejected, rejected.Status)

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = repo.ApproveBalanceRequest(ctx, "unknown")
	assert.ErrorIs(t, err, ErrBalanceRequestNotFound)
}

func TestMemory_PlaceOrderDebitsAndFreezesPrice(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 5000)
	s := newService(t, repo, 2500)

	o, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), o.TotalPrice)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, s.Name, o.ServiceName)

	s.Price = 9999
	_, err = repo.UpdateService(ctx, *s)
	require.NoError(t, err)

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.TotalPrice)

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
}

func TestMemory_PlaceOrderErrors(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 100)
	s := newService(t, repo, 1)

	tests := []struct {
		name    string
		in      model.NewOrder
		wantErr error
	}{
		{
			name:    "unknown service",
			in:      model.NewOrder{UserID: u.ID, ServiceID: "nope", Quantity: 10},
			wantErr: ErrServiceNotFound,
		},
		{
			name:    "unknown user",
			in:      model.NewOrder{UserID: "nope", ServiceID: s.ID, Quantity: 10},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "total rounds to zero",
			in:      model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 100},
			wantErr: ErrZeroTotal,
		},
		{
			name:    "insufficient funds",
			in:      model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 1_000_000},
			wantErr: ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.PlaceOrder(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	orders, err := repo.ListOrders(ctx, OrderFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemory_ConcurrentOrdersNeverOverdraw(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 1000)
	s := newService(t, repo, 1000)

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 100})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	rec, err := repo.Reconcile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "%+v", rec)
}

func TestMemory_AdvanceOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 1000)
	s := newService(t, repo, 1000)

	o, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 400})
	require.NoError(t, err)

	_, err = repo.AdvanceOrder(ctx, o.ID, model.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidState)

	o, err = repo.AdvanceOrder(ctx, o.ID, model.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, o.Status)

	o, err = repo.AdvanceOrder(ctx, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)

	_, err = repo.AdvanceOrder(ctx, o.ID, model.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrInvalidState)

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	entries, err := repo.ListLedgerEntries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.EntryOrderRefund, entries[0].Kind)
	assert.Equal(t, int64(400), entries[0].Amount)
	assert.Equal(t, model.EntryOrderDebit, entries[1].Kind)
	assert.Equal(t, model.EntryTopUp, entries[2].Kind)

	rec, err := repo.Reconcile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "%+v", rec)
}

func TestMemory_AdjustBalance(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)

	balance, err := repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: 300, Kind: model.EntryManualCredit})
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	_, err = repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: -301, Kind: model.EntryManualDebit})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err = repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: -300, Kind: model.EntryManualDebit})
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = repo.AdjustBalance(ctx, model.Adjustment{UserID: "nope", Delta: 1, Kind: model.EntryManualCredit})
	assert.ErrorIs(t, err, ErrUserNotFound)

	rec, err := repo.Reconcile(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, rec.ManualNet)
	assert.True(t, rec.Consistent())
}

func TestMemory_AdjustBalanceLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "rich@example.com", false)

	_, err := repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: math.MaxInt64, Kind: model.EntryManualCredit})
	assert.ErrorIs(t, err, ErrBalanceLimit)

	balance, err := repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: money.MaxCents - 10, Kind: model.EntryManualCredit})
	require.NoError(t, err)
	assert.Equal(t, money.MaxCents-10, balance)

	_, err = repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: 11, Kind: model.EntryManualCredit})
	assert.ErrorIs(t, err, ErrBalanceLimit)
	assert.ErrorIs(t, err, ErrConflict)

	balance, err = repo.AdjustBalance(ctx, model.Adjustment{UserID: u.ID, Delta: 10, Kind: model.EntryManualCredit})
	require.NoError(t, err)
	assert.Equal(t, money.MaxCents, balance)

	entries, err := repo.ListLedgerEntries(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemory_PlaceOrderTotalOutOfRange(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "big@example.com", false)
	fund(t, repo, u.ID, 100)
	s := newService(t, repo, 10000)

	_, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 1844674407370955162})
	assert.ErrorIs(t, err, ErrTotalOutOfRange)

	balance, err := repo.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestMemory_ToggleAdminKeepsLastAdmin(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	admin := newUser(t, repo, "admin@example.com", true)
	other := newUser(t, repo, "user@example.com", false)

	_, err := repo.ToggleAdmin(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrLastAdmin)

	promoted, err := repo.ToggleAdmin(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	demoted, err := repo.ToggleAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsAdmin)
}

func TestMemory_CatalogUniquenessAndCascade(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 10000)

	c, err := repo.CreateCategory(ctx, "TikTok")
	require.NoError(t, err)

	_, err = repo.CreateCategory(ctx, "tiktok")
	assert.ErrorIs(t, err, ErrDuplicateName)

	s, err := repo.CreateService(ctx, model.Service{CategoryID: c.ID, Name: "Views", Price: 100, ProcessingTime: 5})
	require.NoError(t, err)
	assert.Equal(t, "TikTok", s.CategoryName)

	_, err = repo.CreateService(ctx, model.Service{CategoryID: c.ID, Name: "VIEWS", Price: 100, ProcessingTime: 5})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = repo.CreateService(ctx, model.Service{CategoryID: "nope", Name: "Likes", Price: 100, ProcessingTime: 5})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	o, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 1000})
	require.NoError(t, err)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 1, cats[0].ServiceCount)

	removed, err := repo.DeleteCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.GetService(ctx, s.ID)
	assert.ErrorIs(t, err, ErrServiceNotFound)

	kept, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.ServiceID)
	assert.Equal(t, "Views", kept.ServiceName)

	_, err = repo.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestMemory_ListOrdersFilter(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := newUser(t, repo, "a@example.com", false)
	fund(t, repo, u.ID, 10000)
	s := newService(t, repo, 1000)

	var ids []string
	for i := 0; i < 3; i++ {
		o, err := repo.PlaceOrder(ctx, model.NewOrder{UserID: u.ID, ServiceID: s.ID, Quantity: 1000})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := repo.AdvanceOrder(ctx, ids[1], model.OrderStatusProcessing)
	require.NoError(t, err)

	pending, err := repo.ListOrders(ctx, OrderFilter{
		Statuses:    []model.OrderStatus{model.OrderStatusPending},
		OldestFirst: true,
	})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)

	newest, err := repo.ListOrders(ctx, OrderFilter{UserID: u.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, ids[2], newest[0].ID)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, int64(7000), stats.TotalBalance)
}
