package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/cart"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

// --- Mocks ---

type mockCatalog struct {
	byID map[string]*catalog.Product
}

func (m *mockCatalog) List(_ context.Context) ([]catalog.Product, error) { return nil, nil }

func (m *mockCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Create(_ context.Context, _ *catalog.Product) error   { return nil }
func (m *mockCatalog) Update(_ context.Context, _ *catalog.Product) error   { return nil }
func (m *mockCatalog) Delete(_ context.Context, _ string) error             { return nil }
func (m *mockCatalog) AdjustStock(_ context.Context, _ string, _ int) error { return nil }

type mockOrderRepo struct {
	committed []*Order
	commitErr error

	statusID  string
	statusSet Status
}

func (m *mockOrderRepo) Commit(_ context.Context, o *Order) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = append(m.committed, o)
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]Order, error) {
	var out []Order
	for _, o := range m.committed {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]Order, error) {
	out := make([]Order, 0, len(m.committed))
	for _, o := range m.committed {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	m.statusID = id
	m.statusSet = status
	return nil
}

type mockValidator struct {
	byCode map[string]*coupon.Coupon
}

func (m *mockValidator) Validate(_ context.Context, code string, subtotal decimal.Decimal) (*coupon.Coupon, error) {
	c, ok := m.byCode[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return nil, &coupon.MinOrderError{Minimum: c.MinOrderAmount}
	}
	return c, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc     *Service
	carts   *cart.Service
	repo    *mockOrderRepo
	catalog *mockCatalog
	user    *user.User
}

func newFixture(t *testing.T, products ...*catalog.Product) *fixture {
	t.Helper()

	byID := make(map[string]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	cat := &mockCatalog{byID: byID}
	validator := &mockValidator{byCode: map[string]*coupon.Coupon{
		"AUTO50": {
			Code:           "AUTO50",
			DiscountAmount: dec("50"),
			MinOrderAmount: dec("2000"),
			Active:         true,
		},
		"NEPAL100": {
			Code:           "NEPAL100",
			DiscountAmount: dec("100"),
			MinOrderAmount: dec("1000"),
			Active:         true,
		},
	}}
	engine := pricing.NewEngine(pricing.DefaultTariff())
	carts := cart.NewService(cat, engine, validator)
	repo := &mockOrderRepo{}
	svc := NewService(cat, repo, carts, engine, validator)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	return &fixture{
		svc:     svc,
		carts:   carts,
		repo:    repo,
		catalog: cat,
		user: &user.User{
			ID:       uuid.New(),
			Username: "John Doe",
			Role:     user.RoleUser,
		},
	}
}

func (f *fixture) fill(t *testing.T, productID string, qty int) {
	t.Helper()
	require.NoError(t, f.carts.Add(context.Background(), f.user.ID, productID))
	require.NoError(t, f.carts.SetQuantity(context.Background(), f.user.ID, productID, qty))
}

func validRequest(u *user.User) PlaceRequest {
	return PlaceRequest{
		User:   u,
		Mobile: "9812345678",
		Location: Location{
			Lat:     27.7172,
			Lng:     85.3240,
			Address: "Thamel, Kathmandu",
		},
	}
}

func rice(stock int) *catalog.Product {
	return &catalog.Product{
		ID:           "p-rice",
		Name:         "Premium Basmati Rice",
		SellingPrice: dec("150"),
		Stock:        stock,
		BulkRule:     &catalog.BulkRule{ThresholdQty: 2, BundlePrice: dec("280")},
	}
}

// --- Placement preconditions ---

func TestPlace_Preconditions(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t, rice(10))
		_, err := f.svc.Place(context.Background(), PlaceRequest{})
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, rice(10))
		_, err := f.svc.Place(context.Background(), validRequest(f.user))
		require.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("missing address", func(t *testing.T) {
		f := newFixture(t, rice(10))
		f.fill(t, "p-rice", 3)

		req := validRequest(f.user)
		req.Location.Address = ""
		_, err := f.svc.Place(context.Background(), req)
		require.ErrorIs(t, err, ErrMissingAddress)
	})

	t.Run("invalid mobile", func(t *testing.T) {
		f := newFixture(t, rice(10))
		f.fill(t, "p-rice", 3)

		for _, mobile := range []string{"", "98123", "98123456789", "98123456ab", "+9779812345"} {
			req := validRequest(f.user)
			req.Mobile = mobile
			_, err := f.svc.Place(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidMobile, "mobile %q", mobile)
		}
	})

	t.Run("no mutation on precondition failure", func(t *testing.T) {
		f := newFixture(t, rice(10))
		f.fill(t, "p-rice", 3)

		req := validRequest(f.user)
		req.Mobile = "bad"
		_, err := f.svc.Place(context.Background(), req)
		require.Error(t, err)

		assert.Empty(t, f.repo.committed)
		assert.Len(t, f.carts.Snapshot(f.user.ID), 1, "cart untouched")
	})
}

// --- Stock re-validation ---

func TestPlace_StockRevalidation(t *testing.T) {
	t.Run("stock depleted after cart fill", func(t *testing.T) {
		p := rice(10)
		f := newFixture(t, p)
		f.fill(t, "p-rice", 3)

		p.Stock = 2 // another checkout got there first

		_, err := f.svc.Place(context.Background(), validRequest(f.user))

		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "Premium Basmati Rice", stockErr.ProductName)
		assert.Equal(t, 2, stockErr.Available)
		assert.Equal(t, 3, stockErr.Requested)
		assert.Empty(t, f.repo.committed, "no partial order")
	})

	t.Run("product deleted after cart fill", func(t *testing.T) {
		f := newFixture(t, rice(10))
		f.fill(t, "p-rice", 3)

		delete(f.catalog.byID, "p-rice")

		_, err := f.svc.Place(context.Background(), validRequest(f.user))

		var goneErr *ProductGoneError
		require.ErrorAs(t, err, &goneErr)
		assert.Empty(t, f.repo.committed)
	})
}

// --- Successful placement ---

func TestPlace_Success(t *testing.T) {
	f := newFixture(t, rice(10))
	f.fill(t, "p-rice", 3)

	o, err := f.svc.Place(context.Background(), validRequest(f.user))
	require.NoError(t, err)

	// Pricing snapshot: subtotal 450, bulk discount 20, delivery 50, total 480.
	assert.True(t, dec("450").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, dec("20").Equal(o.DiscountTotal), "discount %s", o.DiscountTotal)
	assert.True(t, dec("50").Equal(o.DeliveryCharge))
	assert.True(t, dec("480").Equal(o.FinalTotal))

	assert.True(t, strings.HasPrefix(o.ID, "ORD-"))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, f.user.ID, o.UserID)
	assert.Equal(t, "John Doe", o.Username)
	assert.Equal(t, "9812345678", o.MobileNumber)
	assert.Equal(t, "Thamel, Kathmandu", o.Location.Address)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "Premium Basmati Rice", o.Items[0].Name)
	assert.True(t, dec("150").Equal(o.Items[0].UnitPrice))
	assert.Equal(t, 3, o.Items[0].Quantity)

	require.Len(t, f.repo.committed, 1)
	assert.Empty(t, f.carts.Snapshot(f.user.ID), "cart cleared after placement")
}

func TestPlace_AutoCouponApplied(t *testing.T) {
	f := newFixture(t, &catalog.Product{
		ID:           "p-ghee",
		Name:         "Pure Ghee",
		SellingPrice: dec("500"),
		Stock:        50,
	})
	f.fill(t, "p-ghee", 5) // subtotal 2500

	o, err := f.svc.Place(context.Background(), validRequest(f.user))
	require.NoError(t, err)

	assert.Equal(t, "AUTO50", o.CouponCode)
	assert.True(t, dec("50").Equal(o.DiscountTotal))
	assert.True(t, dec("25").Equal(o.DeliveryCharge))
	assert.True(t, dec("2475").Equal(o.FinalTotal), "got %s", o.FinalTotal)
}

func TestPlace_ManualCouponSnapshotted(t *testing.T) {
	f := newFixture(t, &catalog.Product{
		ID:           "p-ghee",
		Name:         "Pure Ghee",
		SellingPrice: dec("500"),
		Stock:        50,
	})
	f.fill(t, "p-ghee", 3) // subtotal 1500

	_, err := f.carts.ApplyCoupon(context.Background(), f.user.ID, "NEPAL100")
	require.NoError(t, err)

	o, err := f.svc.Place(context.Background(), validRequest(f.user))
	require.NoError(t, err)

	assert.Equal(t, "NEPAL100", o.CouponCode)
	assert.True(t, dec("100").Equal(o.DiscountTotal))
	// Delivery tier on net 1500 pre-coupon.
	assert.True(t, dec("25").Equal(o.DeliveryCharge))
	assert.True(t, dec("1425").Equal(o.FinalTotal))
}

func TestPlace_CommitFailureLeavesCart(t *testing.T) {
	f := newFixture(t, rice(10))
	f.fill(t, "p-rice", 3)

	f.repo.commitErr = assert.AnError

	_, err := f.svc.Place(context.Background(), validRequest(f.user))
	require.Error(t, err)
	assert.Len(t, f.carts.Snapshot(f.user.ID), 1, "cart preserved so the user can retry")
}

// --- Listing and status ---

func TestList(t *testing.T) {
	f := newFixture(t, rice(10))
	f.fill(t, "p-rice", 2)

	_, err := f.svc.Place(context.Background(), validRequest(f.user))
	require.NoError(t, err)

	t.Run("user sees own orders only", func(t *testing.T) {
		own, err := f.svc.List(context.Background(), f.user)
		require.NoError(t, err)
		assert.Len(t, own, 1)

		other := &user.User{ID: uuid.New(), Role: user.RoleUser}
		none, err := f.svc.List(context.Background(), other)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("staff and admin see all orders", func(t *testing.T) {
		for _, role := range []user.Role{user.RoleAdmin, user.RoleStaff} {
			actor := &user.User{ID: uuid.New(), Role: role}
			all, err := f.svc.List(context.Background(), actor)
			require.NoError(t, err)
			assert.Len(t, all, 1, "role %s", role)
		}
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		_, err := f.svc.List(context.Background(), nil)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, rice(10))
	staff := &user.User{ID: uuid.New(), Role: user.RoleStaff}

	t.Run("staff may set any status in any sequence", func(t *testing.T) {
		for _, st := range []Status{StatusDelivered, StatusPending, StatusInTransit, StatusReady} {
			require.NoError(t, f.svc.UpdateStatus(context.Background(), staff, "ORD-1", st))
			assert.Equal(t, st, f.repo.statusSet)
		}
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		err := f.svc.UpdateStatus(context.Background(), f.user, "ORD-1", StatusReady)
		require.ErrorIs(t, err, user.ErrForbidden)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := f.svc.UpdateStatus(context.Background(), staff, "ORD-1", Status("Cancelled"))
		require.Error(t, err)
	})
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"Pending", "Ready", "In Transit", "Delivered"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}
	_, err := ParseStatus("pending")
	require.Error(t, err)
}
