package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	byCode map[string]*Coupon
	err    error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) ListActive(_ context.Context) ([]Coupon, error) { return nil, nil }
func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error)       { return nil, nil }
func (m *mockCouponRepo) Create(_ context.Context, _ *Coupon) error      { return nil }
func (m *mockCouponRepo) Update(_ context.Context, _ string, _ *Coupon) error {
	return nil
}
func (m *mockCouponRepo) Delete(_ context.Context, _ string) error { return nil }

func newValidator(repo Repository, now time.Time) *RepoValidator {
	v := NewRepoValidator(repo, nil)
	v.now = func() time.Time { return now }
	return v
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := fixedNow.Add(30 * 24 * time.Hour)
	past := fixedNow.Add(-24 * time.Hour)

	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"NEPAL100": {
			Code:           "NEPAL100",
			DiscountAmount: decimal.NewFromInt(100),
			MinOrderAmount: decimal.NewFromInt(1000),
			ExpiryDate:     future,
			Active:         true,
		},
		"OLDCODE": {
			Code:           "OLDCODE",
			DiscountAmount: decimal.NewFromInt(50),
			ExpiryDate:     past,
			Active:         true,
		},
		"DISABLED": {
			Code:           "DISABLED",
			DiscountAmount: decimal.NewFromInt(50),
			ExpiryDate:     future,
			Active:         false,
		},
	}}

	tests := []struct {
		name     string
		code     string
		subtotal decimal.Decimal
		want     string
		wantErr  error
	}{
		{
			name:     "valid code returns coupon",
			code:     "NEPAL100",
			subtotal: decimal.NewFromInt(1500),
			want:     "NEPAL100",
		},
		{
			name:     "code is case-insensitive",
			code:     "  nepal100 ",
			subtotal: decimal.NewFromInt(1500),
			want:     "NEPAL100",
		},
		{
			name:     "unknown code",
			code:     "BOGUS",
			subtotal: decimal.NewFromInt(1500),
			wantErr:  ErrNotFound,
		},
		{
			name:     "empty code",
			code:     "",
			subtotal: decimal.NewFromInt(1500),
			wantErr:  ErrNotFound,
		},
		{
			name:     "expired coupon",
			code:     "OLDCODE",
			subtotal: decimal.NewFromInt(1500),
			wantErr:  ErrExpired,
		},
		{
			name:     "inactive coupon behaves as unknown",
			code:     "DISABLED",
			subtotal: decimal.NewFromInt(1500),
			wantErr:  ErrNotFound,
		},
		{
			name:     "subtotal exactly at the minimum is accepted",
			code:     "NEPAL100",
			subtotal: decimal.NewFromInt(1000),
			want:     "NEPAL100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(repo, fixedNow)

			c, err := v.Validate(context.Background(), tt.code, tt.subtotal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Code)
		})
	}
}

func TestRepoValidator_MinimumOrderNotMet(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{byCode: map[string]*Coupon{
		"NEPAL100": {
			Code:           "NEPAL100",
			DiscountAmount: decimal.NewFromInt(100),
			MinOrderAmount: decimal.NewFromInt(1000),
			ExpiryDate:     fixedNow.Add(time.Hour),
			Active:         true,
		},
	}}
	v := newValidator(repo, fixedNow)

	_, err := v.Validate(context.Background(), "NEPAL100", decimal.NewFromInt(500))

	var minErr *MinOrderError
	require.ErrorAs(t, err, &minErr)
	assert.True(t, minErr.Minimum.Equal(decimal.NewFromInt(1000)))
	assert.Contains(t, minErr.Error(), "1000.00")
}

func TestRepoValidator_CodeFilterShortCircuits(t *testing.T) {
	repo := &mockCouponRepo{err: assert.AnError}

	filter := NewCodeFilter(100, 0.01)
	filter.Reload([]string{"AUTO50"})

	v := NewRepoValidator(repo, filter)

	// Unknown code never reaches the failing repository.
	_, err := v.Validate(context.Background(), "DEFINITELYNOT", decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrNotFound)

	// Known code passes the filter and surfaces the repository error.
	_, err = v.Validate(context.Background(), "AUTO50", decimal.NewFromInt(100))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
