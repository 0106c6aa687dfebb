package datasync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/upstream"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{in: 19.99, want: 1999},
		{in: 9.99, want: 999},
		{in: 0.1 + 0.2, want: 30},
		{in: 1.005, want: 101},
		{in: 0, want: 0},
		{in: 100, want: 10000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToMinorUnits(tt.in), "ToMinorUnits(%v)", tt.in)
	}
}

func TestNormalizePaymentStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "paid", want: models.PaymentStatusPaid},
		{in: " PAID ", want: models.PaymentStatusPaid},
		{in: "refunded", want: models.PaymentStatusRefunded},
		{in: "failed", want: models.PaymentStatusFailed},
		{in: "pending", want: models.PaymentStatusPending},
		{in: "something", want: models.PaymentStatusUnknown},
		{in: "", want: models.PaymentStatusUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePaymentStatus(tt.in), "NormalizePaymentStatus(%q)", tt.in)
	}
}

func TestNormalizeMembershipStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "trialing", want: models.MembershipStatusTrialing},
		{in: "active", want: models.MembershipStatusActive},
		{in: "past_due", want: models.MembershipStatusPastDue},
		{in: "canceled", want: models.MembershipStatusCancelled},
		{in: "cancelled", want: models.MembershipStatusCancelled},
		{in: "expired", want: models.MembershipStatusExpired},
		{in: "completed", want: models.MembershipStatusExpired},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMembershipStatus(tt.in), "NormalizeMembershipStatus(%q)", tt.in)
	}
}

func TestNormalizePayment(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := upstream.Payment{
		ID:          "pay_1",
		Status:      "paid",
		FinalAmount: ptr(19.99),
		Currency:    "EUR",
		CreatedAt:   ptr(int64(1700000000)),
		PaidAt:      ptr(int64(1700000060)),
		AccessPass:  &upstream.AccessPass{ID: "prod_1"},
		Membership:  &upstream.Reference{ID: "mem_9"},
		Member:      &upstream.Member{User: &upstream.Reference{ID: "user_1"}},
	}

	out := NormalizePayment("biz_1", in, fallback)
	assert.Equal(t, "biz_1", out.CompanyID)
	assert.Equal(t, "pay_1", out.ExternalID)
	assert.Equal(t, int64(1999), out.FinalAmount)
	assert.Equal(t, "eur", out.Currency)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), out.CreatedAt)
	require.NotNil(t, out.PaidAt)
	assert.Equal(t, time.Unix(1700000060, 0).UTC(), *out.PaidAt)
	assert.Nil(t, out.RefundedAt)
	require.NotNil(t, out.ProductID)
	assert.Equal(t, "prod_1", *out.ProductID)
	require.NotNil(t, out.MembershipID)
	assert.Equal(t, "mem_9", *out.MembershipID)
	require.NotNil(t, out.UserID)
	assert.Equal(t, "user_1", *out.UserID)
}

func TestNormalizePaymentWithoutOptionalFields(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	out := NormalizePayment("biz_1", upstream.Payment{ID: "pay_2", Status: "weird"}, fallback)
	assert.Equal(t, models.PaymentStatusUnknown, out.Status)
	assert.Zero(t, out.FinalAmount)
	assert.Equal(t, "usd", out.Currency)
	assert.Equal(t, fallback, out.CreatedAt)
	assert.Nil(t, out.ProductID)
	assert.Nil(t, out.MembershipID)
	assert.Nil(t, out.UserID)

	withMemberNoUser := NormalizePayment("biz_1", upstream.Payment{ID: "pay_3", Member: &upstream.Member{}}, fallback)
	assert.Nil(t, withMemberNoUser.UserID)
}

func TestNormalizeMember(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := upstream.Member{
		ID:                 "mem_1",
		Status:             "canceled",
		Valid:              ptr(false),
		CreatedAt:          ptr(int64(1700000000)),
		ExpiresAt:          ptr(int64(1702592000)),
		RenewalPeriodStart: ptr(int64(1700000000)),
		RenewalPeriodEnd:   ptr(int64(1702592000)),
		CancelAtPeriodEnd:  true,
		AccessPasses:       []upstream.AccessPass{{ID: "prod_1"}, {ID: "prod_2"}},
		User:               &upstream.Reference{ID: "user_1"},
	}

	out := NormalizeMember("biz_1", in, fallback)
	assert.Equal(t, models.MembershipStatusCancelled, out.Status)
	assert.False(t, out.Valid)
	assert.True(t, out.CancelAtPeriodEnd)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), *out.ExpiresAt)
	require.NotNil(t, out.RenewalPeriodEnd)
	require.NotNil(t, out.ProductID)
	assert.Equal(t, "prod_1", *out.ProductID)
	require.NotNil(t, out.UserID)
	assert.Equal(t, "user_1", *out.UserID)
}

func TestNormalizeMemberDerivesValidity(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	active := NormalizeMember("biz_1", upstream.Member{ID: "m1", Status: "active"}, fallback)
	assert.True(t, active.Valid)
	assert.Equal(t, fallback, active.CreatedAt)
	assert.Nil(t, active.ProductID)
	assert.Nil(t, active.UserID)

	expired := NormalizeMember("biz_1", upstream.Member{ID: "m2", Status: "expired"}, fallback)
	assert.False(t, expired.Valid)
}

func TestExtractProductsDeduplicates(t *testing.T) {
	payments := []upstream.Payment{
		{ID: "p1", AccessPass: &upstream.AccessPass{ID: "prod_1", Name: "Pro", Visibility: "visible", Stock: ptr(int64(3))}},
		{ID: "p2"},
		{ID: "p3", AccessPass: &upstream.AccessPass{ID: "prod_2", Name: "Basic"}},
		{ID: "p4", AccessPass: &upstream.AccessPass{ID: "prod_1"}},
		{ID: "p5", AccessPass: &upstream.AccessPass{ID: " "}},
	}

	products := ExtractProducts("biz_1", payments)
	require.Len(t, products, 2)
	assert.Equal(t, "prod_1", products[0].ExternalID)
	assert.Equal(t, "Pro", products[0].Name, "an empty later name keeps the known one")
	assert.Equal(t, "prod_2", products[1].ExternalID)
	assert.JSONEq(t, `{}`, products[1].MetadataJSON)
}

func TestNormalizePaymentsDropsDuplicatesAndBlankIDs(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []upstream.Payment{
		{ID: "pay_1", Status: "pending"},
		{ID: ""},
		{ID: "pay_1", Status: "paid"},
	}

	out := normalizePayments("biz_1", in, now)
	require.Len(t, out, 1)
	assert.Equal(t, models.PaymentStatusPaid, out[0].Status)
}
