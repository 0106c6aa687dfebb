package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"github.com/ManuelReschke/StoreMetrics/app/repository"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/database"
)

func setupRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	return repository.NewRepositories(db)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestCompanyEnsureAndLastSync(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	_, err := repos.Company.GetByExternalID(ctx, "biz_1")
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))

	var storeErr *repository.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get company", storeErr.Op)

	require.NoError(t, repos.Company.Ensure(ctx, "biz_1"))
	require.NoError(t, repos.Company.Ensure(ctx, "biz_1"))

	company, err := repos.Company.GetByExternalID(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, models.CompanyTierFree, company.Tier)
	assert.Nil(t, company.LastSyncedAt)

	at := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Company.UpdateLastSyncedAt(ctx, "biz_1", at))

	company, err = repos.Company.GetByExternalID(ctx, "biz_1")
	require.NoError(t, err)
	require.NotNil(t, company.LastSyncedAt)
	assert.True(t, at.Equal(*company.LastSyncedAt))
}

func TestPaymentUpsertIsIdempotent(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	paidAt := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	payment := models.Payment{
		CompanyID: "biz_1", ExternalID: "pay_1", Status: models.PaymentStatusPaid,
		FinalAmount: 999, Currency: "usd", CreatedAt: paidAt, PaidAt: timePtr(paidAt),
	}
	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{payment}))
	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{payment}))

	// same external id in another company is a different row
	other := payment
	other.CompanyID = "biz_2"
	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{other}))

	count, err := repos.Payment.Count(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	payment.Status = models.PaymentStatusRefunded
	payment.RefundedAt = timePtr(paidAt.Add(time.Hour))
	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{payment}))

	total, err := repos.Payment.SumPaid(ctx, "biz_1", paidAt.Add(-time.Hour), paidAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, total, "refunded payments no longer count")

	total, err = repos.Payment.SumPaid(ctx, "biz_2", paidAt, paidAt)
	require.NoError(t, err)
	assert.Equal(t, int64(999), total, "bounds are inclusive")
}

func TestPaymentUpsertBatches(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	payments := make([]models.Payment, 0, 1200)
	for i := 0; i < 1200; i++ {
		payments = append(payments, models.Payment{
			CompanyID: "biz_1", ExternalID: fmt.Sprintf("pay_%04d", i), Status: models.PaymentStatusPaid,
			FinalAmount: 100, Currency: "usd", CreatedAt: at, PaidAt: timePtr(at),
		})
	}
	require.NoError(t, repos.Payment.UpsertMany(ctx, payments))

	count, err := repos.Payment.Count(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), count)
}

func TestPaymentAggregates(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{
		{CompanyID: "biz_1", ExternalID: "p1", Status: models.PaymentStatusPaid, FinalAmount: 500, Currency: "usd",
			CreatedAt: at, PaidAt: timePtr(at), ProductID: strPtr("prod_a"), UserID: strPtr("u1")},
		{CompanyID: "biz_1", ExternalID: "p2", Status: models.PaymentStatusPaid, FinalAmount: 700, Currency: "usd",
			CreatedAt: at, PaidAt: timePtr(at.Add(48 * time.Hour)), ProductID: strPtr("prod_a"), UserID: strPtr("u1")},
		{CompanyID: "biz_1", ExternalID: "p3", Status: models.PaymentStatusPaid, FinalAmount: 300, Currency: "usd",
			CreatedAt: at, PaidAt: timePtr(at), UserID: strPtr("u2")},
		{CompanyID: "biz_1", ExternalID: "p4", Status: models.PaymentStatusFailed, FinalAmount: 900, Currency: "usd",
			CreatedAt: at, ProductID: strPtr("prod_b"), UserID: strPtr("u3")},
	}))

	rows, err := repos.Payment.RevenueByProduct(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, []repository.ProductRevenue{{ProductID: "prod_a", Revenue: 1200, Count: 2}}, rows)

	users, err := repos.Payment.PayingUserIDs(ctx, "biz_1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)

	list, err := repos.Payment.ListPaidSince(ctx, "biz_1", at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ExternalID)
	assert.Equal(t, int64(700), list[0].FinalAmount)
}

func TestMembershipQueries(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	monthAgo := now.AddDate(0, 0, -30)

	require.NoError(t, repos.Membership.UpsertMany(ctx, []models.Membership{
		{CompanyID: "biz_1", ExternalID: "m1", UserID: strPtr("u1"), Status: models.MembershipStatusActive, Valid: true,
			CreatedAt: now.AddDate(0, 0, -60)},
		{CompanyID: "biz_1", ExternalID: "m2", UserID: strPtr("u1"), Status: models.MembershipStatusTrialing, Valid: true,
			CreatedAt: now.AddDate(0, 0, -1)},
		{CompanyID: "biz_1", ExternalID: "m3", UserID: strPtr("u2"), Status: models.MembershipStatusCancelled, Valid: false,
			CreatedAt: now.AddDate(0, 0, -90), ExpiresAt: timePtr(now.AddDate(0, 0, -5))},
		{CompanyID: "biz_1", ExternalID: "m4", Status: models.MembershipStatusPastDue, Valid: true,
			CreatedAt: now.AddDate(0, 0, -45)},
		{CompanyID: "biz_2", ExternalID: "m1", Status: models.MembershipStatusActive, Valid: true,
			CreatedAt: now.AddDate(0, 0, -60)},
	}))

	active, err := repos.Membership.CountActive(ctx, "biz_1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	baseline, err := repos.Membership.CountActive(ctx, "biz_1", &monthAgo)
	require.NoError(t, err)
	assert.Equal(t, int64(1), baseline)

	valid, err := repos.Membership.CountValidCreatedBefore(ctx, "biz_1", monthAgo)
	require.NoError(t, err)
	assert.Equal(t, int64(2), valid)

	churned, err := repos.Membership.CountChurnedBetween(ctx, "biz_1", monthAgo, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), churned)

	recent, err := repos.Membership.ListCreatedSince(ctx, "biz_1", monthAgo)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "m2", recent[0].ExternalID)

	byUser, err := repos.Membership.ListByUserIDs(ctx, "biz_1", []string{"u1", "u2", "u9"})
	require.NoError(t, err)
	assert.Len(t, byUser, 3)
}

func TestMembershipListByManyUserIDs(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	var memberships []models.Membership
	var userIDs []string
	for i := 0; i < 1100; i++ {
		uid := fmt.Sprintf("user_%04d", i)
		userIDs = append(userIDs, uid)
		memberships = append(memberships, models.Membership{
			CompanyID: "biz_1", ExternalID: fmt.Sprintf("mem_%04d", i), UserID: strPtr(uid),
			Status: models.MembershipStatusActive, Valid: true, CreatedAt: at,
		})
	}
	require.NoError(t, repos.Membership.UpsertMany(ctx, memberships))

	got, err := repos.Membership.ListByUserIDs(ctx, "biz_1", userIDs)
	require.NoError(t, err)
	assert.Len(t, got, 1100)
}

func TestProductNames(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Product.UpsertMany(ctx, []models.Product{
		{CompanyID: "biz_1", ExternalID: "prod_a", Name: "Old"},
		{CompanyID: "biz_1", ExternalID: "prod_b", Name: "Beta"},
	}))
	require.NoError(t, repos.Product.UpsertMany(ctx, []models.Product{
		{CompanyID: "biz_1", ExternalID: "prod_a", Name: "Alpha"},
	}))

	count, err := repos.Product.Count(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	names, err := repos.Product.NamesByExternalID(ctx, "biz_1", []string{"prod_a", "prod_z"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"prod_a": "Alpha"}, names)

	empty, err := repos.Product.NamesByExternalID(ctx, "biz_1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMetricsCacheUpsert(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

	_, err := repos.MetricsCache.GetByCompanyID(ctx, "biz_1")
	assert.True(t, repository.IsNotFound(err))

	require.NoError(t, repos.MetricsCache.Upsert(ctx, &models.MetricsCache{CompanyID: "biz_1", PayloadJSON: `{"v":1}`, GeneratedAt: at}))
	require.NoError(t, repos.MetricsCache.Upsert(ctx, &models.MetricsCache{CompanyID: "biz_1", PayloadJSON: `{"v":2}`, GeneratedAt: at.Add(time.Minute)}))

	entry, err := repos.MetricsCache.GetByCompanyID(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, entry.PayloadJSON)
	assert.True(t, at.Add(time.Minute).Equal(entry.GeneratedAt))
}

func TestUpsertMixedBatches(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	at := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)
	farFuture := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{
		{CompanyID: "biz_1", ExternalID: "p_paid", Status: models.PaymentStatusPaid, FinalAmount: 1999, Currency: "usd",
			CreatedAt: at, PaidAt: timePtr(at), ProductID: strPtr("prod_a"), UserID: strPtr("u1")},
		{CompanyID: "biz_1", ExternalID: "p_failed", Status: models.PaymentStatusFailed, FinalAmount: 500, Currency: "usd",
			CreatedAt: at},
		{CompanyID: "biz_1", ExternalID: "p_refunded", Status: models.PaymentStatusRefunded, FinalAmount: 700, Currency: "eur",
			CreatedAt: at, PaidAt: timePtr(at), RefundedAt: timePtr(at.Add(time.Hour)), MembershipID: strPtr("m1")},
	}))
	require.NoError(t, repos.Membership.UpsertMany(ctx, []models.Membership{
		{CompanyID: "biz_1", ExternalID: "m1", Status: models.MembershipStatusActive, Valid: true, CreatedAt: at,
			ExpiresAt: timePtr(farFuture), RenewalPeriodEnd: timePtr(farFuture), UserID: strPtr("u1")},
		{CompanyID: "biz_1", ExternalID: "m2", Status: models.MembershipStatusTrialing, Valid: true, CreatedAt: at},
	}))
	require.NoError(t, repos.Product.UpsertMany(ctx, []models.Product{
		{CompanyID: "biz_1", ExternalID: "prod_a", Name: "Alpha", MetadataJSON: `{"visibility":"visible"}`},
		{CompanyID: "biz_1", ExternalID: "prod_b"},
	}))

	payments, err := repos.Payment.Count(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), payments)

	total, err := repos.Payment.SumPaid(ctx, "biz_1", at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1999), total)

	members, err := repos.Membership.ListByUserIDs(ctx, "biz_1", []string{"u1"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NotNil(t, members[0].ExpiresAt)
	assert.True(t, farFuture.Equal(*members[0].ExpiresAt))

	products, err := repos.Product.Count(ctx, "biz_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), products)
}

func TestUpsertKeepsFirstCreatedAt(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	first := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	later := first.Add(2 * time.Hour)

	for _, created := range []time.Time{first, later} {
		require.NoError(t, repos.Membership.UpsertMany(ctx, []models.Membership{
			{CompanyID: "biz_1", ExternalID: "m1", Status: models.MembershipStatusActive, Valid: true, CreatedAt: created},
		}))
		require.NoError(t, repos.Payment.UpsertMany(ctx, []models.Payment{
			{CompanyID: "biz_1", ExternalID: "p1", Status: models.PaymentStatusPending, Currency: "usd", CreatedAt: created},
		}))
	}

	members, err := repos.Membership.ListCreatedSince(ctx, "biz_1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, first.Equal(members[0].CreatedAt))

	recent, err := repos.Membership.ListCreatedSince(ctx, "biz_1", first.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recent)
}
