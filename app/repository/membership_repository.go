package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userIDChunkSize bounds the size of IN (...) lists.
const userIDChunkSize = 500

var (
	currentMemberStatuses = []string{models.MembershipStatusActive, models.MembershipStatusTrialing}
	churnedMemberStatuses = []string{models.MembershipStatusCancelled, models.MembershipStatusExpired}
)

// membershipRepository implements the MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository instance
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// UpsertMany inserts or updates memberships keyed by (company_id, external_id).
// created_at keeps the value of the first insert.
func (r *membershipRepository) UpsertMany(ctx context.Context, memberships []models.Membership) error {
	if len(memberships) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "company_id"},
			{Name: "external_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"user_id",
			"status",
			"valid",
			"expires_at",
			"renewal_period_start",
			"renewal_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).CreateInBatches(memberships, upsertBatchSize).Error
	return storeErr("upsert memberships", err)
}

// Count returns the number of cached memberships of a company.
func (r *membershipRepository) Count(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, storeErr("count memberships", err)
}

func (r *membershipRepository) CountActive(ctx context.Context, companyID string, createdBefore *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("company_id = ? AND valid = ? AND status IN ?", companyID, true, currentMemberStatuses)
	if createdBefore != nil {
		query = query.Where("created_at <= ?", createdBefore.UTC())
	}
	var count int64
	err := query.Count(&count).Error
	return count, storeErr("count active memberships", err)
}

// CountValidCreatedBefore counts valid memberships created strictly before the given time.
func (r *membershipRepository) CountValidCreatedBefore(ctx context.Context, companyID string, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("company_id = ? AND valid = ? AND created_at < ?", companyID, true, before.UTC()).
		Count(&count).Error
	return count, storeErr("count valid memberships", err)
}

// CountChurnedBetween counts invalid cancelled/expired memberships whose
// expiry falls within [start, end].
func (r *membershipRepository) CountChurnedBetween(ctx context.Context, companyID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("company_id = ? AND valid = ? AND status IN ? AND expires_at >= ? AND expires_at <= ?",
			companyID, false, churnedMemberStatuses, start.UTC(), end.UTC()).
		Count(&count).Error
	return count, storeErr("count churned memberships", err)
}

// ListCreatedSince returns memberships created at or after since, oldest first.
func (r *membershipRepository) ListCreatedSince(ctx context.Context, companyID string, since time.Time) ([]models.Membership, error) {
	var memberships []models.Membership
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND created_at >= ?", companyID, since.UTC()).
		Order("created_at asc").
		Find(&memberships).Error
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	return memberships, nil
}

// ListByUserIDs returns every membership belonging to one of the given users.
func (r *membershipRepository) ListByUserIDs(ctx context.Context, companyID string, userIDs []string) ([]models.Membership, error) {
	var out []models.Membership
	for start := 0; start < len(userIDs); start += userIDChunkSize {
		end := start + userIDChunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		var chunk []models.Membership
		err := r.db.WithContext(ctx).
			Where("company_id = ? AND user_id IN ?", companyID, userIDs[start:end]).
			Find(&chunk).Error
		if err != nil {
			return nil, storeErr("list memberships by user", err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
