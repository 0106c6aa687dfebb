package datasync

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/StoreMetrics/app/models"
	"github.com/ManuelReschke/StoreMetrics/internal/pkg/upstream"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a decimal major-unit amount into integer cents,
// rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func epochToTime(sec *int64) *time.Time {
	if sec == nil || *sec <= 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NormalizePaymentStatus maps upstream receipt states onto the cached enum.
func NormalizePaymentStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "succeeded":
		return models.PaymentStatusPaid
	case "refunded", "partially_refunded":
		return models.PaymentStatusRefunded
	case "failed":
		return models.PaymentStatusFailed
	case "pending", "open", "draft":
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusUnknown
	}
}

// NormalizeMembershipStatus maps upstream member states onto the cached enum.
func NormalizeMembershipStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "trialing":
		return models.MembershipStatusTrialing
	case "active":
		return models.MembershipStatusActive
	case "past_due":
		return models.MembershipStatusPastDue
	case "cancelled", "canceled":
		return models.MembershipStatusCancelled
	default:
		return models.MembershipStatusExpired
	}
}

// NormalizePayment converts one upstream receipt into the cache schema.
// fallbackCreatedAt is used when the receipt carries no creation time.
func NormalizePayment(companyID string, in upstream.Payment, fallbackCreatedAt time.Time) models.Payment {
	out := models.Payment{
		CompanyID:  companyID,
		ExternalID: strings.TrimSpace(in.ID),
		Status:     NormalizePaymentStatus(in.Status),
		Currency:   strings.ToLower(strings.TrimSpace(in.Currency)),
		PaidAt:     epochToTime(in.PaidAt),
		RefundedAt: epochToTime(in.RefundedAt),
	}
	if out.Currency == "" {
		out.Currency = "usd"
	}
	if in.FinalAmount != nil {
		out.FinalAmount = ToMinorUnits(*in.FinalAmount)
	}
	if created := epochToTime(in.CreatedAt); created != nil {
		out.CreatedAt = *created
	} else if out.PaidAt != nil {
		out.CreatedAt = *out.PaidAt
	} else {
		out.CreatedAt = fallbackCreatedAt.UTC()
	}
	if in.AccessPass != nil {
		out.ProductID = optionalString(in.AccessPass.ID)
	}
	if in.Membership != nil {
		out.MembershipID = optionalString(in.Membership.ID)
	}
	if in.Member != nil && in.Member.User != nil {
		out.UserID = optionalString(in.Member.User.ID)
	}
	return out
}

// NormalizeMember converts the membership embedded in a member record.
func NormalizeMember(companyID string, in upstream.Member, fallbackCreatedAt time.Time) models.Membership {
	status := NormalizeMembershipStatus(in.Status)
	out := models.Membership{
		CompanyID:          companyID,
		ExternalID:         strings.TrimSpace(in.ID),
		Status:             status,
		ExpiresAt:          epochToTime(in.ExpiresAt),
		RenewalPeriodStart: epochToTime(in.RenewalPeriodStart),
		RenewalPeriodEnd:   epochToTime(in.RenewalPeriodEnd),
		CancelAtPeriodEnd:  in.CancelAtPeriodEnd,
	}
	if in.Valid != nil {
		out.Valid = *in.Valid
	} else {
		out.Valid = status == models.MembershipStatusActive ||
			status == models.MembershipStatusTrialing ||
			status == models.MembershipStatusPastDue
	}
	if created := epochToTime(in.CreatedAt); created != nil {
		out.CreatedAt = *created
	} else {
		out.CreatedAt = fallbackCreatedAt.UTC()
	}
	if len(in.AccessPasses) > 0 {
		out.ProductID = optionalString(in.AccessPasses[0].ID)
	}
	if in.User != nil {
		out.UserID = optionalString(in.User.ID)
	}
	return out
}

// ExtractProducts collects the unique access passes referenced by payments.
// The last non-empty name seen for a product wins.
func ExtractProducts(companyID string, payments []upstream.Payment) []models.Product {
	index := make(map[string]int)
	var out []models.Product
	for _, p := range payments {
		if p.AccessPass == nil {
			continue
		}
		id := strings.TrimSpace(p.AccessPass.ID)
		if id == "" {
			continue
		}
		product := models.Product{
			CompanyID:    companyID,
			ExternalID:   id,
			Name:         strings.TrimSpace(p.AccessPass.Name),
			MetadataJSON: productMetadata(p.AccessPass),
		}
		if i, ok := index[id]; ok {
			if product.Name == "" {
				product.Name = out[i].Name
			}
			out[i] = product
			continue
		}
		index[id] = len(out)
		out = append(out, product)
	}
	return out
}

func productMetadata(pass *upstream.AccessPass) string {
	raw, err := json.Marshal(models.ProductMetadata{
		Visibility: strings.TrimSpace(pass.Visibility),
		Stock:      pass.Stock,
	})
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func normalizePayments(companyID string, in []upstream.Payment, now time.Time) []models.Payment {
	index := make(map[string]int, len(in))
	out := make([]models.Payment, 0, len(in))
	for _, p := range in {
		n := NormalizePayment(companyID, p, now)
		if n.ExternalID == "" {
			continue
		}
		if i, ok := index[n.ExternalID]; ok {
			out[i] = n
			continue
		}
		index[n.ExternalID] = len(out)
		out = append(out, n)
	}
	return out
}

func normalizeMembers(companyID string, in []upstream.Member, now time.Time) []models.Membership {
	index := make(map[string]int, len(in))
	out := make([]models.Membership, 0, len(in))
	for _, m := range in {
		n := NormalizeMember(companyID, m, now)
		if n.ExternalID == "" {
			continue
		}
		if i, ok := index[n.ExternalID]; ok {
			out[i] = n
			continue
		}
		index[n.ExternalID] = len(out)
		out = append(out, n)
	}
	return out
}
