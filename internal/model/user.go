// internal/model/user.go
package model

import (
	"strings"
	"time"
)

const (
	TierBasic        = "basic"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

var monthlyLimits = map[string]int{
	TierBasic:        100,
	TierProfessional: 1000,
}

// User carries the sender identity and the persisted usage counters.
type User struct {
	ID                int64      `db:"id" json:"id"`
	Username          string     `db:"username" json:"username"`
	Email             string     `db:"email" json:"email"`
	Position          string     `db:"position" json:"position"`
	ContactInfo       string     `db:"contact_info" json:"contact_info"`
	SubscriptionTier  string     `db:"subscription_tier" json:"subscription_tier"`
	EmailsGenerated   int        `db:"emails_generated" json:"emails_generated"`
	EmailsSent        int        `db:"emails_sent" json:"emails_sent"`
	BulkCampaigns     int        `db:"bulk_campaigns" json:"bulk_campaigns"`
	CurrentMonthUsage int        `db:"current_month_usage" json:"current_month_usage"`
	UsageResetAt      *time.Time `db:"usage_reset_at" json:"usage_reset_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// Sender returns the identity used for sender placeholders.
func (u *User) Sender() SenderIdentity {
	return SenderIdentity{
		Username:    u.Username,
		Position:    u.Position,
		ContactInfo: u.ContactInfo,
	}
}

// Tier normalizes SubscriptionTier. Empty means basic.
func (u *User) Tier() string {
	tier := strings.ToLower(strings.TrimSpace(u.SubscriptionTier))
	if tier == "" {
		return TierBasic
	}
	return tier
}

// MonthlyLimit returns the tier's monthly email limit. ok is false only for enterprise;
// tiers this service does not know get the basic limit.
func (u *User) MonthlyLimit() (limit int, ok bool) {
	tier := u.Tier()
	if tier == TierEnterprise {
		return 0, false
	}
	if limit, known := monthlyLimits[tier]; known {
		return limit, true
	}
	return monthlyLimits[TierBasic], true
}

// CanCreateCustomTemplates reports whether the tier includes user-authored templates.
func (u *User) CanCreateCustomTemplates() bool {
	tier := u.Tier()
	return tier == TierProfessional || tier == TierEnterprise
}

// RemainingQuota returns how many emails can still be sent this month. ok is false when unlimited.
func (u *User) RemainingQuota() (remaining int, ok bool) {
	limit, ok := u.MonthlyLimit()
	if !ok {
		return 0, false
	}
	remaining = limit - u.CurrentMonthUsage
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
