package model

import "time"

// Role is the authorization role stored on a user row.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SubscriptionTier mirrors users.subscription_tier.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierStarter    SubscriptionTier = "starter"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Valid reports whether t is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierStarter, TierPro, TierEnterprise:
		return true
	}
	return false
}

// SubscriptionStatus mirrors users.subscription_status.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionNone     SubscriptionStatus = "none"
)

// AccessibilityMode is a display-only preference.
type AccessibilityMode string

const (
	AccessibilityDefault     AccessibilityMode = "default"
	AccessibilityWCAGAAA     AccessibilityMode = "wcag_aaa"
	AccessibilityEcoCode     AccessibilityMode = "eco_code"
	AccessibilityNeuroCode   AccessibilityMode = "neuro_code"
	AccessibilityDyslexic    AccessibilityMode = "dyslexic"
	AccessibilityNoBlueLight AccessibilityMode = "no_blue_light"
)

// Valid reports whether m is a supported accessibility mode.
func (m AccessibilityMode) Valid() bool {
	switch m {
	case AccessibilityDefault, AccessibilityWCAGAAA, AccessibilityEcoCode,
		AccessibilityNeuroCode, AccessibilityDyslexic, AccessibilityNoBlueLight:
		return true
	}
	return false
}

// User represents a row in the `users` table.  Users are created on
// their first external login and are never hard-deleted.  TokenBalance
// is a cached projection of the token ledger; it only changes together
// with a ledger append.
//
// Fields:
//
//	ID                 – primary key identifier.
//	OpenID             – opaque identifier from the session provider (unique).
//	Email, Name        – identity fields refreshed on every login.
//	DisplayName .. Phone – editable profile fields.
//	Role               – user or admin.
//	IsBanned/BanReason – moderation state.
//	SubscriptionTier/Status/ID – mirrored from the payment processor.
//	TokenBalance       – non-negative cached ledger sum.
type User struct {
	ID                 uint64             `json:"id"`                           // users.id
	OpenID             string             `json:"open_id"`                      // users.open_id
	Email              *string            `json:"email,omitempty"`              // users.email
	Name               *string            `json:"name,omitempty"`               // users.name
	DisplayName        *string            `json:"display_name,omitempty"`       // users.display_name
	Bio                *string            `json:"bio,omitempty"`                // users.bio
	AvatarURL          *string            `json:"avatar_url,omitempty"`         // users.avatar_url
	Location           *string            `json:"location,omitempty"`           // users.location
	ZipCode            *string            `json:"zip_code,omitempty"`           // users.zip_code
	Phone              *string            `json:"phone,omitempty"`              // users.phone
	Role               Role               `json:"role"`                         // users.role
	IsBanned           bool               `json:"is_banned"`                    // users.is_banned
	BanReason          *string            `json:"ban_reason,omitempty"`         // users.ban_reason
	SubscriptionTier   SubscriptionTier   `json:"subscription_tier"`            // users.subscription_tier
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`          // users.subscription_status
	SubscriptionID     *string            `json:"subscription_id,omitempty"`    // users.subscription_id
	StripeCustomerID   *string            `json:"stripe_customer_id,omitempty"` // users.stripe_customer_id
	TokenBalance       int64              `json:"token_balance"`                // users.token_balance
	AccessibilityMode  AccessibilityMode  `json:"accessibility_mode"`           // users.accessibility_mode
	LastSignedIn       time.Time          `json:"last_signed_in"`               // users.last_signed_in
	CreatedAt          time.Time          `json:"created_at"`                   // users.created_at
	UpdatedAt          time.Time          `json:"updated_at"`                   // users.updated_at
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ProfileUpdate carries the user-editable profile fields.  Nil means
// "leave unchanged".
type ProfileUpdate struct {
	DisplayName       *string
	Bio               *string
	Location          *string
	ZipCode           *string
	Phone             *string
	AccessibilityMode *AccessibilityMode
}

// SubscriptionUpdate is applied by the payment reconciliation flow.
type SubscriptionUpdate struct {
	SubscriptionID *string
	Tier           SubscriptionTier
	Status         SubscriptionStatus
}

// PublicProfile is the subset of a user exposed to other users.
type PublicProfile struct {
	ID          uint64    `json:"id"`
	DisplayName *string   `json:"display_name,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	Location    *string   `json:"location,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
