package models

// SubscriptionStatus is the lifecycle state reported by the billing provider
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors the billing provider's subscription object. The JSON
// shape (snake_case, Unix-second periods) is the provider's wire format and
// is passed through to clients untouched.
type Subscription struct {
	ID                string             `json:"id"`
	Status            SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64              `json:"current_period_end"`
	CanceledAt        *int64             `json:"canceled_at,omitempty"`
}

// IsActive reports whether the subscription still grants access
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// CancelMode selects how a subscription is terminated
type CancelMode string

const (
	// CancelImmediately flags the subscription for immediate termination.
	// The provider still honors the already-paid period.
	CancelImmediately CancelMode = "immediately"
	// CancelAtPeriodEnd keeps the subscription usable until the current
	// paid period expires, then terminates it.
	CancelAtPeriodEnd CancelMode = "period_end"
)

// Valid reports whether the mode is one the billing provider understands
func (m CancelMode) Valid() bool {
	return m == CancelImmediately || m == CancelAtPeriodEnd
}
