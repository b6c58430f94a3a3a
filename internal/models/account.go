package models

import "time"

// Profile is the identity-provider view of a user returned by the account
// info endpoint. CreatedAt is Unix milliseconds, as the provider reports it.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// DeletionInfo is the user-facing disclosure shown before account deletion:
// which data categories disappear and how the process runs. Rendered
// verbatim; must be non-empty whenever deletion is offered.
type DeletionInfo struct {
	DataTypes []string `json:"dataTypes"`
	Process   []string `json:"process"`
}

// AccountInfo is the read-only account summary served by
// GET /api/account/delete and consumed once per session by the panel.
type AccountInfo struct {
	User                Profile      `json:"user"`
	ActiveSubscriptions int          `json:"activeSubscriptions"`
	DeletionInfo        DeletionInfo `json:"deletionInfo"`
}

// CancelSubscriptionRequest is the body of POST /api/subscription/cancel
type CancelSubscriptionRequest struct {
	SubscriptionID string     `json:"subscriptionId"`
	CancelAt       CancelMode `json:"cancelAt"`
}

// CancelSubscriptionResponse carries the provider-confirmed subscription
// state and a user-facing message describing the cancellation semantics.
type CancelSubscriptionResponse struct {
	Success      bool          `json:"success"`
	Subscription *Subscription `json:"subscription"`
	Message      string        `json:"message"`
}

// DeleteAccountRequest is the body of POST /api/account/delete
type DeleteAccountRequest struct {
	ConfirmDeletion bool `json:"confirmDeletion"`
	ExportData      bool `json:"exportData"`
}

// DeleteAccountResponse confirms a completed deletion. ExportData is present
// only when the caller asked for an export and one could be assembled.
type DeleteAccountResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	ExportData *DataExport `json:"exportData,omitempty"`
	DeletedAt  string      `json:"deletedAt"`
}

// DataExport is the snapshot of a user's data assembled just before the
// account is purged. It is serialized client-side into the downloaded file.
type DataExport struct {
	UserID        string         `json:"userId"`
	Email         string         `json:"email"`
	FirstName     string         `json:"firstName,omitempty"`
	LastName      string         `json:"lastName,omitempty"`
	CreatedAt     int64          `json:"createdAt"`
	Tier          Tier           `json:"tier"`
	QueryCount    int            `json:"queryCount"`
	Conversations []Conversation `json:"conversations,omitempty"`
	Messages      []Message      `json:"messages,omitempty"`
	Documents     []Document     `json:"documents,omitempty"`
	ExportedAt    string         `json:"exportedAt"`
}

// DeletionAudit is the compliance record kept after an account is removed.
// It intentionally stores only the identifiers needed to answer "when was
// this account deleted", not any of the purged data.
type DeletionAudit struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Exported  bool      `json:"exported" db:"exported"`
	DeletedAt time.Time `json:"deleted_at" db:"deleted_at"`
}

// ErrorResponse is the uniform non-2xx body: the error string is surfaced
// verbatim to the end user when present.
type ErrorResponse struct {
	Error string `json:"error"`
}
